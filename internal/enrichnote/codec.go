// Package enrichnote embeds enrichment metadata inside a record's
// free-text note field, next to (never over) the collector's own prose.
package enrichnote

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	startMarker = "<!--numisync:enrichment"
	endMarker   = "-->"

	// metadataVersion is the current block schema version.
	metadataVersion = 1
)

// SectionStatus is the state of one enrichment section.
type SectionStatus string

const (
	StatusNotQueried SectionStatus = "NOT_QUERIED"
	StatusPending    SectionStatus = "PENDING"
	StatusMerged     SectionStatus = "MERGED"
	StatusError      SectionStatus = "ERROR"
	StatusSkipped    SectionStatus = "SKIPPED"
	StatusNoMatch    SectionStatus = "NO_MATCH"
	StatusNoData     SectionStatus = "NO_DATA"
)

// Section records when and how one slice of catalog data was last
// handled for a record.
type Section struct {
	Status    SectionStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp,omitzero"`
	CatalogID int           `json:"catalogId,omitempty"`
	IssueID   int           `json:"issueId,omitempty"`
	Detail    string        `json:"detail,omitempty"`
}

// Section names accepted by UpdateSection.
const (
	SectionBasic   = "basicData"
	SectionIssue   = "issueData"
	SectionPricing = "pricingData"
)

// Metadata is the full enrichment block.
type Metadata struct {
	Version     int     `json:"version"`
	BasicData   Section `json:"basicData"`
	IssueData   Section `json:"issueData"`
	PricingData Section `json:"pricingData"`
}

// DefaultMetadata is a fresh block: nothing queried yet.
func DefaultMetadata() Metadata {
	return Metadata{
		Version:     metadataVersion,
		BasicData:   Section{Status: StatusNotQueried},
		IssueData:   Section{Status: StatusNotQueried},
		PricingData: Section{Status: StatusNotQueried},
	}
}

func (m Metadata) valid() bool {
	return m.Version != 0 &&
		m.BasicData.Status != "" &&
		m.IssueData.Status != "" &&
		m.PricingData.Status != ""
}

// section returns a pointer into m so callers can mutate the named
// section in place.
func (m *Metadata) section(name string) (*Section, bool) {
	switch name {
	case SectionBasic:
		return &m.BasicData, true
	case SectionIssue:
		return &m.IssueData, true
	case SectionPricing:
		return &m.PricingData, true
	default:
		return nil, false
	}
}

// Codec encodes and decodes enrichment blocks. The zero value is not
// usable; construct with NewCodec.
type Codec struct {
	now func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithNow overrides the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode splits a note into the collector's prose and the embedded
// metadata block. Corruption never propagates: a missing, unterminated,
// or unparseable block yields default metadata while the prose survives
// untouched.
func (c *Codec) Decode(note string) (string, Metadata) {
	start := strings.Index(note, startMarker)
	if start < 0 {
		return note, DefaultMetadata()
	}

	userNotes := strings.TrimRight(note[:start], " \t\n")

	rest := note[start+len(startMarker):]
	end := strings.Index(rest, endMarker)
	if end < 0 {
		// Unterminated block: keep the whole note as user prose so
		// nothing the collector wrote is lost.
		zap.L().Debug("enrichnote: unterminated metadata block, keeping note verbatim")
		return note, DefaultMetadata()
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		zap.L().Debug("enrichnote: unparseable metadata block, using defaults", zap.Error(err))
		return userNotes, DefaultMetadata()
	}
	if !meta.valid() {
		zap.L().Debug("enrichnote: incomplete metadata block, using defaults")
		return userNotes, DefaultMetadata()
	}
	return userNotes, meta
}

// Encode renders prose plus a marker-wrapped metadata block. Metadata is
// normalized to the full shape first so a decoder always finds every
// section.
func (c *Codec) Encode(userNotes string, meta Metadata) string {
	meta = normalize(meta)

	body, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		// Metadata is plain data; this cannot fail outside programmer
		// error.
		zap.L().Error("enrichnote: marshal metadata", zap.Error(err))
		return userNotes
	}

	block := startMarker + "\n" + string(body) + "\n" + endMarker

	userNotes = strings.TrimRight(userNotes, " \t\n")
	if userNotes == "" {
		return block
	}
	return userNotes + "\n\n" + block
}

// UpdateSection decodes the note, shallow-merges patch into the named
// section, stamps a timestamp unless the patch carries one, and
// re-encodes.
func (c *Codec) UpdateSection(note, name string, patch Section) (string, error) {
	userNotes, meta := c.Decode(note)

	sec, ok := meta.section(name)
	if !ok {
		return "", eris.Errorf("enrichnote: unknown section %q", name)
	}

	if patch.Status != "" {
		sec.Status = patch.Status
	}
	if patch.CatalogID != 0 {
		sec.CatalogID = patch.CatalogID
	}
	if patch.IssueID != 0 {
		sec.IssueID = patch.IssueID
	}
	if patch.Detail != "" {
		sec.Detail = patch.Detail
	}
	if !patch.Timestamp.IsZero() {
		sec.Timestamp = patch.Timestamp
	} else {
		sec.Timestamp = c.now().UTC()
	}

	return c.Encode(userNotes, meta), nil
}

// normalize backfills anything a partial Metadata value is missing.
func normalize(meta Metadata) Metadata {
	if meta.Version == 0 {
		meta.Version = metadataVersion
	}
	for _, sec := range []*Section{&meta.BasicData, &meta.IssueData, &meta.PricingData} {
		if sec.Status == "" {
			sec.Status = StatusNotQueried
		}
	}
	return meta
}
