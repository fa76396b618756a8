package enrichnote

import "time"

// Freshness buckets how stale a section's data is.
type Freshness string

const (
	FreshnessCurrent      Freshness = "CURRENT"       // under 3 months
	FreshnessRecent       Freshness = "RECENT"        // under 12 months
	FreshnessAging        Freshness = "AGING"         // under 24 months
	FreshnessOutdated     Freshness = "OUTDATED"      // 24 months or more
	FreshnessNeverUpdated Freshness = "NEVER_UPDATED" // no timestamp at all
)

// OverallStatus summarizes a record's enrichment across the sections the
// caller cares about.
type OverallStatus string

const (
	OverallComplete OverallStatus = "COMPLETE"
	OverallPartial  OverallStatus = "PARTIAL"
	OverallPending  OverallStatus = "PENDING"
	OverallError    OverallStatus = "ERROR"
)

// SectionStatusOf returns the named section's status, or StatusNotQueried
// for an unknown name.
func SectionStatusOf(meta Metadata, name string) SectionStatus {
	sec, ok := meta.section(name)
	if !ok {
		return StatusNotQueried
	}
	return sec.Status
}

// PricingFreshness buckets the pricing section's age.
func (c *Codec) PricingFreshness(meta Metadata) Freshness {
	return c.freshness(meta.PricingData.Timestamp)
}

func (c *Codec) freshness(ts time.Time) Freshness {
	if ts.IsZero() {
		return FreshnessNeverUpdated
	}
	now := c.now()
	switch {
	case ts.After(now.AddDate(0, -3, 0)):
		return FreshnessCurrent
	case ts.After(now.AddDate(0, -12, 0)):
		return FreshnessRecent
	case ts.After(now.AddDate(0, -24, 0)):
		return FreshnessAging
	default:
		return FreshnessOutdated
	}
}

// Overall computes the combined status over the requested sections. Any
// section in ERROR forces ERROR regardless of the rest.
func Overall(meta Metadata, wantIssue, wantPricing bool) OverallStatus {
	sections := []Section{meta.BasicData}
	if wantIssue {
		sections = append(sections, meta.IssueData)
	}
	if wantPricing {
		sections = append(sections, meta.PricingData)
	}

	merged := 0
	for _, sec := range sections {
		switch sec.Status {
		case StatusError:
			return OverallError
		case StatusMerged:
			merged++
		}
	}
	switch merged {
	case len(sections):
		return OverallComplete
	case 0:
		return OverallPending
	default:
		return OverallPartial
	}
}

// FullyEnriched reports whether every requested section has merged data.
func FullyEnriched(meta Metadata, wantIssue, wantPricing bool) bool {
	return Overall(meta, wantIssue, wantPricing) == OverallComplete
}
