package numista

// SearchResponse is the catalog's type-search result page.
type SearchResponse struct {
	Count int    `json:"count"`
	Types []Type `json:"types"`
}

// Type is a catalog coin type: the identity shared by every year/mint
// variant of one design. Search results carry a subset of the fields; the
// type-detail endpoint fills in the rest.
type Type struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	ObjectType string `json:"object_type"`
	Issuer     Issuer `json:"issuer"`
	MinYear    int    `json:"min_year"`
	MaxYear    int    `json:"max_year"`
	Value      Value  `json:"value"`

	// Detail-only fields.
	Composition *Composition `json:"composition,omitempty"`
	Weight      float64      `json:"weight,omitempty"`
	Size        float64      `json:"size,omitempty"`
	Thickness   float64      `json:"thickness,omitempty"`
	Shape       string       `json:"shape,omitempty"`
	Edge        *Edge        `json:"edge,omitempty"`
	Obverse     *Side        `json:"obverse,omitempty"`
	Reverse     *Side        `json:"reverse,omitempty"`
	References  []Reference  `json:"references,omitempty"`
	URL         string       `json:"url,omitempty"`
}

// Issuer identifies the issuing authority. Level orders hierarchical
// issuers (country above state above city); higher is more specific.
type Issuer struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Level int    `json:"level,omitempty"`
}

// Value is a type's face value.
type Value struct {
	Text    string  `json:"text"`
	Numeric float64 `json:"numeric_value,omitempty"`
}

// Composition describes the metal.
type Composition struct {
	Text string `json:"text"`
}

// Edge describes the coin edge.
type Edge struct {
	Description string `json:"description"`
	Picture     string `json:"picture,omitempty"`
}

// Side is one face of the coin.
type Side struct {
	Description string   `json:"description,omitempty"`
	Engravers   []string `json:"engravers,omitempty"`
	Picture     string   `json:"picture,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
}

// Reference is a standard catalog number (KM#, Y#, Schön#).
type Reference struct {
	Catalogue Catalogue `json:"catalogue"`
	Number    string    `json:"number"`
}

// Catalogue identifies a reference catalog.
type Catalogue struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

// Issue is one year/mint/variant combination within a type's history.
type Issue struct {
	ID            int         `json:"id"`
	Year          int         `json:"year,omitempty"`
	GregorianYear int         `json:"gregorian_year,omitempty"`
	MintLetter    string      `json:"mint_letter,omitempty"`
	Comment       string      `json:"comment,omitempty"`
	Mintage       int64       `json:"mintage,omitempty"`
	Marks         []Mark      `json:"marks,omitempty"`
	Signatures    []Signature `json:"signatures,omitempty"`
}

// CalendarYear returns the issue's year on the Gregorian calendar,
// preferring the explicit gregorian_year field for non-Gregorian issuers.
func (i Issue) CalendarYear() int {
	if i.GregorianYear != 0 {
		return i.GregorianYear
	}
	return i.Year
}

// Mark is a privy or mintmaster mark on an issue. The local record schema
// cannot represent these; issue matching reports them but never filters
// on them.
type Mark struct {
	ID          int    `json:"id"`
	Letters     string `json:"letters,omitempty"`
	Description string `json:"description,omitempty"`
}

// Signature is an engraver or mintmaster signature variant.
type Signature struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
}

// IssuersResponse is the issuer-list endpoint payload.
type IssuersResponse struct {
	Count   int      `json:"count"`
	Issuers []Issuer `json:"issuers"`
}

// PricingSnapshot is the price-by-grade data for one issue.
type PricingSnapshot struct {
	Currency string  `json:"currency"`
	Prices   []Price `json:"prices"`
}

// Price is an estimated market price at one grade.
type Price struct {
	Grade string  `json:"grade"`
	Price float64 `json:"price"`
}
