package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Payload defaults applied when a field is absent or malformed.
const (
	DefaultTitle = "No Title"
	DefaultYear  = "N/A"
	DefaultVenue = "Unknown Venue"
	DefaultURL   = "#"

	// SearchConceptLimit caps concepts in search listings. Details keep all of them.
	SearchConceptLimit = 5
)

// PointID identifies a paper inside a collection: unsigned integer or opaque string.
type PointID struct {
	num     uint64
	str     string
	numeric bool
}

// NumericID builds an integer point id.
func NumericID(n uint64) PointID { return PointID{num: n, numeric: true} }

// StringID builds an opaque point id.
func StringID(s string) PointID { return PointID{str: s} }

// ParsePointID treats an all-digit string as numeric, anything else as opaque.
func ParsePointID(s string) (PointID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PointID{}, fmt.Errorf("empty point id: %w", ErrNotFound)
	}
	if isDigits(s) {
		n, err := strconv.ParseUint(s, 10, 64)
		if err == nil {
			return NumericID(n), nil
		}
	}
	return StringID(s), nil
}

// IsNumeric reports whether the id is an integer id.
func (p PointID) IsNumeric() bool { return p.numeric }

// IsZero reports whether the id was never set.
func (p PointID) IsZero() bool { return !p.numeric && p.str == "" }

func (p PointID) String() string {
	if p.numeric {
		return strconv.FormatUint(p.num, 10)
	}
	return p.str
}

// MarshalJSON encodes numeric ids as JSON numbers and opaque ids as strings.
func (p PointID) MarshalJSON() ([]byte, error) {
	if p.numeric {
		return []byte(strconv.FormatUint(p.num, 10)), nil
	}
	return json.Marshal(p.str) //nolint:wrapcheck // string marshal cannot fail
}

// UnmarshalJSON accepts both a JSON number and a JSON string.
func (p *PointID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = StringID(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("point id: %w", err)
	}
	*p = NumericID(n)
	return nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Paper is a search hit or a details view, projected from a stored payload.
type Paper struct {
	ID                PointID  `json:"id"`
	Score             float64  `json:"score"`
	Collection        string   `json:"collection"`
	DisplayCollection string   `json:"display_collection"`
	Title             string   `json:"title"`
	Abstract          string   `json:"abstract"`
	Year              string   `json:"year"`
	Date              string   `json:"date"`
	Venue             string   `json:"venue"`
	Citations         int      `json:"citations"`
	URL               string   `json:"url"`
	DOI               string   `json:"doi"`
	OpenAccess        bool     `json:"is_oa"`
	Authors           []string `json:"authors"`
	Concepts          []string `json:"concepts"`
}

// NewPaper returns a paper with every payload default applied.
func NewPaper(id PointID, collection string) Paper {
	return Paper{
		ID:         id,
		Collection: collection,
		Title:      DefaultTitle,
		Year:       DefaultYear,
		Venue:      DefaultVenue,
		URL:        DefaultURL,
		Authors:    []string{},
		Concepts:   []string{},
	}
}

// TruncateConcepts keeps at most n concepts.
func (p *Paper) TruncateConcepts(n int) {
	if len(p.Concepts) > n {
		p.Concepts = p.Concepts[:n]
	}
}

// Page is one page of merged search results.
type Page struct {
	Results       []Paper `json:"results"`
	Latency       float64 `json:"latency"`
	Routed        []Route `json:"routed_to"`
	Page          int     `json:"page"`
	Query         string  `json:"query"`
	ExpandedQuery string  `json:"expanded_query"`
	HasNext       bool    `json:"has_next"`
}
