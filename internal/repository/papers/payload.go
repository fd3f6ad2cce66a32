package papers

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Hash field names of a stored paper.
const (
	fieldTitle      = "title"
	fieldAbstract   = "abstract"
	fieldYear       = "publication_year"
	fieldDate       = "publication_date"
	fieldVenue      = "venue"
	fieldCitations  = "citation_count"
	fieldURL        = "url"
	fieldDOI        = "doi"
	fieldOpenAccess = "is_open_access"
	fieldAuthors    = "authors"
	fieldConcepts   = "concepts"
	fieldVector     = "vector"
)

var payloadFields = []string{
	fieldTitle, fieldAbstract, fieldYear, fieldDate, fieldVenue, fieldCitations,
	fieldURL, fieldDOI, fieldOpenAccess, fieldAuthors, fieldConcepts,
}

// parsePaper projects hash fields onto a Paper. Absent, empty or malformed
// fields keep their defaults.
func parsePaper(id domain.PointID, collection string, f map[string]string) domain.Paper {
	p := domain.NewPaper(id, collection)

	if v := strings.TrimSpace(f[fieldTitle]); v != "" {
		p.Title = v
	}
	p.Abstract = f[fieldAbstract]
	if v := parseYear(f[fieldYear]); v != "" {
		p.Year = v
	}
	p.Date = strings.TrimSpace(f[fieldDate])
	if v := strings.TrimSpace(f[fieldVenue]); v != "" {
		p.Venue = v
	}
	p.Citations = parseCount(f[fieldCitations])
	if v := strings.TrimSpace(f[fieldURL]); v != "" {
		p.URL = v
	}
	p.DOI = strings.TrimSpace(f[fieldDOI])
	p.OpenAccess = parseBool(f[fieldOpenAccess])
	p.Authors = parseList(f[fieldAuthors])
	p.Concepts = parseList(f[fieldConcepts])

	return p
}

// parseYear accepts "2021" and "2021.0" as written by float-typed loaders.
func parseYear(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && f > 0 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func parseCount(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < math.MaxInt32 {
		return int(f)
	}
	return 0
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "t":
		return true
	default:
		return false
	}
}

// parseList accepts a JSON string array or a comma-separated list.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	if strings.HasPrefix(s, "[") {
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return compact(items)
		}
		return []string{}
	}

	return compact(strings.Split(s, ","))
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
