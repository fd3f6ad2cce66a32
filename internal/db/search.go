package db

// KNNQuery is the input for paginated vector similarity search.
// The store asks for K = Offset+Limit neighbours and returns the window [Offset, Offset+Limit).
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	Offset       int
	Limit        int
	ReturnFields []string
}

// K is the neighbour count requested from the index.
func (q *KNNQuery) K() int { return q.Offset + q.Limit }

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
