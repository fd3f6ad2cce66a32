package domain

// Route is one candidate collection for a query.
// Semantic is filled by routing, Weight and Score by reranking.
type Route struct {
	CollectionID string  `json:"collection"`
	DisplayName  string  `json:"name"`
	Semantic     float64 `json:"semantic_score"`
	Weight       float64 `json:"learned_weight"`
	Score        float64 `json:"final_score"`
}

// RouteIDs returns the collection ids of routes in order.
func RouteIDs(routes []Route) []string {
	ids := make([]string, len(routes))
	for i, r := range routes {
		ids[i] = r.CollectionID
	}
	return ids
}
