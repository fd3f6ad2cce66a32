package routing

// WeightReader exposes learned collection weights to the reranker.
type WeightReader interface {
	Weight(id string) float64
}
