package routing

import (
	"math"
	"sort"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// DefaultAlpha is the weight of the learned prior in the hybrid score.
const DefaultAlpha = 0.2

// HybridScore blends semantic similarity with a learned weight: semantic + alpha*ln(1+weight).
// The log damps the prior so large weights cannot overwhelm similarity.
func HybridScore(semantic, weight, alpha float64) float64 {
	return semantic + alpha*math.Log1p(weight)
}

// HybridRanker reorders routed candidates by hybrid score.
type HybridRanker struct {
	weights WeightReader
	catalog *domain.Catalog
	alpha   float64
}

// NewHybridRanker creates a reranker. A non-positive alpha falls back to DefaultAlpha.
func NewHybridRanker(weights WeightReader, catalog *domain.Catalog, alpha float64) *HybridRanker {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	return &HybridRanker{weights: weights, catalog: catalog, alpha: alpha}
}

// Rerank fills Weight, Score and DisplayName on a copy of cands and sorts it by
// Score descending. Ties keep the input order.
func (h *HybridRanker) Rerank(cands []domain.Route) []domain.Route {
	out := make([]domain.Route, len(cands))
	for i, c := range cands {
		c.Weight = h.weights.Weight(c.CollectionID)
		c.Score = HybridScore(c.Semantic, c.Weight, h.alpha)
		c.DisplayName = h.catalog.DisplayName(c.CollectionID)
		out[i] = c
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Select reranks cands and keeps the best n.
func (h *HybridRanker) Select(cands []domain.Route, n int) []domain.Route {
	if n <= 0 {
		return []domain.Route{}
	}
	out := h.Rerank(cands)
	if n < len(out) {
		out = out[:n]
	}
	return out
}
