package suggest

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	"github.com/kailas-cloud/scholargraph/internal/logger"
)

const (
	maxMatches     = 5
	maxCompletions = 3
)

// Suggestion is a typeahead preview: keyword completions and where the query would route.
type Suggestion struct {
	Completions         []string `json:"completions"`
	PredictedDomain     string   `json:"predicted_domain"`
	PredictedCollection string   `json:"predicted_collection"`
	CurrentWeight       float64  `json:"current_weight"`
}

// Service builds suggestions from collection keywords and a top-1 routing preview.
type Service struct {
	catalog *domain.Catalog
	router  Router
	weights WeightReader
	logger  *zap.Logger
}

// New creates a suggest service.
func New(catalog *domain.Catalog, router Router, weights WeightReader, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, router: router, weights: weights, logger: logger}
}

// Suggest returns completions for prefix and the predicted collection.
// When routing is unavailable the prediction is empty with zero weight.
func (s *Service) Suggest(ctx context.Context, prefix string) Suggestion {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	out := Suggestion{Completions: s.completions(prefix)}

	routes := s.router.RankText(ctx, prefix, 1)
	if len(routes) == 0 {
		logger.FromContextOr(ctx, s.logger).Debug("Suggest without routing preview",
			zap.String("prefix", prefix), zap.Error(domain.ErrRoutingUnavailable))
		return out
	}

	id := routes[0].CollectionID
	out.PredictedCollection = id
	out.PredictedDomain = s.catalog.DisplayName(id)
	out.CurrentWeight = s.weights.Weight(id)
	return out
}

// completions collects up to maxMatches keywords containing prefix in catalog order
// and returns the first maxCompletions of them.
func (s *Service) completions(prefix string) []string {
	matches := make([]string, 0, maxMatches)
	if prefix == "" {
		return matches
	}

collect:
	for _, col := range s.catalog.All() {
		for _, k := range col.Keywords {
			kw := strings.ToLower(k)
			if kw != prefix && strings.Contains(kw, prefix) {
				matches = append(matches, kw)
			}
			if len(matches) >= maxMatches {
				break collect
			}
		}
	}

	if len(matches) > maxCompletions {
		matches = matches[:maxCompletions]
	}
	return matches
}
