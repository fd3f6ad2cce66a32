package chi

import (
	"context"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	healthuc "github.com/kailas-cloud/scholargraph/internal/usecase/health"
	paperuc "github.com/kailas-cloud/scholargraph/internal/usecase/paper"
	suggestuc "github.com/kailas-cloud/scholargraph/internal/usecase/suggest"
)

// Searcher runs the routed search pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, page, limit int) domain.Page
}

// Suggester builds typeahead previews.
type Suggester interface {
	Suggest(ctx context.Context, prefix string) suggestuc.Suggestion
}

// PaperService serves paper details and analyses.
type PaperService interface {
	Get(ctx context.Context, collection string, id domain.PointID) (domain.Paper, error)
	Analyze(ctx context.Context, collection string, id domain.PointID) (paperuc.Analysis, error)
}

// Chatter answers questions about a paper.
type Chatter interface {
	Chat(ctx context.Context, history []domain.ChatMessage, message, paperContext string) (string, error)
}

// WeightStore reads and reinforces collection weights.
type WeightStore interface {
	Weight(id string) float64
	ApplyReward(ctx context.Context, id string, amount float64) (float64, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
