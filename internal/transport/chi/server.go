package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scholargraph/internal/domain"
	healthuc "github.com/kailas-cloud/scholargraph/internal/usecase/health"
)

const (
	minSearchQueryLen  = 3
	minSuggestQueryLen = 1
	maxBodyBytes       = 1 << 20
)

// Deps groups the use cases served over HTTP.
type Deps struct {
	Search  Searcher
	Suggest Suggester
	Papers  PaperService
	Chat    Chatter
	Weights WeightStore
	Health  HealthChecker
	Catalog *domain.Catalog
}

// Server serves the ScholarGraph HTTP API.
type Server struct {
	deps           Deps
	feedbackReward float64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server. feedbackReward is applied when a
// feedback request carries no explicit reward.
func NewServer(deps Deps, feedbackReward float64, logger *zap.Logger) *Server {
	return &Server{
		deps:           deps,
		feedbackReward: feedbackReward,
		logger:         logger,
		errorHandlers:  defaultErrorHandlers(),
	}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.Search)
		r.Get("/suggest", s.Suggest)
		r.Get("/collections", s.ListCollections)
		r.Get("/papers/{collection}/{id}", s.GetPaper)
		r.Get("/papers/{collection}/{id}/analysis", s.AnalyzePaper)
		r.Post("/chat", s.Chat)
		r.Post("/feedback", s.Feedback)
	})
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var (
		query       string
		page, limit *int
	)
	if !s.bindQuery(w, r, "q", true, &query) ||
		!s.bindQuery(w, r, "page", false, &page) ||
		!s.bindQuery(w, r, "limit", false, &limit) {
		return
	}

	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSearchQueryLen {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("query must be at least %d characters", minSearchQueryLen))
		return
	}
	if page != nil && *page < 1 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "page must be >= 1")
		return
	}
	if limit != nil && *limit < 1 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "limit must be >= 1")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	result := s.deps.Search.Search(ctx, query, deref(page), deref(limit))

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, result)
}

// Suggest handles GET /api/v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var query string
	if !s.bindQuery(w, r, "q", true, &query) {
		return
	}
	if len([]rune(strings.TrimSpace(query))) < minSuggestQueryLen {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "query must not be empty")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	result := s.deps.Suggest.Suggest(ctx, query)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, result)
}

// CollectionResponse describes a collection with its current learned weight.
type CollectionResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Weight      float64  `json:"weight"`
}

// ListCollections handles GET /api/v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, _ *http.Request) {
	cols := s.deps.Catalog.All()
	items := make([]CollectionResponse, len(cols))
	for i, c := range cols {
		keywords := c.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		items[i] = CollectionResponse{
			ID:          c.ID,
			Name:        s.deps.Catalog.DisplayName(c.ID),
			Description: c.Description,
			Keywords:    keywords,
			Weight:      s.deps.Weights.Weight(c.ID),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// GetPaper handles GET /api/v1/papers/{collection}/{id}.
func (s *Server) GetPaper(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := s.bindPaperPath(w, r)
	if !ok {
		return
	}

	p, err := s.deps.Papers.Get(r.Context(), collection, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AnalyzePaper handles GET /api/v1/papers/{collection}/{id}/analysis.
func (s *Server) AnalyzePaper(w http.ResponseWriter, r *http.Request) {
	collection, id, ok := s.bindPaperPath(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	a, err := s.deps.Papers.Analyze(ctx, collection, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, a)
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history"`
	Context string               `json:"context"`
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "message is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	answer, err := s.deps.Chat.Chat(ctx, req.History, req.Message, req.Context)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, map[string]string{"response": answer})
}

// FeedbackRequest is the body of POST /api/v1/feedback. Reward defaults to the configured feedback reward.
type FeedbackRequest struct {
	Collection string   `json:"collection"`
	Reward     *float64 `json:"reward,omitempty"`
}

// FeedbackResponse reports the collection weight after the reward.
type FeedbackResponse struct {
	Status    string  `json:"status"`
	NewWeight float64 `json:"new_weight"`
}

// Feedback handles POST /api/v1/feedback.
func (s *Server) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "collection is required")
		return
	}
	if !s.deps.Catalog.Has(req.Collection) {
		s.handleDomainError(w, r, fmt.Errorf("collection %q: %w", req.Collection, domain.ErrNotFound))
		return
	}

	amount := s.feedbackReward
	if req.Reward != nil {
		amount = *req.Reward
	}

	weight, err := s.deps.Weights.ApplyReward(r.Context(), req.Collection, amount)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FeedbackResponse{Status: "success", NewWeight: weight})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// bindQuery binds a form-style query parameter and writes a 400 on failure.
// Optional parameters need a pointer-to-pointer destination.
func (s *Server) bindQuery(w http.ResponseWriter, r *http.Request, name string, required bool, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("Invalid format for parameter %s", name))
		return false
	}
	return true
}

func (s *Server) bindPaperPath(w http.ResponseWriter, r *http.Request) (string, domain.PointID, bool) {
	var collection, rawID string
	for _, p := range []struct {
		name string
		dest *string
	}{
		{"collection", &collection},
		{"id", &rawID},
	} {
		err := runtime.BindStyledParameterWithOptions("simple", p.name, chi.URLParam(r, p.name), p.dest,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				fmt.Sprintf("Invalid format for parameter %s", p.name))
			return "", domain.PointID{}, false
		}
	}

	id, err := domain.ParsePointID(rawID)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter id")
		return "", domain.PointID{}, false
	}
	return collection, id, true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.RequestUsage) {
	if usage == nil {
		return
	}
	if usage.Embedded {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.LLMTokens > 0 {
		w.Header().Set("X-LLM-Tokens", strconv.Itoa(usage.LLMTokens))
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
