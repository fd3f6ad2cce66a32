package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/scholargraph/internal/domain"
)

// Config tunes LLM usage.
type Config struct {
	Timeout        time.Duration
	ExpansionRPS   float64
	ExpansionBurst int
}

// Service runs query expansion, paper analysis and paper chat on an LLM.
type Service struct {
	llm     LLM
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// New creates an assistant. A nil llm makes every operation return domain.ErrLLMUnavailable.
func New(llm LLM, cfg Config, logger *zap.Logger) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ExpansionRPS <= 0 {
		cfg.ExpansionRPS = 2
	}
	if cfg.ExpansionBurst <= 0 {
		cfg.ExpansionBurst = 5
	}
	return &Service{
		llm:     llm,
		limiter: rate.NewLimiter(rate.Limit(cfg.ExpansionRPS), cfg.ExpansionBurst),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Enabled reports whether an LLM is configured.
func (s *Service) Enabled() bool { return s.llm != nil }

// Expand rewrites a query for retrieval. Expansion is rate-limited: a denied
// request fails fast with domain.ErrRateLimited rather than waiting.
func (s *Service) Expand(ctx context.Context, query string) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	if !s.limiter.Allow() {
		return "", fmt.Errorf("query expansion: %w", domain.ErrRateLimited)
	}

	answer, err := s.complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: buildExpandPrompt(query)},
	})
	if err != nil {
		return "", fmt.Errorf("query expansion: %w", err)
	}
	return answer, nil
}

// Analyze asks for a structured Markdown analysis of a paper.
func (s *Service) Analyze(ctx context.Context, title, abstract string) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	if strings.TrimSpace(abstract) == "" {
		abstract = MissingAbstract
	}

	answer, err := s.complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: buildAnalyzePrompt(title, abstract)},
	})
	if err != nil {
		return "", fmt.Errorf("paper analysis: %w", err)
	}
	return answer, nil
}

// Chat answers message in the context of a paper abstract, continuing history.
// History entries with unknown roles or empty content are dropped; "model" is
// accepted as an alias for the assistant role.
func (s *Service) Chat(
	ctx context.Context, history []domain.ChatMessage, message, paperContext string,
) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: buildChatSystemPrompt(paperContext),
	})
	for _, m := range history {
		role, ok := normalizeRole(m.Role)
		if !ok || strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, domain.ChatMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: message})

	answer, err := s.complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("paper chat: %w", err)
	}
	return answer, nil
}

var errEmptyAnswer = errors.New("empty answer")

func (s *Service) complete(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return "", err //nolint:wrapcheck // callers add the operation name
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, errEmptyAnswer)
	}
	return answer, nil
}

func normalizeRole(role string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case domain.RoleUser:
		return domain.RoleUser, true
	case domain.RoleAssistant, "model":
		return domain.RoleAssistant, true
	default:
		return "", false
	}
}
