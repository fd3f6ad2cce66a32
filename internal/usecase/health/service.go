package health

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

var errNotReady = errors.New("not initialized")

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Deps lists the checked components. Embedding, LLM and Router may be nil.
type Deps struct {
	DB        DBPinger
	Embedding ProviderChecker
	LLM       ProviderChecker
	Router    ReadinessChecker
}

// Service coordinates health checks.
type Service struct {
	deps   Deps
	logger *zap.Logger
}

// New creates a Service.
func New(deps Deps, logger *zap.Logger) *Service {
	return &Service{deps: deps, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	s.record(checks, "database", s.deps.DB.Ping(ctx))

	if s.deps.Embedding != nil {
		s.record(checks, "embedding", s.deps.Embedding.HealthCheck(ctx))
	}
	if s.deps.LLM != nil {
		s.record(checks, "llm", s.deps.LLM.HealthCheck(ctx))
	}
	if s.deps.Router != nil {
		var err error
		if !s.deps.Router.Ready() {
			err = errNotReady
		}
		s.record(checks, "router", err)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) record(checks map[string]CheckResult, name string, err error) {
	if err != nil {
		s.logger.Warn("Health check failed", zap.String("component", name), zap.Error(err))
		checks[name] = CheckError
		return
	}
	checks[name] = CheckOK
}
