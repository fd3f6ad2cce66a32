package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks an external model provider (embeddings or LLM).
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// ReadinessChecker reports whether a component finished initialization.
type ReadinessChecker interface {
	Ready() bool
}
