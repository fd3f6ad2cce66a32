package domain

import "errors"

var (
	// ErrNotFound signals a missing collection or document.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCatalog signals a malformed collection catalog.
	ErrInvalidCatalog = errors.New("invalid collection catalog")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMUnavailable signals that the LLM service is not configured or unreachable.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrRoutingUnavailable signals that collection routing could not run.
	ErrRoutingUnavailable = errors.New("routing unavailable")
	// ErrInvalidReward signals a non-positive or non-finite reward amount.
	ErrInvalidReward = errors.New("invalid reward")
	// ErrInvalidDecayRate signals a decay rate outside (0, 1).
	ErrInvalidDecayRate = errors.New("invalid decay rate")
)
