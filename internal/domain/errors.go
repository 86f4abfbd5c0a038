package domain

import "errors"

var (
	// ErrInvalidQuery signals an empty or malformed search request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat completion failure (intent extraction, related queries).
	ErrLLMProviderError = errors.New("llm provider error")
)

// IsProviderError reports whether err came from an upstream model provider.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrEmbeddingProviderError) || errors.Is(err, ErrLLMProviderError)
}
