package models

import "errors"

// Failure taxonomy for the ingestion and query pipelines. Each stage wraps
// one of these sentinels with fmt.Errorf("<stage>: %w", ...) so callers can
// match with errors.Is while still seeing which stage failed.
var (
	// ErrExtraction means the PDF file could not be read or parsed.
	ErrExtraction = errors.New("pdf extraction failed")

	// ErrEmbeddingUnavailable means the embedding provider is missing,
	// misconfigured, or unreachable. Callers must not proceed to index
	// or search.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable means the vector store could not be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationUnavailable means the generation service timed out or
	// refused the connection.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrGenerationProtocol means the generation service answered but the
	// response was missing an expected field.
	ErrGenerationProtocol = errors.New("malformed generation response")

	// ErrConfiguration means a setting is invalid (e.g. chunk overlap not
	// smaller than chunk size). Raised at startup, never at request time.
	ErrConfiguration = errors.New("invalid configuration")
)
