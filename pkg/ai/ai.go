// Package ai defines the interfaces for the external embedding and language
// model collaborators, along with shared request options. The core never
// synthesizes answers itself; it only produces evidence bundles that a
// caller can hand to a completion model.
package ai

import "context"

// EmbeddingClient generates vector embeddings for text inputs. Embeddings
// must be deterministic per model version; callers treat the vectors as
// opaque and only rely on relative similarity.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)
	// GenerateEmbeddings is the batched fast path used by ingestion.
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}

// GraphAIClient is the full collaborator contract: embeddings plus text and
// structured-output completions. Implementations own their own timeout and
// concurrency-limiting behavior.
type GraphAIClient interface {
	EmbeddingClient

	GenerateCompletion(ctx context.Context, system string, prompt string) (string, error)
	// GenerateCompletionWithFormat requests a completion constrained to the
	// JSON schema derived from out, and decodes the response into out.
	GenerateCompletionWithFormat(ctx context.Context, name string, system string, prompt string, out any) error

	GetMetrics() ModelMetrics
	ResetMetrics()
}

// ModelMetrics contains performance metrics from AI model operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}
