package ollama

import (
	"context"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. Blank input yields a zero vector
// without a model round trip.
func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.embeddingDim), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.api.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	})
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: res.PromptEvalCount,
		TotalTokens: res.PromptEvalCount,
		DurationMs:  res.TotalDuration.Milliseconds(),
	})

	out := make([]float32, c.embeddingDim)
	for _, vec := range res.Embeddings {
		for i, val := range vec {
			if i >= c.embeddingDim {
				break
			}
			out[i] = float32(val)
		}
		break
	}
	return out, nil
}

// GenerateEmbeddings embeds a batch of inputs sequentially. Ollama's embed
// endpoint handles one input well at a time; concurrency is bounded by the
// client's request semaphore either way.
func (c *Client) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		embedding, err := c.GenerateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = embedding
	}
	return out, nil
}
