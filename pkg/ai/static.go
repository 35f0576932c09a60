package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// StaticEmbedder is a deterministic, dependency-free EmbeddingClient.
// Each token is hashed into a bucket of the output vector, so texts that
// share vocabulary land near each other under inner product. It backs tests
// and local development where no embedding model is wired up.
type StaticEmbedder struct {
	Dim int
}

func NewStaticEmbedder(dim int) *StaticEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &StaticEmbedder{Dim: dim}
}

func (e *StaticEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vec := make([]float32, e.Dim)
	text := strings.ToLower(string(input))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, field := range fields {
		h := fnv.New32a()
		h.Write([]byte(field))
		vec[h.Sum32()%uint32(e.Dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (e *StaticEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		vec, err := e.GenerateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
