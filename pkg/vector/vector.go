// Package vector provides nearest-neighbor similarity search over chunk
// embeddings, one index per corpus. The in-memory implementation keeps a
// JSON sidecar per corpus so the position-to-chunk mapping survives
// restarts; a pgvector-backed implementation lives in pkg/store/pgx.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Item is one embedding to index, keyed by its document and chunk.
type Item struct {
	DocumentID string    `json:"document_id"`
	ChunkID    string    `json:"chunk_id"`
	Vector     []float32 `json:"vector"`
}

// Hit is one similarity result.
type Hit struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
}

// Index is the nearest-neighbor index contract. Implementations score by
// inner product over L2-normalized vectors (cosine similarity).
type Index interface {
	IndexEmbeddings(ctx context.Context, corpusID string, items []Item) error
	Search(ctx context.Context, corpusID string, query []float32, k int) ([]Hit, error)
	DeleteCorpus(ctx context.Context, corpusID string) error
}

type key struct {
	documentID string
	chunkID    string
}

type corpusIndex struct {
	dim     int
	vectors [][]float32
	keys    []key
	seen    map[key]int
}

// Normalize returns the L2-normalized copy of v. A zero vector cannot be
// normalized and is rejected.
func Normalize(v []float32) ([]float32, error) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return nil, fmt.Errorf("cannot normalize zero vector")
	}
	scale := float32(1 / math.Sqrt(norm))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * scale
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func (c *corpusIndex) search(query []float32, k int) ([]Hit, error) {
	if len(query) != c.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected %d, got %d", c.dim, len(query))
	}
	normalized, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(c.vectors))
	for i, vec := range c.vectors {
		hits = append(hits, Hit{
			DocumentID: c.keys[i].documentID,
			ChunkID:    c.keys[i].chunkID,
			Score:      dot(normalized, vec),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocumentID != hits[j].DocumentID {
			return hits[i].DocumentID < hits[j].DocumentID
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if k >= 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *corpusIndex) add(items []Item) error {
	for _, item := range items {
		k := key{documentID: item.DocumentID, chunkID: item.ChunkID}
		if _, ok := c.seen[k]; ok {
			return fmt.Errorf("duplicate embedding for document_id=%s chunk_id=%s", item.DocumentID, item.ChunkID)
		}
		if len(item.Vector) != c.dim {
			return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dim, len(item.Vector))
		}
		normalized, err := Normalize(item.Vector)
		if err != nil {
			return err
		}
		c.vectors = append(c.vectors, normalized)
		c.keys = append(c.keys, k)
		c.seen[k] = len(c.vectors) - 1
	}
	return nil
}
