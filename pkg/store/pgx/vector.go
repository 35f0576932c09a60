package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/OFFIS-RIT/alavista/pkg/vector"
)

// IndexEmbeddings stores L2-normalized chunk embeddings under a corpus.
// Re-indexing a chunk replaces its vector.
func (s *Store) IndexEmbeddings(ctx context.Context, corpusID string, items []vector.Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgxv5.Batch{}
	for _, item := range items {
		normalized, err := vector.Normalize(item.Vector)
		if err != nil {
			return fmt.Errorf("chunk %q: %w", item.ChunkID, err)
		}
		batch.Queue(`
			INSERT INTO chunk_embeddings (corpus_id, document_id, chunk_id, embedding)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (corpus_id, chunk_id)
			DO UPDATE SET document_id = EXCLUDED.document_id, embedding = EXCLUDED.embedding`,
			corpusID, item.DocumentID, item.ChunkID, pgvector.NewVector(normalized))
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to index embeddings: %w", err)
		}
	}
	return nil
}

// Search returns the k nearest chunks by inner product. Query vectors are
// normalized, so inner product equals cosine similarity.
func (s *Store) Search(ctx context.Context, corpusID string, query []float32, k int) ([]vector.Hit, error) {
	normalized, err := vector.Normalize(query)
	if err != nil {
		return nil, err
	}

	// <#> is negative inner product; negate it back into a similarity.
	rows, err := s.pool.Query(ctx, `
		SELECT document_id, chunk_id, -(embedding <#> $2) AS score
		FROM chunk_embeddings
		WHERE corpus_id = $1
		ORDER BY score DESC, document_id, chunk_id
		LIMIT $3`, corpusID, pgvector.NewVector(normalized), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	var hits []vector.Hit
	for rows.Next() {
		var hit vector.Hit
		if err := rows.Scan(&hit.DocumentID, &hit.ChunkID, &hit.Score); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
