package pgx

import (
	"context"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

func (s *Store) CreateCorpus(ctx context.Context, corpus common.Corpus) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO corpora (id, type, name, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		corpus.ID, corpus.Type, corpus.Name, corpus.Description, corpus.Metadata, corpus.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create corpus: %w", err)
	}
	return nil
}

func (s *Store) GetCorpus(ctx context.Context, corpusID string) (common.Corpus, error) {
	var corpus common.Corpus
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, name, description, metadata, created_at
		FROM corpora WHERE id = $1`, corpusID).
		Scan(&corpus.ID, &corpus.Type, &corpus.Name, &corpus.Description, &corpus.Metadata, &corpus.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Corpus{}, common.NotFoundf("corpus %q not found", corpusID)
	}
	if err != nil {
		return common.Corpus{}, fmt.Errorf("failed to load corpus: %w", err)
	}
	return corpus, nil
}

func (s *Store) ListCorpora(ctx context.Context) ([]common.Corpus, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, name, description, metadata, created_at
		FROM corpora ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpora: %w", err)
	}
	defer rows.Close()

	var corpora []common.Corpus
	for rows.Next() {
		var corpus common.Corpus
		if err := rows.Scan(&corpus.ID, &corpus.Type, &corpus.Name, &corpus.Description, &corpus.Metadata, &corpus.CreatedAt); err != nil {
			return nil, err
		}
		corpora = append(corpora, corpus)
	}
	return corpora, rows.Err()
}

func (s *Store) DeleteCorpus(ctx context.Context, corpusID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM corpora WHERE id = $1`, corpusID)
	if err != nil {
		return fmt.Errorf("failed to delete corpus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NotFoundf("corpus %q not found", corpusID)
	}
	return nil
}

func (s *Store) AddDocument(ctx context.Context, document common.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, corpus_id, text, content_hash, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		document.ID, document.CorpusID, document.Text, document.ContentHash, document.Metadata, document.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, documentID string) (common.Document, error) {
	var document common.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, corpus_id, text, content_hash, metadata, created_at
		FROM documents WHERE id = $1`, documentID).
		Scan(&document.ID, &document.CorpusID, &document.Text, &document.ContentHash, &document.Metadata, &document.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Document{}, common.NotFoundf("document %q not found", documentID)
	}
	if err != nil {
		return common.Document{}, fmt.Errorf("failed to load document: %w", err)
	}
	return document, nil
}

func (s *Store) ListDocuments(ctx context.Context, corpusID string) ([]common.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, corpus_id, text, content_hash, metadata, created_at
		FROM documents WHERE corpus_id = $1 ORDER BY id`, corpusID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var documents []common.Document
	for rows.Next() {
		var document common.Document
		if err := rows.Scan(&document.ID, &document.CorpusID, &document.Text, &document.ContentHash, &document.Metadata, &document.CreatedAt); err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}
	return documents, rows.Err()
}

func (s *Store) FindDocumentByHash(ctx context.Context, corpusID, contentHash string) (common.Document, error) {
	var document common.Document
	err := s.pool.QueryRow(ctx, `
		SELECT id, corpus_id, text, content_hash, metadata, created_at
		FROM documents WHERE corpus_id = $1 AND content_hash = $2`, corpusID, contentHash).
		Scan(&document.ID, &document.CorpusID, &document.Text, &document.ContentHash, &document.Metadata, &document.CreatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return common.Document{}, common.NotFoundf("no document with hash %q", contentHash)
	}
	if err != nil {
		return common.Document{}, fmt.Errorf("failed to find document by hash: %w", err)
	}
	return document, nil
}

func (s *Store) AddChunks(ctx context.Context, chunks []common.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := &pgxv5.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, document_id, corpus_id, text, start_offset, end_offset)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			chunk.ID, chunk.DocumentID, chunk.CorpusID, chunk.Text, chunk.Start, chunk.End)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to add chunks: %w", err)
		}
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context, corpusID string) ([]common.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, corpus_id, text, start_offset, end_offset
		FROM chunks WHERE corpus_id = $1 ORDER BY document_id, id`, corpusID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []common.Chunk
	for rows.Next() {
		var chunk common.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.CorpusID, &chunk.Text, &chunk.Start, &chunk.End); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}
