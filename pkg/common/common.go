package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Corpus represents a named collection of documents with a declared purpose.
//
// A corpus is the unit of isolation in the system: documents, chunks, the
// knowledge graph, and the retrieval indices are all scoped to a single
// corpus and never cross corpus boundaries.
type Corpus struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"` // "research", "profile_manual", "global"
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Document is a single ingested text within a corpus. The content hash is
// computed over the normalized text and used to skip re-ingesting duplicates.
type Document struct {
	ID          string            `json:"id"`
	CorpusID    string            `json:"corpus_id"`
	Text        string            `json:"text"`
	ContentHash string            `json:"content_hash"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Chunk is a bounded span of a document's text, the unit indexed for
// retrieval. Offsets are byte positions into the parent document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	CorpusID   string `json:"corpus_id"`
	Text       string `json:"text"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// SearchHit is a single ranked retrieval result. Hits are ephemeral: they
// are produced per query and never persisted.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Source     string  `json:"source"` // "lexical", "vector", "hybrid"
	Excerpt    string  `json:"excerpt,omitempty"`
}

// ContentHash returns the hex SHA-256 of the whitespace-normalized text.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeName canonicalizes an entity name for matching: whitespace is
// collapsed and the result is lowercased. Used for node dedup and for
// resolving question mentions against the graph.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
