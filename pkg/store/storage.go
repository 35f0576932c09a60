// Package store defines the persistence interfaces for corpora, documents,
// chunks, and the knowledge graph. Implementations live in subpackages:
// memory (in-process, snapshot-persisted) and pgx (PostgreSQL + pgvector).
package store

import (
	"context"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

// GraphStorage persists nodes and edges of a corpus-scoped knowledge graph.
//
// Implementations must serialize mutations per corpus so that UpsertNode's
// merge-or-create decision is race-free: concurrent writers for the same
// normalized (name, type) must converge on a single node, first writer wins.
// Reads must not block on each other.
//
// Type validation is NOT the store's job; pkg/graph gates every mutation
// against the ontology before it reaches this interface.
type GraphStorage interface {
	// UpsertNode creates the node, or merges its aliases and attributes
	// into the existing node with the same normalized name and type.
	// The returned node is the stored state after the merge.
	UpsertNode(ctx context.Context, corpusID string, node common.Node) (common.Node, error)
	GetNode(ctx context.Context, corpusID, nodeID string) (common.Node, error)
	// FindNodesByName matches canonical names and aliases after
	// case/whitespace normalization. An empty result is not an error.
	FindNodesByName(ctx context.Context, corpusID, name string) ([]common.Node, error)
	// ListNodes returns a corpus's nodes ordered by id, optionally
	// restricted to one canonical entity type ("" lists all).
	ListNodes(ctx context.Context, corpusID, entityType string) ([]common.Node, error)
	// DeleteNode removes the node and cascades to its edges.
	DeleteNode(ctx context.Context, corpusID, nodeID string) error

	InsertEdge(ctx context.Context, corpusID string, edge common.Edge) error
	EdgesFrom(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error)
	EdgesTo(ctx context.Context, corpusID, nodeID string) ([]common.Edge, error)
	EdgesBetween(ctx context.Context, corpusID, a, b string) ([]common.Edge, error)

	CountNodes(ctx context.Context, corpusID string) (int, error)
	CountEdges(ctx context.Context, corpusID string) (int, error)

	// DeleteGraph removes every node and edge of a corpus. This is the
	// only bulk teardown; nodes are otherwise never deleted implicitly.
	DeleteGraph(ctx context.Context, corpusID string) error
}

// CorpusStorage persists corpora, their documents, and chunks.
type CorpusStorage interface {
	CreateCorpus(ctx context.Context, corpus common.Corpus) error
	GetCorpus(ctx context.Context, corpusID string) (common.Corpus, error)
	ListCorpora(ctx context.Context) ([]common.Corpus, error)
	// DeleteCorpus removes the corpus and cascades to documents and chunks.
	DeleteCorpus(ctx context.Context, corpusID string) error

	AddDocument(ctx context.Context, doc common.Document) error
	GetDocument(ctx context.Context, docID string) (common.Document, error)
	ListDocuments(ctx context.Context, corpusID string) ([]common.Document, error)
	// FindDocumentByHash looks a document up by content hash for dedup.
	FindDocumentByHash(ctx context.Context, corpusID, contentHash string) (common.Document, error)

	AddChunks(ctx context.Context, chunks []common.Chunk) error
	ListChunks(ctx context.Context, corpusID string) ([]common.Chunk, error)
}
