// Package search implements lexical (BM25), vector, and hybrid retrieval
// over corpus chunks, with per-corpus index caching and deterministic
// ranking.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/store"
	"github.com/OFFIS-RIT/alavista/pkg/vector"
)

// Mode selects the retrieval strategy for one query.
type Mode string

const (
	ModeLexical Mode = "lexical"
	ModeVector  Mode = "vector"
	ModeHybrid  Mode = "hybrid"
)

// ParseMode validates a mode string from an external caller.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeLexical, ModeVector, ModeHybrid:
		return Mode(s), nil
	case "":
		return ModeLexical, nil
	}
	return "", fmt.Errorf("unsupported search mode: %q", s)
}

// Engine orchestrates the lexical and vector indices per query mode. The
// per-corpus BM25 cache follows a swap-on-rebuild discipline: a rebuild
// assembles a fresh index and replaces the cache entry atomically, so
// queries in flight keep scoring against the snapshot they started with.
type Engine struct {
	corpora  store.CorpusStorage
	vectors  vector.Index      // nil when no vector backend is wired
	embedder ai.EmbeddingClient // nil when no embedder is wired

	indexParams   IndexParams
	lexicalWeight float64
	vectorWeight  float64

	mu    sync.RWMutex
	cache map[string]*Index
}

// EngineParams configures a new Engine. Vectors and Embedder may both be
// nil, in which case only lexical mode is available and vector or hybrid
// requests surface a configuration error rather than degrading silently.
type EngineParams struct {
	Corpora  store.CorpusStorage
	Vectors  vector.Index
	Embedder ai.EmbeddingClient

	Index         IndexParams
	LexicalWeight float64
	VectorWeight  float64
}

func NewEngine(params EngineParams) *Engine {
	lexicalWeight := params.LexicalWeight
	vectorWeight := params.VectorWeight
	if lexicalWeight == 0 && vectorWeight == 0 {
		lexicalWeight, vectorWeight = 0.5, 0.5
	}
	return &Engine{
		corpora:       params.Corpora,
		vectors:       params.Vectors,
		embedder:      params.Embedder,
		indexParams:   params.Index,
		lexicalWeight: lexicalWeight,
		vectorWeight:  vectorWeight,
		cache:         make(map[string]*Index),
	}
}

// Search runs a query against one corpus. k larger than the number of
// matches returns every match; that is not an error.
func (e *Engine) Search(ctx context.Context, corpusID, query string, mode Mode, k int) ([]common.SearchHit, error) {
	return e.SearchDocuments(ctx, corpusID, query, mode, k, nil)
}

// SearchDocuments is Search restricted to a document subset. A nil or empty
// docIDs set means the whole corpus. The graph-guided retriever uses this
// to rank only the documents its traversal surfaced.
func (e *Engine) SearchDocuments(ctx context.Context, corpusID, query string, mode Mode, k int, docIDs []string) ([]common.SearchHit, error) {
	if _, err := e.corpora.GetCorpus(ctx, corpusID); err != nil {
		return nil, err
	}
	if mode == ModeVector || mode == ModeHybrid {
		if e.vectors == nil || e.embedder == nil {
			return nil, &common.ConfigurationError{
				Msg: fmt.Sprintf("search mode %q requires a vector index and embedding client", mode),
			}
		}
	}

	filter := makeFilter(docIDs)

	switch mode {
	case ModeLexical:
		return e.searchLexical(ctx, corpusID, query, k, filter)
	case ModeVector:
		return e.searchVector(ctx, corpusID, query, k, filter)
	case ModeHybrid:
		lexical, err := e.searchLexical(ctx, corpusID, query, k, filter)
		if err != nil {
			return nil, err
		}
		vectorHits, err := e.searchVector(ctx, corpusID, query, k, filter)
		if err != nil {
			return nil, err
		}
		return e.fuse(lexical, vectorHits, k), nil
	}
	return nil, fmt.Errorf("unsupported search mode: %q", mode)
}

// rebuild assembles a fresh BM25 index for a corpus and swaps it into the
// cache. Indices are rebuilt wholesale, never patched, whenever a corpus
// mutates materially.
func (e *Engine) rebuild(ctx context.Context, corpusID string) (*Index, error) {
	chunks, err := e.corpora.ListChunks(ctx, corpusID)
	if err != nil {
		return nil, err
	}
	idx := BuildIndex(chunks, e.indexParams)

	e.mu.Lock()
	e.cache[corpusID] = idx
	e.mu.Unlock()
	return idx, nil
}

// Invalidate drops the cached index for a corpus (or all corpora when
// corpusID is empty); the next query rebuilds it lazily.
func (e *Engine) Invalidate(corpusID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if corpusID == "" {
		e.cache = make(map[string]*Index)
		return
	}
	delete(e.cache, corpusID)
}

func (e *Engine) index(ctx context.Context, corpusID string) (*Index, error) {
	e.mu.RLock()
	idx, ok := e.cache[corpusID]
	e.mu.RUnlock()
	if ok {
		return idx, nil
	}
	// Use the freshly built index directly: re-reading the cache could
	// observe a concurrent Invalidate and hand out nil.
	return e.rebuild(ctx, corpusID)
}

func (e *Engine) searchLexical(ctx context.Context, corpusID, query string, k int, filter map[string]struct{}) ([]common.SearchHit, error) {
	idx, err := e.index(ctx, corpusID)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return idx.Search(query, k), nil
	}

	// A restricted query scores only the filtered chunks; an ad-hoc index
	// keeps BM25 statistics consistent with the visible subset.
	chunks, err := e.corpora.ListChunks(ctx, corpusID)
	if err != nil {
		return nil, err
	}
	subset := chunks[:0:0]
	for _, chunk := range chunks {
		if _, ok := filter[chunk.DocumentID]; ok {
			subset = append(subset, chunk)
		}
	}
	return BuildIndex(subset, e.indexParams).Search(query, k), nil
}

func (e *Engine) searchVector(ctx context.Context, corpusID, query string, k int, filter map[string]struct{}) ([]common.SearchHit, error) {
	embedding, err := e.embedder.GenerateEmbedding(ctx, []byte(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := k
	if filter != nil {
		// Over-fetch so the post-filter subset can still fill k.
		limit = k * 10
		if limit > 1000 {
			limit = 1000
		}
	}
	hits, err := e.vectors.Search(ctx, corpusID, embedding, limit)
	if err != nil {
		return nil, err
	}

	idx, err := e.index(ctx, corpusID)
	if err != nil {
		return nil, err
	}

	out := make([]common.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if filter != nil {
			if _, ok := filter[hit.DocumentID]; !ok {
				continue
			}
		}
		excerpt := ""
		if chunk, ok := idx.Chunk(hit.ChunkID); ok {
			excerpt = Excerpt(chunk.Text, 200)
		}
		out = append(out, common.SearchHit{
			DocumentID: hit.DocumentID,
			ChunkID:    hit.ChunkID,
			Score:      hit.Score,
			Source:     "vector",
			Excerpt:    excerpt,
		})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

type hitKey struct {
	documentID string
	chunkID    string
}

// fuse merges the two modality rankings: each score list is min-max
// normalized to [0,1] independently, then combined per chunk as
// lexicalWeight*lex + vectorWeight*vec, with 0 for a missing modality.
// Ties break on ascending (document id, chunk id) so results are
// bit-identical across runs.
func (e *Engine) fuse(lexical, vectorHits []common.SearchHit, k int) []common.SearchHit {
	lexNorm := normalizeScores(lexical)
	vecNorm := normalizeScores(vectorHits)

	excerpts := make(map[hitKey]string, len(lexical)+len(vectorHits))
	for _, hit := range append(append([]common.SearchHit{}, lexical...), vectorHits...) {
		key := hitKey{hit.DocumentID, hit.ChunkID}
		if _, ok := excerpts[key]; !ok {
			excerpts[key] = hit.Excerpt
		}
	}

	combined := make(map[hitKey]float64, len(excerpts))
	for key, score := range lexNorm {
		combined[key] += e.lexicalWeight * score
	}
	for key, score := range vecNorm {
		combined[key] += e.vectorWeight * score
	}

	out := make([]common.SearchHit, 0, len(combined))
	for key, score := range combined {
		out = append(out, common.SearchHit{
			DocumentID: key.documentID,
			ChunkID:    key.chunkID,
			Score:      score,
			Source:     "hybrid",
			Excerpt:    excerpts[key],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// normalizeScores min-max normalizes hit scores to [0,1]. When every score
// is identical the whole list maps to 1.0, avoiding a divide by zero.
func normalizeScores(hits []common.SearchHit) map[hitKey]float64 {
	if len(hits) == 0 {
		return nil
	}
	minScore, maxScore := hits[0].Score, hits[0].Score
	for _, hit := range hits[1:] {
		if hit.Score < minScore {
			minScore = hit.Score
		}
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}
	out := make(map[hitKey]float64, len(hits))
	for _, hit := range hits {
		key := hitKey{hit.DocumentID, hit.ChunkID}
		if maxScore == minScore {
			out[key] = 1.0
			continue
		}
		out[key] = (hit.Score - minScore) / (maxScore - minScore)
	}
	return out
}

func makeFilter(docIDs []string) map[string]struct{} {
	if len(docIDs) == 0 {
		return nil
	}
	filter := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		filter[id] = struct{}{}
	}
	return filter
}
