package search

import (
	"math"
	"sort"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Index is an in-memory BM25 inverted index over the chunks of one corpus.
//
// An Index is immutable after Build: corpus changes trigger a full rebuild
// and the engine swaps the new index in whole, so in-flight queries keep a
// consistent snapshot and ranking stays deterministic.
type Index struct {
	k1              float64
	b               float64
	removeStopwords bool

	chunks       map[string]common.Chunk
	docLengths   map[string]int
	termFreqs    map[string]map[string]int
	postings     map[string][]string // term -> chunk ids
	idf          map[string]float64
	avgDocLength float64
}

// IndexParams configures BM25 scoring for a new Index.
type IndexParams struct {
	K1              float64
	B               float64
	RemoveStopwords bool
}

// BuildIndex constructs a BM25 index from the given chunks.
func BuildIndex(chunks []common.Chunk, params IndexParams) *Index {
	k1 := params.K1
	if k1 <= 0 {
		k1 = defaultK1
	}
	b := params.B
	if b <= 0 {
		b = defaultB
	}

	idx := &Index{
		k1:              k1,
		b:               b,
		removeStopwords: params.RemoveStopwords,
		chunks:          make(map[string]common.Chunk, len(chunks)),
		docLengths:      make(map[string]int, len(chunks)),
		termFreqs:       make(map[string]map[string]int, len(chunks)),
		postings:        make(map[string][]string),
		idf:             make(map[string]float64),
	}

	totalLength := 0
	for _, chunk := range chunks {
		tokens := Tokenize(chunk.Text, params.RemoveStopwords)

		idx.chunks[chunk.ID] = chunk
		idx.docLengths[chunk.ID] = len(tokens)
		totalLength += len(tokens)

		freqs := make(map[string]int)
		for _, token := range tokens {
			freqs[token]++
		}
		idx.termFreqs[chunk.ID] = freqs
		for term := range freqs {
			idx.postings[term] = append(idx.postings[term], chunk.ID)
		}
	}

	if len(chunks) > 0 {
		idx.avgDocLength = float64(totalLength) / float64(len(chunks))
	}
	n := float64(len(chunks))
	for term, chunkIDs := range idx.postings {
		df := float64(len(chunkIDs))
		idx.idf[term] = math.Log((n-df+0.5)/(df+0.5) + 1.0)
	}
	return idx
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	return len(idx.chunks)
}

// Chunk returns the indexed chunk for an id.
func (idx *Index) Chunk(chunkID string) (common.Chunk, bool) {
	chunk, ok := idx.chunks[chunkID]
	return chunk, ok
}

// Search scores every chunk containing at least one query term and returns
// the top k by score descending; ties break on ascending (document id,
// chunk id). Requesting more than available returns all matches.
func (idx *Index) Search(query string, k int) []common.SearchHit {
	if k <= 0 || len(idx.chunks) == 0 {
		return nil
	}
	queryTerms := Tokenize(query, idx.removeStopwords)
	if len(queryTerms) == 0 {
		return nil
	}

	candidates := make(map[string]struct{})
	for _, term := range queryTerms {
		for _, chunkID := range idx.postings[term] {
			candidates[chunkID] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	hits := make([]common.SearchHit, 0, len(candidates))
	for chunkID := range candidates {
		score := idx.score(chunkID, queryTerms)
		if score <= 0 {
			continue
		}
		chunk := idx.chunks[chunkID]
		hits = append(hits, common.SearchHit{
			DocumentID: chunk.DocumentID,
			ChunkID:    chunkID,
			Score:      score,
			Source:     "lexical",
			Excerpt:    Excerpt(chunk.Text, 200),
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
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

func (idx *Index) score(chunkID string, queryTerms []string) float64 {
	score := 0.0
	docLength := float64(idx.docLengths[chunkID])
	freqs := idx.termFreqs[chunkID]

	normLength := 0.0
	if idx.avgDocLength > 0 {
		normLength = docLength / idx.avgDocLength
	}

	for _, term := range queryTerms {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		tf := float64(freqs[term])
		numerator := tf * (idx.k1 + 1)
		denominator := tf + idx.k1*(1-idx.b+idx.b*normLength)
		score += idf * (numerator / denominator)
	}
	return score
}

// Excerpt truncates text to at most limit bytes on a rune boundary,
// appending an ellipsis when truncated.
func Excerpt(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
