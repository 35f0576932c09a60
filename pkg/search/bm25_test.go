package search

import (
	"testing"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

func testChunks() []common.Chunk {
	return []common.Chunk{
		{ID: "ch1", DocumentID: "d1", CorpusID: "c1", Text: "The offshore account received a wire transfer from the shell company."},
		{ID: "ch2", DocumentID: "d1", CorpusID: "c1", Text: "The shell company was registered in Panama by an unknown director. The shell company had no employees."},
		{ID: "ch3", DocumentID: "d2", CorpusID: "c1", Text: "Weather in Zurich was mild that spring."},
	}
}

func TestIndexSearchRanksByTermFrequency(t *testing.T) {
	idx := BuildIndex(testChunks(), IndexParams{})

	hits := idx.Search("shell company", 10)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	// ch2 mentions the query terms twice and must outrank ch1.
	if hits[0].ChunkID != "ch2" || hits[1].ChunkID != "ch1" {
		t.Fatalf("ranking = [%s %s], want [ch2 ch1]", hits[0].ChunkID, hits[1].ChunkID)
	}
	if hits[0].Score <= hits[1].Score {
		t.Fatalf("expected descending scores, got %f then %f", hits[0].Score, hits[1].Score)
	}
	for _, hit := range hits {
		if hit.Source != "lexical" {
			t.Fatalf("hit source = %q, want lexical", hit.Source)
		}
		if hit.Excerpt == "" {
			t.Fatalf("hit %s has no excerpt", hit.ChunkID)
		}
	}
}

func TestIndexSearchEdgeCases(t *testing.T) {
	idx := BuildIndex(testChunks(), IndexParams{})

	tests := []struct {
		name  string
		query string
		k     int
		want  int
	}{
		{name: "no matching terms", query: "blockchain", k: 10, want: 0},
		{name: "k zero", query: "shell", k: 0, want: 0},
		{name: "k larger than matches", query: "shell", k: 100, want: 2},
		{name: "k truncates", query: "shell", k: 1, want: 1},
		{name: "empty query", query: "", k: 10, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := idx.Search(tt.query, tt.k)
			if len(hits) != tt.want {
				t.Fatalf("Search(%q, %d) returned %d hits, want %d", tt.query, tt.k, len(hits), tt.want)
			}
		})
	}
}

func TestIndexSearchTieBreak(t *testing.T) {
	chunks := []common.Chunk{
		{ID: "ch2", DocumentID: "d2", CorpusID: "c1", Text: "ledger entry"},
		{ID: "ch1", DocumentID: "d1", CorpusID: "c1", Text: "ledger entry"},
	}
	idx := BuildIndex(chunks, IndexParams{})

	hits := idx.Search("ledger", 10)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].DocumentID != "d1" || hits[1].DocumentID != "d2" {
		t.Fatalf("tie-break order = [%s %s], want [d1 d2]", hits[0].DocumentID, hits[1].DocumentID)
	}
}

func TestIndexStopwordRemoval(t *testing.T) {
	chunks := []common.Chunk{
		{ID: "ch1", DocumentID: "d1", CorpusID: "c1", Text: "the quick audit"},
	}
	idx := BuildIndex(chunks, IndexParams{RemoveStopwords: true})

	if hits := idx.Search("the", 10); len(hits) != 0 {
		t.Fatalf("stopword-only query returned %d hits, want 0", len(hits))
	}
	if hits := idx.Search("the audit", 10); len(hits) != 1 {
		t.Fatalf("query with content term returned %d hits, want 1", len(hits))
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := BuildIndex(nil, IndexParams{})
	if idx.Len() != 0 {
		t.Fatalf("empty index Len = %d, want 0", idx.Len())
	}
	if hits := idx.Search("anything", 10); hits != nil {
		t.Fatalf("empty index returned hits: %v", hits)
	}
}
