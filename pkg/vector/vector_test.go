package vector

import (
	"context"
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize([]float32{3, 4})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if math.Abs(float64(got[0])-0.6) > 1e-6 || math.Abs(float64(got[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize([3 4]) = %v, want [0.6 0.8]", got)
	}

	if _, err := Normalize([]float32{0, 0, 0}); err == nil {
		t.Fatalf("expected error for zero vector")
	}
}

func TestMemoryIndexSearch(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex("")

	items := []Item{
		{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0, 0}},
		{DocumentID: "d1", ChunkID: "ch2", Vector: []float32{0, 1, 0}},
		{DocumentID: "d2", ChunkID: "ch3", Vector: []float32{1, 1, 0}},
	}
	if err := index.IndexEmbeddings(ctx, "c1", items); err != nil {
		t.Fatalf("IndexEmbeddings failed: %v", err)
	}

	hits, err := index.Search(ctx, "c1", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].ChunkID != "ch1" || hits[1].ChunkID != "ch3" {
		t.Fatalf("ranking = [%s %s], want [ch1 ch3]", hits[0].ChunkID, hits[1].ChunkID)
	}
	if math.Abs(hits[0].Score-1.0) > 1e-6 {
		t.Fatalf("identical vector score = %f, want 1.0", hits[0].Score)
	}
}

func TestMemoryIndexRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup []Item
		items []Item
	}{
		{
			name:  "duplicate chunk embedding",
			setup: []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0}}},
			items: []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{0, 1}}},
		},
		{
			name:  "dimension mismatch",
			setup: []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0}}},
			items: []Item{{DocumentID: "d1", ChunkID: "ch2", Vector: []float32{1, 0, 0}}},
		},
		{
			name:  "zero vector",
			items: []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{0, 0}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := NewMemoryIndex("")
			if len(tt.setup) > 0 {
				if err := index.IndexEmbeddings(ctx, "c1", tt.setup); err != nil {
					t.Fatalf("setup IndexEmbeddings failed: %v", err)
				}
			}
			if err := index.IndexEmbeddings(ctx, "c1", tt.items); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestMemoryIndexQueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex("")
	if err := index.IndexEmbeddings(ctx, "c1", []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("IndexEmbeddings failed: %v", err)
	}
	if _, err := index.Search(ctx, "c1", []float32{1, 0, 0}, 5); err == nil {
		t.Fatalf("expected error for mismatched query dimension")
	}
}

func TestMemoryIndexUnknownCorpus(t *testing.T) {
	hits, err := NewMemoryIndex("").Search(context.Background(), "missing", []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected nil hits for unknown corpus, got %v", hits)
	}
}

func TestMemoryIndexSidecarPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	index := NewMemoryIndex(dir)
	if err := index.IndexEmbeddings(ctx, "c1", []Item{
		{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0}},
		{DocumentID: "d1", ChunkID: "ch2", Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatalf("IndexEmbeddings failed: %v", err)
	}

	// A fresh index over the same directory reloads the sidecar lazily.
	reloaded := NewMemoryIndex(dir)
	hits, err := reloaded.Search(ctx, "c1", []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after reload failed: %v", err)
	}
	if len(hits) != 1 || hits[0].ChunkID != "ch1" {
		t.Fatalf("hits after reload = %v, want [ch1]", hits)
	}

	// Dedup state survives the reload.
	err = reloaded.IndexEmbeddings(ctx, "c1", []Item{{DocumentID: "d1", ChunkID: "ch1", Vector: []float32{1, 0}}})
	if err == nil {
		t.Fatalf("expected duplicate error after reload")
	}

	if err := reloaded.DeleteCorpus(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCorpus failed: %v", err)
	}
	hits, err = NewMemoryIndex(dir).Search(ctx, "c1", []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after delete failed: %v", err)
	}
	if hits != nil {
		t.Fatalf("expected no hits after corpus delete, got %v", hits)
	}
}
