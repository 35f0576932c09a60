package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/OFFIS-RIT/alavista/pkg/common"
)

func TestUpsertNodeMergesByNameAndType(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.UpsertNode(ctx, "c1", common.Node{
		ID:      "n1",
		Type:    "Person",
		Name:    "John Smith",
		Aliases: []string{"J. Smith"},
	})
	if err != nil {
		t.Fatalf("first UpsertNode failed: %v", err)
	}

	// Same normalized name and type must merge, not create a second node.
	second, err := s.UpsertNode(ctx, "c1", common.Node{
		ID:      "n2",
		Type:    "Person",
		Name:    "john   smith",
		Aliases: []string{"Johnny"},
	})
	if err != nil {
		t.Fatalf("second UpsertNode failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected merge into %q, got new node %q", first.ID, second.ID)
	}

	count, err := s.CountNodes(ctx, "c1")
	if err != nil {
		t.Fatalf("CountNodes failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 node after merge, got %d", count)
	}

	wantAliases := []string{"J. Smith", "Johnny", "john   smith"}
	if !reflect.DeepEqual(second.Aliases, wantAliases) {
		t.Fatalf("merged aliases = %v, want %v", second.Aliases, wantAliases)
	}

	// Same name but a different type is a distinct node.
	third, err := s.UpsertNode(ctx, "c1", common.Node{ID: "n3", Type: "Organization", Name: "John Smith"})
	if err != nil {
		t.Fatalf("third UpsertNode failed: %v", err)
	}
	if third.ID != "n3" {
		t.Fatalf("expected new node n3, got %q", third.ID)
	}
}

func TestFindNodesByName(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.UpsertNode(ctx, "c1", common.Node{
		ID:      "n1",
		Type:    "Organization",
		Name:    "Acme Corp",
		Aliases: []string{"Acme"},
	}); err != nil {
		t.Fatalf("UpsertNode failed: %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "exact name", query: "Acme Corp", want: 1},
		{name: "case insensitive", query: "ACME CORP", want: 1},
		{name: "by alias", query: "acme", want: 1},
		{name: "extra whitespace", query: " Acme   Corp ", want: 1},
		{name: "unknown", query: "Globex", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := s.FindNodesByName(ctx, "c1", tt.query)
			if err != nil {
				t.Fatalf("FindNodesByName failed: %v", err)
			}
			if len(nodes) != tt.want {
				t.Fatalf("got %d nodes, want %d", len(nodes), tt.want)
			}
		})
	}
}

func TestListNodesFiltersByType(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed := []common.Node{
		{ID: "n1", Type: "Person", Name: "Alice"},
		{ID: "n2", Type: "Person", Name: "Bob"},
		{ID: "n3", Type: "Organization", Name: "Acme"},
	}
	for _, node := range seed {
		if _, err := s.UpsertNode(ctx, "c1", node); err != nil {
			t.Fatalf("UpsertNode failed: %v", err)
		}
	}

	all, err := s.ListNodes(ctx, "c1", "")
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListNodes(\"\") returned %d nodes, want 3", len(all))
	}

	people, err := s.ListNodes(ctx, "c1", "Person")
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("ListNodes(Person) returned %d nodes, want 2", len(people))
	}
	if people[0].ID != "n1" || people[1].ID != "n2" {
		t.Fatalf("ListNodes order = [%s %s], want [n1 n2]", people[0].ID, people[1].ID)
	}
}

func TestDeleteNodeCascadesEdges(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, node := range []common.Node{
		{ID: "n1", Type: "Person", Name: "Alice"},
		{ID: "n2", Type: "Organization", Name: "Acme"},
		{ID: "n3", Type: "Person", Name: "Bob"},
	} {
		if _, err := s.UpsertNode(ctx, "c1", node); err != nil {
			t.Fatalf("UpsertNode failed: %v", err)
		}
	}
	for _, edge := range []common.Edge{
		{ID: "e1", Type: "WORKS_FOR", SourceID: "n1", TargetID: "n2"},
		{ID: "e2", Type: "COMMUNICATED_WITH", SourceID: "n3", TargetID: "n1"},
		{ID: "e3", Type: "WORKS_FOR", SourceID: "n3", TargetID: "n2"},
	} {
		if err := s.InsertEdge(ctx, "c1", edge); err != nil {
			t.Fatalf("InsertEdge failed: %v", err)
		}
	}

	if err := s.DeleteNode(ctx, "c1", "n1"); err != nil {
		t.Fatalf("DeleteNode failed: %v", err)
	}

	if _, err := s.GetNode(ctx, "c1", "n1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("GetNode after delete: got %v, want ErrNotFound", err)
	}

	count, err := s.CountEdges(ctx, "c1")
	if err != nil {
		t.Fatalf("CountEdges failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 surviving edge, got %d", count)
	}

	remaining, err := s.EdgesFrom(ctx, "c1", "n3")
	if err != nil {
		t.Fatalf("EdgesFrom failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "e3" {
		t.Fatalf("EdgesFrom(n3) = %v, want [e3]", remaining)
	}

	// A re-upsert of the deleted name must create a fresh node, not merge
	// into stale index entries.
	fresh, err := s.UpsertNode(ctx, "c1", common.Node{ID: "n4", Type: "Person", Name: "Alice"})
	if err != nil {
		t.Fatalf("UpsertNode after delete failed: %v", err)
	}
	if fresh.ID != "n4" {
		t.Fatalf("expected fresh node n4, got %q", fresh.ID)
	}
}

func TestInsertEdgeRequiresEndpoints(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.UpsertNode(ctx, "c1", common.Node{ID: "n1", Type: "Person", Name: "Alice"}); err != nil {
		t.Fatalf("UpsertNode failed: %v", err)
	}

	err := s.InsertEdge(ctx, "c1", common.Edge{ID: "e1", Type: "WORKS_FOR", SourceID: "n1", TargetID: "missing"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("InsertEdge with missing target: got %v, want ErrNotFound", err)
	}
}

func TestEdgesBetween(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, node := range []common.Node{
		{ID: "n1", Type: "Person", Name: "Alice"},
		{ID: "n2", Type: "Person", Name: "Bob"},
		{ID: "n3", Type: "Person", Name: "Carol"},
	} {
		if _, err := s.UpsertNode(ctx, "c1", node); err != nil {
			t.Fatalf("UpsertNode failed: %v", err)
		}
	}
	for _, edge := range []common.Edge{
		{ID: "e1", Type: "COMMUNICATED_WITH", SourceID: "n1", TargetID: "n2"},
		{ID: "e2", Type: "COMMUNICATED_WITH", SourceID: "n2", TargetID: "n1"},
		{ID: "e3", Type: "COMMUNICATED_WITH", SourceID: "n1", TargetID: "n3"},
	} {
		if err := s.InsertEdge(ctx, "c1", edge); err != nil {
			t.Fatalf("InsertEdge failed: %v", err)
		}
	}

	edges, err := s.EdgesBetween(ctx, "c1", "n1", "n2")
	if err != nil {
		t.Fatalf("EdgesBetween failed: %v", err)
	}
	if len(edges) != 2 || edges[0].ID != "e1" || edges[1].ID != "e2" {
		t.Fatalf("EdgesBetween(n1, n2) = %v, want [e1 e2]", edges)
	}
}

func TestDeleteCorpusRemovesDocumentsAndChunks(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.CreateCorpus(ctx, common.Corpus{ID: "c1", Type: "research", Name: "case"}); err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	if err := s.AddDocument(ctx, common.Document{ID: "d1", CorpusID: "c1", Text: "hello", ContentHash: common.ContentHash("hello")}); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if err := s.AddChunks(ctx, []common.Chunk{{ID: "ch1", DocumentID: "d1", CorpusID: "c1", Text: "hello", End: 5}}); err != nil {
		t.Fatalf("AddChunks failed: %v", err)
	}

	if err := s.DeleteCorpus(ctx, "c1"); err != nil {
		t.Fatalf("DeleteCorpus failed: %v", err)
	}
	if _, err := s.GetDocument(ctx, "d1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("GetDocument after corpus delete: got %v, want ErrNotFound", err)
	}
	chunks, err := s.ListChunks(ctx, "c1")
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks after corpus delete, got %d", len(chunks))
	}
	if err := s.DeleteCorpus(ctx, "c1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("second DeleteCorpus: got %v, want ErrNotFound", err)
	}
}

func TestFindDocumentByHash(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if err := s.CreateCorpus(ctx, common.Corpus{ID: "c1", Type: "research", Name: "case"}); err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	hash := common.ContentHash("some report text")
	if err := s.AddDocument(ctx, common.Document{ID: "d1", CorpusID: "c1", Text: "some report text", ContentHash: hash}); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}

	doc, err := s.FindDocumentByHash(ctx, "c1", hash)
	if err != nil {
		t.Fatalf("FindDocumentByHash failed: %v", err)
	}
	if doc.ID != "d1" {
		t.Fatalf("found document %q, want d1", doc.ID)
	}

	if _, err := s.FindDocumentByHash(ctx, "c2", hash); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("hash lookup in other corpus: got %v, want ErrNotFound", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.CreateCorpus(ctx, common.Corpus{ID: "c1", Type: "research", Name: "case", CreatedAt: now}); err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	if err := s.AddDocument(ctx, common.Document{ID: "d1", CorpusID: "c1", Text: "Alice works for Acme.", ContentHash: common.ContentHash("Alice works for Acme."), CreatedAt: now}); err != nil {
		t.Fatalf("AddDocument failed: %v", err)
	}
	if err := s.AddChunks(ctx, []common.Chunk{{ID: "ch1", DocumentID: "d1", CorpusID: "c1", Text: "Alice works for Acme.", End: 21}}); err != nil {
		t.Fatalf("AddChunks failed: %v", err)
	}
	for _, node := range []common.Node{
		{ID: "n1", Type: "Person", Name: "Alice", Aliases: []string{"A."}, CreatedAt: now},
		{ID: "n2", Type: "Organization", Name: "Acme", CreatedAt: now},
	} {
		if _, err := s.UpsertNode(ctx, "c1", node); err != nil {
			t.Fatalf("UpsertNode failed: %v", err)
		}
	}
	if err := s.InsertEdge(ctx, "c1", common.Edge{
		ID: "e1", Type: "WORKS_FOR", SourceID: "n1", TargetID: "n2",
		Provenance: common.Provenance{DocumentID: "d1", ChunkID: "ch1", Excerpt: "Alice works for Acme."},
		Confidence: 0.9, ExtractionMethod: "heuristic", CreatedAt: now,
	}); err != nil {
		t.Fatalf("InsertEdge failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := NewStore()
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	corpus, err := restored.GetCorpus(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCorpus after load failed: %v", err)
	}
	if corpus.Name != "case" {
		t.Fatalf("corpus name after load = %q, want %q", corpus.Name, "case")
	}

	chunks, err := restored.ListChunks(ctx, "c1")
	if err != nil {
		t.Fatalf("ListChunks after load failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "ch1" {
		t.Fatalf("chunks after load = %v, want [ch1]", chunks)
	}

	edges, err := restored.EdgesFrom(ctx, "c1", "n1")
	if err != nil {
		t.Fatalf("EdgesFrom after load failed: %v", err)
	}
	if len(edges) != 1 || edges[0].Provenance.Excerpt != "Alice works for Acme." {
		t.Fatalf("edge provenance not restored: %v", edges)
	}

	// Name indices must be rebuilt: alias lookup and dedup still work.
	nodes, err := restored.FindNodesByName(ctx, "c1", "a.")
	if err != nil {
		t.Fatalf("FindNodesByName after load failed: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "n1" {
		t.Fatalf("alias lookup after load = %v, want [n1]", nodes)
	}
	merged, err := restored.UpsertNode(ctx, "c1", common.Node{ID: "n9", Type: "Person", Name: "alice"})
	if err != nil {
		t.Fatalf("UpsertNode after load failed: %v", err)
	}
	if merged.ID != "n1" {
		t.Fatalf("expected merge into n1 after load, got %q", merged.ID)
	}
}

func TestLoadRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := NewStore().Load(path); err == nil {
		t.Fatalf("expected error loading corrupt snapshot")
	}
}
