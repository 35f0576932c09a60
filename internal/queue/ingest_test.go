package queue

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/ingest"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
	"github.com/OFFIS-RIT/alavista/pkg/store/memory"
)

const testCatalog = `{
	"entities": {
		"Concept": {},
		"Document": {}
	},
	"relations": {
		"APPEARS_IN": {"domain": ["Concept"], "range": ["Document"]},
		"MENTIONED_WITH": {"domain": ["Concept"], "range": ["Concept"]}
	}
}`

type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func newTestService(t *testing.T) (*ingest.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	if err := store.CreateCorpus(ctx, common.Corpus{ID: "c1", Type: "research", Name: "case"}); err != nil {
		t.Fatalf("CreateCorpus failed: %v", err)
	}
	onto, err := ontology.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("ontology.Parse failed: %v", err)
	}
	svc := ingest.NewService(ingest.ServiceParams{
		Corpora: store,
		Graph:   graph.NewClient(store, onto),
		Chunker: ingest.NewChunker(wordCounter{}, 100),
	})
	return svc, store
}

func TestProcessIngestMessage(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	body, err := json.Marshal(IngestMessage{
		CorpusID: "c1",
		Text:     "Weber met Acme.",
		Metadata: map[string]string{"source": "report"},
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if err := ProcessIngestMessage(ctx, svc, string(body)); err != nil {
		t.Fatalf("ProcessIngestMessage failed: %v", err)
	}

	docs, err := store.ListDocuments(ctx, "c1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if docs[0].Metadata["source"] != "report" {
		t.Fatalf("metadata not persisted: %v", docs[0].Metadata)
	}

	// A redelivery of the same message deduplicates instead of failing.
	if err := ProcessIngestMessage(ctx, svc, string(body)); err != nil {
		t.Fatalf("redelivered ProcessIngestMessage failed: %v", err)
	}
	docs, err = store.ListDocuments(ctx, "c1")
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("redelivery created a second document")
	}
}

func TestProcessIngestMessageRejectsBadPayloads(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"corpus_id": `},
		{name: "missing corpus id", body: `{"text": "some text"}`},
		{name: "unknown corpus", body: `{"corpus_id": "missing", "text": "some text"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ProcessIngestMessage(context.Background(), svc, tt.body); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}
