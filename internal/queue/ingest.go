package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/alavista/pkg/ingest"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
)

// IngestMessage is the payload published to the ingest queue. The worker
// unmarshals it and runs the full ingestion pipeline for the document.
type IngestMessage struct {
	CorpusID string            `json:"corpus_id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func ProcessIngestMessage(
	ctx context.Context,
	svc *ingest.Service,
	msgBody string,
) error {
	var data IngestMessage
	if err := json.Unmarshal([]byte(msgBody), &data); err != nil {
		return fmt.Errorf("failed to unmarshal ingest message: %w", err)
	}

	if data.CorpusID == "" {
		return fmt.Errorf("ingest message missing corpus_id")
	}

	result, err := svc.IngestDocument(ctx, data.CorpusID, data.Text, data.Metadata)
	if err != nil {
		return fmt.Errorf("failed to ingest document for corpus %s: %w", data.CorpusID, err)
	}

	if result.Deduplicated {
		logger.Info("[Queue] Document already ingested", "corpus_id", data.CorpusID, "document_id", result.DocumentID)
		return nil
	}

	logger.Info(
		"[Queue] Document ingested",
		"corpus_id", data.CorpusID,
		"document_id", result.DocumentID,
		"chunks", result.Chunks,
		"nodes", result.NodesUpserted,
		"edges_added", result.EdgesAdded,
		"edges_rejected", result.EdgesRejected,
	)

	return nil
}
