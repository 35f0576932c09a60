package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/alavista/internal/queue"
	"github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AddDocumentHandler ingests a document into a corpus. When a queue channel
// is wired the document is published for the worker; otherwise ingestion
// runs in-request.
func AddDocumentHandler(c echo.Context) error {
	type addDocumentBody struct {
		CorpusID string            `param:"id" validate:"required"`
		Text     string            `json:"text" validate:"required"`
		Metadata map[string]string `json:"metadata"`
	}

	data := new(addDocumentBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	if _, err := app.Corpora.GetCorpus(ctx, data.CorpusID); err != nil {
		return respondError(c, err)
	}

	if app.Queue != nil {
		msg := queue.IngestMessage{
			CorpusID: data.CorpusID,
			Text:     data.Text,
			Metadata: data.Metadata,
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return respondError(c, err)
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, body); err != nil {
			logger.Error("Failed to publish ingest message", "corpus_id", data.CorpusID, "err", err)
			return respondError(c, err)
		}
		return c.JSON(http.StatusAccepted, messageResponse{
			Message: "Document queued for ingestion",
		})
	}

	result, err := app.Ingest.IngestDocument(ctx, data.CorpusID, data.Text, data.Metadata)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetDocumentsHandler lists the documents of a corpus.
func GetDocumentsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	corpusID := c.Param("id")

	if _, err := app.Corpora.GetCorpus(ctx, corpusID); err != nil {
		return respondError(c, err)
	}

	docs, err := app.Corpora.ListDocuments(ctx, corpusID)
	if err != nil {
		return respondError(c, err)
	}

	type documentSummary struct {
		ID          string            `json:"id"`
		ContentHash string            `json:"content_hash"`
		Metadata    map[string]string `json:"metadata,omitempty"`
		CreatedAt   string            `json:"created_at"`
	}
	summaries := make([]documentSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, documentSummary{
			ID:          doc.ID,
			ContentHash: doc.ContentHash,
			Metadata:    doc.Metadata,
			CreatedAt:   doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"documents": summaries,
	})
}
