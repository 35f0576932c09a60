package routes

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GetCorporaHandler lists all corpora.
func GetCorporaHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	corpora, err := app.Corpora.ListCorpora(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"corpora": corpora,
	})
}

// CreateCorpusHandler creates a new corpus.
func CreateCorpusHandler(c echo.Context) error {
	type createCorpusBody struct {
		Type        string            `json:"type" validate:"required,oneof=research profile_manual global"`
		Name        string            `json:"name" validate:"required"`
		Description string            `json:"description"`
		Metadata    map[string]string `json:"metadata"`
	}

	data := new(createCorpusBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	id, err := gonanoid.New()
	if err != nil {
		return respondError(c, err)
	}

	corpus := common.Corpus{
		ID:          id,
		Type:        data.Type,
		Name:        data.Name,
		Description: data.Description,
		Metadata:    data.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	app := c.(*middleware.AppContext).App
	if err := app.Corpora.CreateCorpus(c.Request().Context(), corpus); err != nil {
		return respondError(c, err)
	}

	logger.Info("Corpus created", "corpus_id", corpus.ID, "name", corpus.Name)
	return c.JSON(http.StatusOK, corpus)
}

// GetCorpusHandler returns one corpus by ID.
func GetCorpusHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	corpus, err := app.Corpora.GetCorpus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, corpus)
}

// DeleteCorpusHandler removes a corpus together with its documents, chunks,
// graph, and cached indices.
func DeleteCorpusHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	corpusID := c.Param("id")
	ctx := c.Request().Context()

	if err := app.Corpora.DeleteCorpus(ctx, corpusID); err != nil {
		return respondError(c, err)
	}
	if err := app.Graph.DeleteGraph(ctx, corpusID); err != nil {
		logger.Error("Failed to delete graph for corpus", "corpus_id", corpusID, "err", err)
	}
	if app.Vectors != nil {
		if err := app.Vectors.DeleteCorpus(ctx, corpusID); err != nil {
			logger.Error("Failed to delete embeddings for corpus", "corpus_id", corpusID, "err", err)
		}
	}
	app.Engine.Invalidate(corpusID)

	logger.Info("Corpus deleted", "corpus_id", corpusID)
	return c.JSON(http.StatusOK, messageResponse{
		Message: "Corpus deleted successfully",
	})
}
