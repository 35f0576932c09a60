package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/pkg/search"

	"github.com/labstack/echo/v4"
)

// SearchHandler runs a lexical, vector, or hybrid search over a corpus.
func SearchHandler(c echo.Context) error {
	type searchBody struct {
		CorpusID string `param:"id" validate:"required"`
		Query    string `json:"query" validate:"required"`
		Mode     string `json:"mode"`
		K        int    `json:"k"`
	}

	data := new(searchBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	mode, err := search.ParseMode(data.Mode)
	if err != nil {
		return invalidBody(c)
	}

	k := data.K
	if k <= 0 {
		k = 10
	}

	app := c.(*middleware.AppContext).App
	hits, err := app.Engine.Search(c.Request().Context(), data.CorpusID, data.Query, mode, k)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"hits": hits,
		"mode": string(mode),
	})
}
