package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/alavista/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// AnswerHandler answers a question under a persona's reasoning policy,
// returning the evidence bundle alongside the answer text.
func AnswerHandler(c echo.Context) error {
	type answerBody struct {
		PersonaID string `json:"persona_id" validate:"required"`
		Question  string `json:"question" validate:"required"`
		CorpusID  string `json:"corpus_id" validate:"required"`
		K         int    `json:"k"`
	}

	data := new(answerBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	k := data.K
	if k <= 0 {
		k = 10
	}

	app := c.(*middleware.AppContext).App
	answer, err := app.Runtime.AnswerQuestion(c.Request().Context(), data.PersonaID, data.Question, data.CorpusID, k)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, answer)
}

// GetPersonasHandler lists the loaded persona profiles.
func GetPersonasHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, map[string]any{
		"personas": app.Personas.Summaries(),
	})
}
