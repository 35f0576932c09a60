package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/logger"

	"github.com/labstack/echo/v4"
)

type messageResponse struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// respondError maps domain errors onto HTTP statuses. Ontology rejections
// are client errors and carry the reject reason; missing resources are 404;
// everything else is an internal error.
func respondError(c echo.Context, err error) error {
	var validation *common.ValidationError
	if errors.As(err, &validation) {
		return c.JSON(http.StatusUnprocessableEntity, messageResponse{
			Message: "Rejected by ontology validation",
			Reason:  string(validation.Reason),
		})
	}
	if errors.Is(err, common.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{
			Message: "Not found",
		})
	}
	var config *common.ConfigurationError
	if errors.As(err, &config) {
		logger.Error("Configuration error", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{
			Message: "Internal server error",
		})
	}
	logger.Error("Request failed", "err", err)
	return c.JSON(http.StatusInternalServerError, messageResponse{
		Message: "Internal server error",
	})
}

func invalidBody(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, messageResponse{
		Message: "Invalid request body",
	})
}
