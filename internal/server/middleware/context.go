package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/ingest"
	"github.com/OFFIS-RIT/alavista/pkg/persona"
	"github.com/OFFIS-RIT/alavista/pkg/rag"
	"github.com/OFFIS-RIT/alavista/pkg/search"
	"github.com/OFFIS-RIT/alavista/pkg/store"
	"github.com/OFFIS-RIT/alavista/pkg/vector"
)

// App carries the wired collaborators into every request handler.
type App struct {
	Corpora   store.CorpusStorage
	Graph     *graph.Client
	Engine    *search.Engine
	Retriever *rag.Retriever
	Personas  *persona.Registry
	Runtime   *persona.Runtime
	Ingest    *ingest.Service
	Vectors   vector.Index

	// Queue is non-nil when asynchronous ingestion via RabbitMQ is
	// enabled; otherwise documents are ingested in-request.
	Queue *amqp091.Channel
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
