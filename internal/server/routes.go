package server

import (
	"github.com/OFFIS-RIT/alavista/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Ontology and persona catalogs
	apiRoutes.GET("/ontology", routes.GetOntologyHandler)
	apiRoutes.GET("/personas", routes.GetPersonasHandler)

	// Corpus routes
	apiRoutes.GET("/corpora", routes.GetCorporaHandler)
	apiRoutes.POST("/corpora", routes.CreateCorpusHandler)
	apiRoutes.GET("/corpora/:id", routes.GetCorpusHandler)
	apiRoutes.DELETE("/corpora/:id", routes.DeleteCorpusHandler)

	// Document routes
	apiRoutes.GET("/corpora/:id/documents", routes.GetDocumentsHandler)
	apiRoutes.POST("/corpora/:id/documents", routes.AddDocumentHandler)

	// Graph routes
	apiRoutes.GET("/corpora/:id/graph/nodes", routes.FindEntitiesHandler)
	apiRoutes.POST("/corpora/:id/graph/nodes", routes.CreateNodeHandler)
	apiRoutes.GET("/corpora/:id/graph/nodes/:node_id", routes.GetNodeHandler)
	apiRoutes.DELETE("/corpora/:id/graph/nodes/:node_id", routes.DeleteNodeHandler)
	apiRoutes.GET("/corpora/:id/graph/nodes/:node_id/neighbors", routes.GetNeighborsHandler)
	apiRoutes.GET("/corpora/:id/graph/nodes/:node_id/stats", routes.GetNodeStatsHandler)
	apiRoutes.POST("/corpora/:id/graph/edges", routes.CreateEdgeHandler)
	apiRoutes.GET("/corpora/:id/graph/paths", routes.GetPathsHandler)
	apiRoutes.GET("/corpora/:id/graph/stats", routes.GetGraphStatsHandler)

	// Retrieval routes
	apiRoutes.POST("/corpora/:id/search", routes.SearchHandler)
	apiRoutes.POST("/answers", routes.AnswerHandler)
}
