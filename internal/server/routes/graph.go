package routes

import (
	"net/http"
	"strconv"

	"github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateNodeHandler upserts an entity node. The node type is resolved
// through the ontology; unknown types are rejected.
func CreateNodeHandler(c echo.Context) error {
	type createNodeBody struct {
		CorpusID   string            `param:"id" validate:"required"`
		Name       string            `json:"name" validate:"required"`
		Type       string            `json:"type" validate:"required"`
		Aliases    []string          `json:"aliases"`
		Attributes map[string]string `json:"attributes"`
	}

	data := new(createNodeBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	app := c.(*middleware.AppContext).App
	node, err := app.Graph.UpsertNode(c.Request().Context(), data.CorpusID, common.Node{
		Name:       data.Name,
		Type:       data.Type,
		Aliases:    data.Aliases,
		Attributes: data.Attributes,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

// CreateEdgeHandler adds a typed edge between two existing nodes. Domain
// and range constraints from the ontology gate the write.
func CreateEdgeHandler(c echo.Context) error {
	type createEdgeBody struct {
		CorpusID   string            `param:"id" validate:"required"`
		Type       string            `json:"type" validate:"required"`
		SourceID   string            `json:"source_id" validate:"required"`
		TargetID   string            `json:"target_id" validate:"required"`
		Confidence float64           `json:"confidence"`
		Provenance common.Provenance `json:"provenance"`
	}

	data := new(createEdgeBody)
	if err := c.Bind(data); err != nil {
		return invalidBody(c)
	}
	if err := c.Validate(data); err != nil {
		return invalidBody(c)
	}

	app := c.(*middleware.AppContext).App
	edge, err := app.Graph.AddEdge(c.Request().Context(), data.CorpusID, common.Edge{
		Type:             data.Type,
		SourceID:         data.SourceID,
		TargetID:         data.TargetID,
		Confidence:       data.Confidence,
		Provenance:       data.Provenance,
		ExtractionMethod: "manual",
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, edge)
}

// FindEntitiesHandler looks nodes up by name or alias, or lists nodes by
// type when no name is given.
func FindEntitiesHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	corpusID := c.Param("id")

	name := c.QueryParam("name")
	if name != "" {
		nodes, err := app.Graph.FindNodesByName(ctx, corpusID, name)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"nodes": nodes,
		})
	}

	nodes, err := app.Graph.ListNodes(ctx, corpusID, c.QueryParam("type"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"nodes": nodes,
	})
}

// GetNodeHandler returns a single node by ID.
func GetNodeHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	node, err := app.Graph.GetNode(c.Request().Context(), c.Param("id"), c.Param("node_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, node)
}

// DeleteNodeHandler removes a node and its edges.
func DeleteNodeHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	corpusID := c.Param("id")
	nodeID := c.Param("node_id")

	if err := app.Graph.DeleteNode(c.Request().Context(), corpusID, nodeID); err != nil {
		return respondError(c, err)
	}

	logger.Info("Node deleted", "corpus_id", corpusID, "node_id", nodeID)
	return c.JSON(http.StatusOK, messageResponse{
		Message: "Node deleted successfully",
	})
}

// GetNeighborsHandler expands the bounded neighborhood around a node.
func GetNeighborsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	depth := 1
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return invalidBody(c)
		}
		depth = parsed
	}

	neighborhood, err := app.Graph.Neighbors(c.Request().Context(), c.Param("id"), c.Param("node_id"), depth)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, neighborhood)
}

// GetPathsHandler enumerates shortest paths between two nodes. Missing
// endpoints yield an empty result, not an error.
func GetPathsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	start := c.QueryParam("start")
	end := c.QueryParam("end")
	if start == "" || end == "" {
		return invalidBody(c)
	}

	maxHops := 4
	if raw := c.QueryParam("max_hops"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return invalidBody(c)
		}
		maxHops = parsed
	}

	paths, truncated, err := app.Graph.FindPaths(c.Request().Context(), c.Param("id"), start, end, maxHops)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"paths":     paths,
		"truncated": truncated,
	})
}

// GetGraphStatsHandler reports node and edge counts for a corpus.
func GetGraphStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Graph.Stats(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// GetNodeStatsHandler reports degree and provenance statistics for one node.
func GetNodeStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Graph.NodeStats(c.Request().Context(), c.Param("id"), c.Param("node_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
