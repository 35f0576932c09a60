package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/alavista/internal/server/middleware"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"

	"github.com/labstack/echo/v4"
)

// GetOntologyHandler returns the loaded type catalog: permitted entity
// types and relation types with their domain and range constraints.
func GetOntologyHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	onto := app.Graph.Ontology()

	type entityEntry struct {
		Name string `json:"name"`
		ontology.EntityType
	}
	type relationEntry struct {
		Name string `json:"name"`
		ontology.RelationType
	}

	entities := make([]entityEntry, 0)
	for _, name := range onto.EntityTypes() {
		info, _ := onto.EntityInfo(name)
		entities = append(entities, entityEntry{Name: name, EntityType: info})
	}
	relations := make([]relationEntry, 0)
	for _, name := range onto.RelationTypes() {
		info, _ := onto.RelationInfo(name)
		relations = append(relations, relationEntry{Name: name, RelationType: info})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"entities":  entities,
		"relations": relations,
	})
}
