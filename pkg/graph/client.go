// Package graph layers ontology gating and traversal on top of the raw
// graph storage. All mutations pass through here; storage backends never
// see an edge the ontology rejected.
package graph

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
	"github.com/OFFIS-RIT/alavista/pkg/store"
)

// Client validates graph writes against an ontology before delegating to
// storage. Reads pass straight through.
type Client struct {
	store    store.GraphStorage
	ontology *ontology.Ontology
}

func NewClient(storage store.GraphStorage, onto *ontology.Ontology) *Client {
	return &Client{store: storage, ontology: onto}
}

// Ontology exposes the catalog the client validates against, for read-only
// introspection (API listing, persona validation).
func (c *Client) Ontology() *ontology.Ontology {
	return c.ontology
}

// UpsertNode resolves the node type through the ontology (aliases
// included) and merges with any existing node of the same normalized name
// and type. An unresolvable type rejects the write.
func (c *Client) UpsertNode(ctx context.Context, corpusID string, node common.Node) (common.Node, error) {
	canonical, ok := c.ontology.ResolveEntityType(node.Type)
	if !ok {
		return common.Node{}, &common.ValidationError{
			Reason: common.RejectUnknownType,
			Source: node.Type,
		}
	}
	node.Type = canonical
	if node.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return common.Node{}, fmt.Errorf("failed to generate node id: %w", err)
		}
		node.ID = id
	}
	now := time.Now().UTC()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = now
	}
	node.UpdatedAt = now
	return c.store.UpsertNode(ctx, corpusID, node)
}

// AddEdge gates an edge against the ontology's domain and range
// constraints. Both endpoints must already exist; a rejection leaves the
// graph untouched.
func (c *Client) AddEdge(ctx context.Context, corpusID string, edge common.Edge) (common.Edge, error) {
	if !c.ontology.HasRelationType(edge.Type) {
		return common.Edge{}, &common.ValidationError{
			Reason:   common.RejectUnknownRelation,
			Relation: edge.Type,
		}
	}
	source, err := c.store.GetNode(ctx, corpusID, edge.SourceID)
	if err != nil {
		return common.Edge{}, fmt.Errorf("failed to load edge source %q: %w", edge.SourceID, err)
	}
	target, err := c.store.GetNode(ctx, corpusID, edge.TargetID)
	if err != nil {
		return common.Edge{}, fmt.Errorf("failed to load edge target %q: %w", edge.TargetID, err)
	}

	relation, _ := c.ontology.RelationInfo(edge.Type)
	if !containsType(relation.Domain, source.Type) {
		return common.Edge{}, &common.ValidationError{
			Reason:   common.RejectDomainMismatch,
			Relation: edge.Type,
			Source:   source.Type,
			Target:   target.Type,
		}
	}
	if !containsType(relation.Range, target.Type) {
		return common.Edge{}, &common.ValidationError{
			Reason:   common.RejectRangeMismatch,
			Relation: edge.Type,
			Source:   source.Type,
			Target:   target.Type,
		}
	}

	if edge.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return common.Edge{}, fmt.Errorf("failed to generate edge id: %w", err)
		}
		edge.ID = id
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	if err := c.store.InsertEdge(ctx, corpusID, edge); err != nil {
		return common.Edge{}, err
	}
	return edge, nil
}

// GetNode looks up a node by id.
func (c *Client) GetNode(ctx context.Context, corpusID, nodeID string) (common.Node, error) {
	return c.store.GetNode(ctx, corpusID, nodeID)
}

// FindNodesByName returns nodes whose normalized name or alias matches.
func (c *Client) FindNodesByName(ctx context.Context, corpusID, name string) ([]common.Node, error) {
	return c.store.FindNodesByName(ctx, corpusID, name)
}

// ListNodes returns all nodes of a corpus, optionally restricted to one
// entity type, ordered by id.
func (c *Client) ListNodes(ctx context.Context, corpusID, entityType string) ([]common.Node, error) {
	if entityType != "" {
		canonical, ok := c.ontology.ResolveEntityType(entityType)
		if !ok {
			return nil, &common.ValidationError{
				Reason: common.RejectUnknownType,
				Source: entityType,
			}
		}
		entityType = canonical
	}
	return c.store.ListNodes(ctx, corpusID, entityType)
}

// DeleteNode removes a node and cascades to its edges.
func (c *Client) DeleteNode(ctx context.Context, corpusID, nodeID string) error {
	return c.store.DeleteNode(ctx, corpusID, nodeID)
}

// DeleteGraph removes every node and edge of a corpus.
func (c *Client) DeleteGraph(ctx context.Context, corpusID string) error {
	return c.store.DeleteGraph(ctx, corpusID)
}

// Stats summarizes a corpus graph.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

func (c *Client) Stats(ctx context.Context, corpusID string) (Stats, error) {
	nodes, err := c.store.CountNodes(ctx, corpusID)
	if err != nil {
		return Stats{}, err
	}
	edges, err := c.store.CountEdges(ctx, corpusID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: nodes, Edges: edges}, nil
}

// NodeStats summarizes a single node's connectivity.
type NodeStats struct {
	Degree          int            `json:"degree"`
	InDegree        int            `json:"in_degree"`
	OutDegree       int            `json:"out_degree"`
	RelationsByType map[string]int `json:"relations_by_type"`
	ConnectedDocs   int            `json:"connected_docs"`
}

func (c *Client) NodeStats(ctx context.Context, corpusID, nodeID string) (NodeStats, error) {
	if _, err := c.store.GetNode(ctx, corpusID, nodeID); err != nil {
		return NodeStats{}, err
	}
	outgoing, err := c.store.EdgesFrom(ctx, corpusID, nodeID)
	if err != nil {
		return NodeStats{}, err
	}
	incoming, err := c.store.EdgesTo(ctx, corpusID, nodeID)
	if err != nil {
		return NodeStats{}, err
	}

	relations := map[string]int{}
	docs := map[string]bool{}
	for _, edge := range append(append([]common.Edge{}, outgoing...), incoming...) {
		relations[edge.Type]++
		if edge.Provenance.DocumentID != "" {
			docs[edge.Provenance.DocumentID] = true
		}
	}
	return NodeStats{
		Degree:          len(outgoing) + len(incoming),
		InDegree:        len(incoming),
		OutDegree:       len(outgoing),
		RelationsByType: relations,
		ConnectedDocs:   len(docs),
	}, nil
}

func containsType(types []string, t string) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
