package common

import "time"

// Node is an entity in the knowledge graph. Nodes are created on the first
// resolved mention of an entity; later mentions merge into the existing node
// instead of creating duplicates, growing the alias set.
//
// The Type must be a canonical entity type from the ontology catalog; the
// graph layer rejects anything else before it reaches storage.
type Node struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Aliases    []string          `json:"aliases,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Provenance is the evidence trail attached to an edge: the document (and
// optionally chunk, excerpt, page) the claim was extracted from. It is never
// fabricated; an edge without provenance marks an unsupported claim.
type Provenance struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
	Page       int    `json:"page,omitempty"`
}

// Edge is a directed, provenance-bearing relationship between two nodes.
// Edges stay directed even for semantically symmetric relations so that
// traversal stays uniform.
type Edge struct {
	ID               string     `json:"id"`
	Type             string     `json:"type"`
	SourceID         string     `json:"source_id"`
	TargetID         string     `json:"target_id"`
	Provenance       Provenance `json:"provenance"`
	Confidence       float64    `json:"confidence"`
	ExtractionMethod string     `json:"extraction_method"` // "heuristic", "llm"
	CreatedAt        time.Time  `json:"created_at"`
}

// Neighborhood is the result of a bounded breadth-first expansion around a
// center node. Truncated is set when the expansion hit its node cap before
// exhausting the requested depth.
type Neighborhood struct {
	CenterID  string `json:"center_id"`
	Nodes     []Node `json:"nodes"`
	Edges     []Edge `json:"edges"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Path is an ordered node-id sequence from a path search. Paths are computed
// on demand and never stored.
type Path struct {
	NodeIDs []string `json:"node_ids"`
}
