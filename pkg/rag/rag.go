// Package rag implements graph-guided retrieval: a question is narrowed
// through the entity graph to a document subset before hybrid search runs,
// with a documented fallback to the full corpus when the graph has nothing
// to say.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/graph"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/search"
)

// Category classifies a question's retrieval strategy.
type Category string

const (
	CategoryStructural Category = "structural"
	CategoryTimeline   Category = "timeline"
	CategoryComparison Category = "comparison"
	CategorySemantic   Category = "semantic"
)

// Narrowing caps keep graph expansion bounded on dense graphs.
const (
	maxCandidateNames = 5
	maxNodesPerName   = 2
	pathMaxHops       = 4
)

// GraphContext is one piece of graph evidence attached to an answer,
// either a neighborhood around a resolved entity or a path between two
// of them.
type GraphContext struct {
	ContextType  string               `json:"context_type"`
	Neighborhood *common.Neighborhood `json:"neighborhood,omitempty"`
	Path         *common.Path         `json:"path,omitempty"`
	Summary      string               `json:"summary"`
}

// Evidence is the bundle a synthesis layer receives. NarrowingApplied
// distinguishes graph-narrowed hits from the full-corpus fallback so
// downstream consumers can report provenance honestly.
type Evidence struct {
	DocumentHits     []common.SearchHit `json:"document_hits"`
	GraphContext     []GraphContext     `json:"graph_context"`
	NarrowingApplied bool               `json:"narrowing_applied"`
}

// Retriever wires the graph client, the search engine, and a candidate
// entity extractor into the narrowing pipeline.
type Retriever struct {
	graph     *graph.Client
	engine    *search.Engine
	extractor graph.Extractor
	mode      search.Mode
}

// RetrieverParams configures a Retriever. A nil Extractor falls back to
// the capitalization heuristic; an empty Mode defaults to hybrid.
type RetrieverParams struct {
	Graph     *graph.Client
	Engine    *search.Engine
	Extractor graph.Extractor
	Mode      search.Mode
}

func NewRetriever(params RetrieverParams) *Retriever {
	extractor := params.Extractor
	if extractor == nil {
		extractor = graph.HeuristicExtractor{}
	}
	mode := params.Mode
	if mode == "" {
		mode = search.ModeHybrid
	}
	return &Retriever{
		graph:     params.Graph,
		engine:    params.Engine,
		extractor: extractor,
		mode:      mode,
	}
}

// AnswerEvidence runs the full narrowing pipeline for one question. An
// uninformative graph is never an error: narrowing is skipped and the
// search covers the whole corpus.
func (r *Retriever) AnswerEvidence(ctx context.Context, corpusID, question string, category Category, k int) (Evidence, error) {
	candidates := r.extractor.ExtractCandidateEntities(question)
	if len(candidates) > maxCandidateNames {
		candidates = candidates[:maxCandidateNames]
	}
	depth := depthFor(category)

	var (
		graphContext []GraphContext
		resolved     []common.Node
		docIDs       []string
	)
	seenDocs := map[string]bool{}

	for _, name := range candidates {
		nodes, err := r.graph.FindNodesByName(ctx, corpusID, name)
		if err != nil {
			return Evidence{}, fmt.Errorf("failed to resolve candidate %q: %w", name, err)
		}
		if len(nodes) > maxNodesPerName {
			nodes = nodes[:maxNodesPerName]
		}
		for _, node := range nodes {
			resolved = append(resolved, node)
			neighborhood, err := r.graph.Neighbors(ctx, corpusID, node.ID, depth)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					continue
				}
				return Evidence{}, fmt.Errorf("failed to expand %q: %w", node.ID, err)
			}
			for _, id := range neighborhoodDocIDs(neighborhood) {
				if !seenDocs[id] {
					seenDocs[id] = true
					docIDs = append(docIDs, id)
				}
			}
			graphContext = append(graphContext, GraphContext{
				ContextType:  "neighborhood",
				Neighborhood: &neighborhood,
				Summary:      fmt.Sprintf("Neighborhood of %s (%s)", node.Name, node.Type),
			})
		}
	}

	// A comparison question about two resolved entities also gets the
	// shortest connections between them.
	if category == CategoryComparison && len(resolved) >= 2 {
		paths, truncated, err := r.graph.FindPaths(ctx, corpusID, resolved[0].ID, resolved[1].ID, pathMaxHops)
		if err != nil {
			return Evidence{}, fmt.Errorf("failed to find paths: %w", err)
		}
		if truncated {
			logger.Debug("path enumeration truncated",
				"start", resolved[0].ID, "end", resolved[1].ID)
		}
		for i := range paths {
			graphContext = append(graphContext, GraphContext{
				ContextType: "path",
				Path:        &paths[i],
				Summary:     fmt.Sprintf("Connection between %s and %s", resolved[0].Name, resolved[1].Name),
			})
		}
	}

	narrowed := len(docIDs) > 0
	hits, err := r.engine.SearchDocuments(ctx, corpusID, question, r.mode, k, docIDs)
	if err != nil {
		return Evidence{}, err
	}

	return Evidence{
		DocumentHits:     hits,
		GraphContext:     graphContext,
		NarrowingApplied: narrowed,
	}, nil
}

func depthFor(category Category) int {
	switch category {
	case CategoryComparison, CategoryTimeline:
		return 2
	}
	return 1
}

// neighborhoodDocIDs collects the provenance document ids of a
// neighborhood's edges, plus any document id recorded on node attributes.
func neighborhoodDocIDs(n common.Neighborhood) []string {
	var ids []string
	for _, edge := range n.Edges {
		if edge.Provenance.DocumentID != "" {
			ids = append(ids, edge.Provenance.DocumentID)
		}
	}
	for _, node := range n.Nodes {
		if id, ok := node.Attributes["document_id"]; ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
