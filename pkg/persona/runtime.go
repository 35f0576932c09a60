package persona

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/rag"
	"github.com/OFFIS-RIT/alavista/pkg/search"
)

// Answer is the structured result of one persona-scoped question.
type Answer struct {
	AnswerText       string             `json:"answer_text"`
	Evidence         []common.SearchHit `json:"evidence"`
	GraphEvidence    []rag.GraphContext `json:"graph_evidence"`
	ReasoningSummary string             `json:"reasoning_summary"`
	PersonaID        string             `json:"persona_id"`
	Category         QuestionCategory   `json:"category"`
	NarrowingApplied bool               `json:"narrowing_applied"`
	Disclaimers      []string           `json:"disclaimers"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Runtime executes persona-scoped question answering: classify, route to
// graph-guided or direct retrieval, assemble the evidence bundle.
type Runtime struct {
	registry  *Registry
	engine    *search.Engine
	retriever *rag.Retriever
}

func NewRuntime(registry *Registry, engine *search.Engine, retriever *rag.Retriever) *Runtime {
	return &Runtime{registry: registry, engine: engine, retriever: retriever}
}

const answerLimit = 10

// AnswerQuestion answers one question under a persona. Structural,
// timeline, and comparison questions route through graph-guided
// retrieval; semantic ones go straight to hybrid search.
func (r *Runtime) AnswerQuestion(ctx context.Context, personaID, question, corpusID string, k int) (Answer, error) {
	persona, ok := r.registry.Get(personaID)
	if !ok {
		return Answer{}, common.NotFoundf("persona %q not found", personaID)
	}

	category := persona.Categorize(question)
	tools := persona.SelectTools(category)
	logger.Info("question categorized",
		"persona", personaID, "category", category.Category,
		"confidence", category.Confidence, "tools", strings.Join(tools, ","))

	var evidence rag.Evidence
	switch rag.Category(category.Category) {
	case rag.CategoryStructural, rag.CategoryTimeline, rag.CategoryComparison:
		var err error
		evidence, err = r.retriever.AnswerEvidence(ctx, corpusID, question, rag.Category(category.Category), k)
		if err != nil {
			return Answer{}, fmt.Errorf("graph-guided retrieval failed: %w", err)
		}
	default:
		mode := search.ModeLexical
		if contains(tools, ToolSemanticSearch) {
			mode = search.ModeHybrid
		}
		hits, err := r.engine.Search(ctx, corpusID, question, mode, k)
		if err != nil {
			return Answer{}, err
		}
		evidence = rag.Evidence{DocumentHits: hits}
	}

	answer := Answer{
		AnswerText:       constructAnswer(question, evidence, persona),
		Evidence:         limitHits(evidence.DocumentHits, answerLimit),
		GraphEvidence:    limitContext(evidence.GraphContext, answerLimit),
		ReasoningSummary: fmt.Sprintf("Used %s approach with tools: %s", category.Category, strings.Join(tools, ", ")),
		PersonaID:        personaID,
		Category:         category,
		NarrowingApplied: evidence.NarrowingApplied,
		Disclaimers:      persona.Safety.Disclaimers,
		Timestamp:        time.Now().UTC(),
	}
	return answer, nil
}

// constructAnswer summarizes the evidence bundle as text. Synthesis via a
// language model happens in a separate layer; this core only reports what
// the retrieval found.
func constructAnswer(question string, evidence rag.Evidence, persona *Persona) string {
	if len(evidence.DocumentHits) == 0 && len(evidence.GraphContext) == 0 {
		return fmt.Sprintf(
			"No sufficient evidence found in the knowledge graph or document corpus to answer: %q.",
			question)
	}

	var parts []string
	if len(evidence.GraphContext) > 0 {
		var names []string
		for _, ctx := range evidence.GraphContext {
			if ctx.Neighborhood == nil {
				continue
			}
			for _, node := range ctx.Neighborhood.Nodes {
				names = append(names, node.Name)
				if len(names) == 5 {
					break
				}
			}
			if len(names) == 5 {
				break
			}
		}
		if len(names) > 0 {
			parts = append(parts, fmt.Sprintf(
				"The knowledge graph shows relationships involving: %s.", strings.Join(names, ", ")))
		}
	}
	if len(evidence.DocumentHits) > 0 {
		parts = append(parts, fmt.Sprintf(
			"Found %d relevant document(s). Most relevant excerpt: %s",
			len(evidence.DocumentHits), evidence.DocumentHits[0].Excerpt))
	}
	parts = append(parts, fmt.Sprintf(
		"This answer combines graph structure analysis with document retrieval using the %q profile.",
		persona.Name))
	return strings.Join(parts, " ")
}

func limitHits(hits []common.SearchHit, n int) []common.SearchHit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

func limitContext(contexts []rag.GraphContext, n int) []rag.GraphContext {
	if len(contexts) > n {
		return contexts[:n]
	}
	return contexts
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
