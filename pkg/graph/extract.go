package graph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/alavista/pkg/ai"
	"github.com/OFFIS-RIT/alavista/pkg/common"
	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
)

// Extractor finds candidate entity names in free text. Implementations are
// intentionally swappable: the default heuristic favors precision over
// recall, and a stronger extractor can replace it without the narrowing
// logic changing.
type Extractor interface {
	ExtractCandidateEntities(text string) []string
}

// questionWords are excluded from candidate extraction: in an English
// question they are capitalized by position, not because they name
// anything.
var questionWords = map[string]bool{
	"What": true, "When": true, "Where": true, "Who": true,
	"Why": true, "How": true, "Which": true,
	"The": true, "A": true, "An": true,
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// HeuristicExtractor pulls capitalized single tokens and capitalized
// bigrams out of the text, skipping question words. Order follows first
// occurrence; duplicates are dropped.
type HeuristicExtractor struct{}

func (HeuristicExtractor) ExtractCandidateEntities(text string) []string {
	words := strings.Fields(text)
	cleaned := make([]string, len(words))
	for i, word := range words {
		cleaned[i] = nonWordRe.ReplaceAllString(word, "")
	}

	seen := map[string]bool{}
	var candidates []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			candidates = append(candidates, name)
		}
	}

	for _, word := range cleaned {
		if isCapitalized(word) && !questionWords[word] {
			add(word)
		}
	}
	for i := 0; i+1 < len(cleaned); i++ {
		first, second := cleaned[i], cleaned[i+1]
		if isCapitalized(first) && isCapitalized(second) && !questionWords[first] {
			add(first + " " + second)
		}
	}
	return candidates
}

func isCapitalized(word string) bool {
	if word == "" {
		return false
	}
	runes := []rune(word)
	return unicode.IsUpper(runes[0])
}

type extractedEntity struct {
	Name        string `json:"name" jsonschema_description:"Canonical name of the entity as it appears in the text"`
	Type        string `json:"type" jsonschema_description:"One of the provided entity types"`
	Description string `json:"description" jsonschema_description:"Short description of the entity based only on the text"`
}

type extractedRelation struct {
	SourceName string  `json:"source_name" jsonschema_description:"Name of the source entity, as identified above"`
	TargetName string  `json:"target_name" jsonschema_description:"Name of the target entity, as identified above"`
	Type       string  `json:"type" jsonschema_description:"One of the provided relation types"`
	Confidence float64 `json:"confidence" jsonschema_description:"Confidence in this relation between 0 and 1"`
}

type extractionResponse struct {
	Entities  []extractedEntity   `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relations []extractedRelation `json:"relations" jsonschema_description:"Relations identified in the text"`
}

const extractSystemPrompt = `You are an information extraction system for investigative document analysis.
Identify the entities mentioned in the provided text and the relations between them.

Allowed entity types: %s
Allowed relation types: %s

Only use the allowed types. Only report entities and relations that the text itself supports.`

// LLMExtractor asks a language model for typed entities and relations,
// then filters the response through the ontology. Entities with an
// unresolvable type and relations failing domain/range validation are
// dropped silently; extraction is best-effort and must never poison the
// graph.
type LLMExtractor struct {
	client   ai.GraphAIClient
	ontology *ontology.Ontology
}

func NewLLMExtractor(client ai.GraphAIClient, onto *ontology.Ontology) *LLMExtractor {
	return &LLMExtractor{client: client, ontology: onto}
}

// ExtractCandidateEntities satisfies Extractor using only the entity names
// from a full extraction pass.
func (e *LLMExtractor) ExtractCandidateEntities(text string) []string {
	result, err := e.Extract(context.Background(), text)
	if err != nil {
		logger.Warn("llm candidate extraction failed, falling back to heuristic", "error", err)
		return HeuristicExtractor{}.ExtractCandidateEntities(text)
	}
	names := make([]string, 0, len(result.Entities))
	for _, entity := range result.Entities {
		names = append(names, entity.Name)
	}
	return names
}

// ExtractionResult is an ontology-filtered extraction from one text unit.
type ExtractionResult struct {
	Entities  []ExtractedEntity
	Relations []ExtractedRelation
}

type ExtractedEntity struct {
	Name        string
	Type        string
	Description string
}

type ExtractedRelation struct {
	SourceName string
	TargetName string
	Type       string
	Confidence float64
}

// Extract runs the model over one text unit and keeps only ontology-valid
// entities and relations.
func (e *LLMExtractor) Extract(ctx context.Context, text string) (ExtractionResult, error) {
	systemPrompt := fmt.Sprintf(
		extractSystemPrompt,
		strings.Join(e.ontology.EntityTypes(), ", "),
		strings.Join(e.ontology.RelationTypes(), ", "),
	)

	var response extractionResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"extract_entities_and_relations",
		systemPrompt,
		text,
		&response,
	)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("failed to extract entities: %w", err)
	}

	var result ExtractionResult
	typeByName := map[string]string{}
	for _, entity := range response.Entities {
		canonical, ok := e.ontology.ResolveEntityType(entity.Type)
		if !ok {
			logger.Debug("discarding entity with unknown type", "name", entity.Name, "type", entity.Type)
			continue
		}
		typeByName[common.NormalizeName(entity.Name)] = canonical
		result.Entities = append(result.Entities, ExtractedEntity{
			Name:        entity.Name,
			Type:        canonical,
			Description: entity.Description,
		})
	}
	for _, relation := range response.Relations {
		sourceType, sourceOK := typeByName[common.NormalizeName(relation.SourceName)]
		targetType, targetOK := typeByName[common.NormalizeName(relation.TargetName)]
		if !sourceOK || !targetOK {
			continue
		}
		if !e.ontology.ValidateRelation(sourceType, relation.Type, targetType) {
			logger.Debug("discarding invalid relation",
				"relation", relation.Type, "source", sourceType, "target", targetType)
			continue
		}
		result.Relations = append(result.Relations, ExtractedRelation(relation))
	}
	return result, nil
}
