// Package persona implements analysis profiles: declarative YAML
// configurations that classify questions, whitelist entity and relation
// types, and gate which retrieval tools a question may use.
package persona

import (
	"regexp"
	"strings"
)

// Tool names a persona may whitelist.
const (
	ToolSemanticSearch  = "semantic_search"
	ToolKeywordSearch   = "keyword_search"
	ToolGraphFindEntity = "graph_find_entity"
	ToolGraphNeighbors  = "graph_neighbors"
	ToolGraphPaths      = "graph_paths"
)

// Config is one analysis profile as loaded from YAML. Whitelists are
// validated against the ontology at load time so a malformed profile
// fails startup, not a query.
type Config struct {
	ID          string `yaml:"id" validate:"required"`
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`

	EntityWhitelist   []string            `yaml:"entity_whitelist"`
	RelationWhitelist []string            `yaml:"relation_whitelist"`
	StrengthRules     map[string][]string `yaml:"strength_rules"`
	ToolsAllowed      []string            `yaml:"tools_allowed"`

	Reasoning ReasoningConfig `yaml:"reasoning"`
	Safety    SafetyConfig    `yaml:"safety"`
}

type ReasoningConfig struct {
	Approach string `yaml:"approach"`
}

type SafetyConfig struct {
	Disclaimers        []string `yaml:"disclaimers"`
	ProvenanceRequired bool     `yaml:"provenance_required"`
}

// Persona wraps a validated Config with the classification and tool
// selection behavior.
type Persona struct {
	Config

	allowedTools map[string]bool
}

func newPersona(config Config) *Persona {
	allowed := make(map[string]bool, len(config.ToolsAllowed))
	for _, tool := range config.ToolsAllowed {
		allowed[tool] = true
	}
	return &Persona{Config: config, allowedTools: allowed}
}

// QuestionCategory is a classification of one question.
type QuestionCategory struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Patterns are matched against the lowercased question, in priority
// order: structural beats timeline beats comparison; anything else is
// semantic.
var (
	structuralPatterns = compileAll(
		`\bconnected to\b`,
		`\brelationship\b`,
		`\bpath\b`,
		`\blinks?\b`,
		`\bassociat(ed|ion)\b`,
		`\btie(s|d)? to\b`,
		`\bnetwork\b`,
	)
	timelinePatterns = compileAll(
		`\bover time\b`,
		`\btimeline\b`,
		`\bwhen\b`,
		`\bdate(s)?\b`,
		`\bchronolog`,
		`\bhistor`,
		`\bevolution\b`,
		`\b\d{4}\b`,
	)
	comparisonPatterns = compileAll(
		`\bcompare\b`,
		`\bvs\.?\b`,
		`\bversus\b`,
		`\bdifference(s)?\b`,
		`\bsimilarit(y|ies)\b`,
		`\bsimilar\b`,
		`\bcontrast\b`,
		`\bbetter\b`,
		`\bworse\b`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		compiled[i] = regexp.MustCompile(pattern)
	}
	return compiled
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Categorize classifies a question by its retrieval strategy.
func (p *Persona) Categorize(question string) QuestionCategory {
	lowered := strings.ToLower(question)
	switch {
	case matchesAny(structuralPatterns, lowered):
		return QuestionCategory{
			Category:   "structural",
			Confidence: 0.8,
			Reasoning:  "question contains connectivity keywords",
		}
	case matchesAny(timelinePatterns, lowered):
		return QuestionCategory{
			Category:   "timeline",
			Confidence: 0.7,
			Reasoning:  "question contains temporal keywords",
		}
	case matchesAny(comparisonPatterns, lowered):
		return QuestionCategory{
			Category:   "comparison",
			Confidence: 0.7,
			Reasoning:  "question contains contrastive keywords",
		}
	}
	return QuestionCategory{
		Category:   "semantic",
		Confidence: 0.5,
		Reasoning:  "no specific patterns matched, defaulting to semantic search",
	}
}

// SelectTools picks the tools suited to a question category, filtered by
// the persona's whitelist. A tool outside the whitelist is dropped
// silently, never substituted.
func (p *Persona) SelectTools(category QuestionCategory) []string {
	var preferred []string
	switch category.Category {
	case "structural":
		preferred = []string{ToolGraphFindEntity, ToolGraphNeighbors, ToolGraphPaths, ToolSemanticSearch}
	case "timeline":
		preferred = []string{ToolSemanticSearch, ToolKeywordSearch}
	case "comparison":
		preferred = []string{ToolSemanticSearch, ToolGraphNeighbors}
	default:
		preferred = []string{ToolSemanticSearch, ToolKeywordSearch}
	}

	var tools []string
	for _, tool := range preferred {
		if p.allowedTools[tool] {
			tools = append(tools, tool)
		}
	}
	return tools
}

// AllowsRelation reports whether a relation type is in the persona's
// whitelist. An empty whitelist allows everything.
func (p *Persona) AllowsRelation(relationType string) bool {
	if len(p.RelationWhitelist) == 0 {
		return true
	}
	for _, allowed := range p.RelationWhitelist {
		if allowed == relationType {
			return true
		}
	}
	return false
}

// StrengthOf classifies the evidential strength of a relation type per
// the persona's strength rules; unclassified relations report "unrated".
func (p *Persona) StrengthOf(relationType string) string {
	for strength, relations := range p.StrengthRules {
		for _, relation := range relations {
			if relation == relationType {
				return strength
			}
		}
	}
	return "unrated"
}
