package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/OFFIS-RIT/alavista/pkg/logger"
	"github.com/OFFIS-RIT/alavista/pkg/ontology"
)

// Registry loads and holds validated personas. All validation happens at
// load time against the ontology, so a bad profile aborts startup instead
// of surfacing mid-query.
type Registry struct {
	ontology     *ontology.Ontology
	allowedTools map[string]bool
	validate     *validator.Validate

	personas map[string]*Persona
}

// knownTools is the default tool universe when no explicit restriction is
// configured.
var knownTools = []string{
	ToolSemanticSearch,
	ToolKeywordSearch,
	ToolGraphFindEntity,
	ToolGraphNeighbors,
	ToolGraphPaths,
}

// NewRegistry creates an empty registry. allowedTools restricts which
// tools personas may reference; nil means the full known set.
func NewRegistry(onto *ontology.Ontology, allowedTools []string) *Registry {
	if allowedTools == nil {
		allowedTools = knownTools
	}
	allowed := make(map[string]bool, len(allowedTools))
	for _, tool := range allowedTools {
		allowed[tool] = true
	}
	return &Registry{
		ontology:     onto,
		allowedTools: allowed,
		validate:     validator.New(),
		personas:     make(map[string]*Persona),
	}
}

// LoadDir loads every *.yaml / *.yml profile in a directory. A missing
// directory is a warning, not an error; a malformed profile is fatal.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("persona directory does not exist", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to read persona directory %q: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
		loaded++
	}
	logger.Info("loaded personas", "count", loaded, "dir", dir)
	return nil
}

// LoadFile loads and validates a single persona profile.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read persona file %q: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse persona file %q: %w", path, err)
	}
	if err := r.validate.Struct(config); err != nil {
		return fmt.Errorf("invalid persona file %q: %w", path, err)
	}
	if err := r.validateConfig(config); err != nil {
		return fmt.Errorf("invalid persona %q: %w", config.ID, err)
	}

	r.personas[config.ID] = newPersona(config)
	logger.Info("loaded persona", "id", config.ID, "name", config.Name)
	return nil
}

func (r *Registry) validateConfig(config Config) error {
	for _, entityType := range config.EntityWhitelist {
		if !r.ontology.HasEntityType(entityType) {
			return fmt.Errorf("unknown entity type %q in whitelist", entityType)
		}
	}
	for _, relationType := range config.RelationWhitelist {
		if !r.ontology.HasRelationType(relationType) {
			return fmt.Errorf("unknown relation type %q in whitelist", relationType)
		}
	}
	for _, tool := range config.ToolsAllowed {
		if !r.allowedTools[tool] {
			return fmt.Errorf("unknown tool %q", tool)
		}
	}
	whitelisted := make(map[string]bool, len(config.RelationWhitelist))
	for _, relationType := range config.RelationWhitelist {
		whitelisted[relationType] = true
	}
	for strength, relations := range config.StrengthRules {
		for _, relation := range relations {
			if !whitelisted[relation] {
				return fmt.Errorf(
					"strength rule %q references relation %q outside relation_whitelist",
					strength, relation)
			}
		}
	}
	return nil
}

// Get returns a persona by id.
func (r *Registry) Get(id string) (*Persona, bool) {
	persona, ok := r.personas[id]
	return persona, ok
}

// List returns all personas ordered by id.
func (r *Registry) List() []*Persona {
	out := make([]*Persona, 0, len(r.personas))
	for _, persona := range r.personas {
		out = append(out, persona)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary is the API-safe view of a persona.
type Summary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	EntityTypes   []string `json:"entity_types"`
	RelationTypes []string `json:"relation_types"`
	Tools         []string `json:"tools"`
}

// Summaries lists API-safe views of all personas, ordered by id.
func (r *Registry) Summaries() []Summary {
	personas := r.List()
	out := make([]Summary, 0, len(personas))
	for _, persona := range personas {
		out = append(out, Summary{
			ID:            persona.ID,
			Name:          persona.Name,
			Description:   persona.Description,
			EntityTypes:   persona.EntityWhitelist,
			RelationTypes: persona.RelationWhitelist,
			Tools:         persona.ToolsAllowed,
		})
	}
	return out
}
