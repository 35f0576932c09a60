// Package ontology holds the static catalog of permitted entity and relation
// types. The catalog is loaded once at startup and shared read-only across
// the process; every graph mutation is validated against it.
package ontology

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EntityType is a catalog entry for one permitted node type.
type EntityType struct {
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
}

// RelationType is a catalog entry for one permitted edge type. Domain and
// Range list the entity types allowed as source and target endpoints.
type RelationType struct {
	Description string   `json:"description,omitempty"`
	Domain      []string `json:"domain"`
	Range       []string `json:"range"`
}

type catalog struct {
	Entities  map[string]EntityType   `json:"entities"`
	Relations map[string]RelationType `json:"relations"`
}

// Ontology is an immutable type catalog. It is safe for concurrent use
// without locking because it is never mutated after Load.
type Ontology struct {
	entities  map[string]EntityType
	relations map[string]RelationType

	// aliasIndex maps normalized canonical names and aliases to the
	// canonical entity type name.
	aliasIndex map[string]string

	domainIndex map[string]map[string]struct{}
	rangeIndex  map[string]map[string]struct{}
}

// Load reads and validates an ontology catalog from a JSON file. A catalog
// that cannot be parsed or references unknown entity types in a relation's
// domain or range is a startup defect and returns an error.
func Load(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ontology catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds an Ontology from raw JSON catalog data.
func Parse(data []byte) (*Ontology, error) {
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse ontology catalog: %w", err)
	}
	if len(c.Entities) == 0 {
		return nil, fmt.Errorf("ontology catalog defines no entity types")
	}

	o := &Ontology{
		entities:    c.Entities,
		relations:   c.Relations,
		aliasIndex:  make(map[string]string),
		domainIndex: make(map[string]map[string]struct{}, len(c.Relations)),
		rangeIndex:  make(map[string]map[string]struct{}, len(c.Relations)),
	}

	for name, info := range c.Entities {
		key := normalize(name)
		if existing, ok := o.aliasIndex[key]; ok && existing != name {
			return nil, fmt.Errorf("ontology entity type %q collides with %q", name, existing)
		}
		o.aliasIndex[key] = name
		for _, alias := range info.Aliases {
			aliasKey := normalize(alias)
			if existing, ok := o.aliasIndex[aliasKey]; ok && existing != name {
				return nil, fmt.Errorf("ontology alias %q of %q collides with %q", alias, name, existing)
			}
			o.aliasIndex[aliasKey] = name
		}
	}

	for name, rel := range c.Relations {
		if len(rel.Domain) == 0 || len(rel.Range) == 0 {
			return nil, fmt.Errorf("ontology relation %q has an empty domain or range", name)
		}
		domain := make(map[string]struct{}, len(rel.Domain))
		for _, t := range rel.Domain {
			if _, ok := c.Entities[t]; !ok {
				return nil, fmt.Errorf("ontology relation %q domain references unknown entity type %q", name, t)
			}
			domain[t] = struct{}{}
		}
		rng := make(map[string]struct{}, len(rel.Range))
		for _, t := range rel.Range {
			if _, ok := c.Entities[t]; !ok {
				return nil, fmt.Errorf("ontology relation %q range references unknown entity type %q", name, t)
			}
			rng[t] = struct{}{}
		}
		o.domainIndex[name] = domain
		o.rangeIndex[name] = rng
	}

	return o, nil
}

// EntityTypes returns the canonical entity type names, sorted.
func (o *Ontology) EntityTypes() []string {
	out := make([]string, 0, len(o.entities))
	for name := range o.entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RelationTypes returns the canonical relation type names, sorted.
func (o *Ontology) RelationTypes() []string {
	out := make([]string, 0, len(o.relations))
	for name := range o.relations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasEntityType reports whether name is a canonical entity type.
func (o *Ontology) HasEntityType(name string) bool {
	_, ok := o.entities[name]
	return ok
}

// HasRelationType reports whether name is a canonical relation type.
func (o *Ontology) HasRelationType(name string) bool {
	_, ok := o.relations[name]
	return ok
}

// EntityInfo returns the catalog entry for a canonical entity type.
func (o *Ontology) EntityInfo(name string) (EntityType, bool) {
	info, ok := o.entities[name]
	return info, ok
}

// RelationInfo returns the catalog entry for a canonical relation type.
func (o *Ontology) RelationInfo(name string) (RelationType, bool) {
	info, ok := o.relations[name]
	return info, ok
}

// ResolveEntityType maps a name or alias to its canonical entity type.
// Matching is case- and whitespace-insensitive. The second return value is
// false when nothing matches; that is an expected miss, not an error.
func (o *Ontology) ResolveEntityType(nameOrAlias string) (string, bool) {
	canonical, ok := o.aliasIndex[normalize(nameOrAlias)]
	return canonical, ok
}

// ValidateRelation reports whether relationType is known and sourceType and
// targetType fall within its domain and range.
func (o *Ontology) ValidateRelation(sourceType, relationType, targetType string) bool {
	domain, ok := o.domainIndex[relationType]
	if !ok {
		return false
	}
	if _, ok := domain[sourceType]; !ok {
		return false
	}
	_, ok = o.rangeIndex[relationType][targetType]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
