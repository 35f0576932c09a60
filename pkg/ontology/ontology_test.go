package ontology

import (
	"reflect"
	"testing"
)

const testCatalog = `{
	"version": "0.1",
	"entities": {
		"Person": {"description": "A natural person"},
		"Organization": {"description": "A company or institution", "aliases": ["Org", "Company"]},
		"Location": {}
	},
	"relations": {
		"WORKS_FOR": {"domain": ["Person"], "range": ["Organization"]},
		"LOCATED_IN": {"domain": ["Person", "Organization"], "range": ["Location"]}
	}
}`

func TestParse(t *testing.T) {
	o, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wantEntities := []string{"Location", "Organization", "Person"}
	if got := o.EntityTypes(); !reflect.DeepEqual(got, wantEntities) {
		t.Fatalf("EntityTypes = %v, want %v", got, wantEntities)
	}

	wantRelations := []string{"LOCATED_IN", "WORKS_FOR"}
	if got := o.RelationTypes(); !reflect.DeepEqual(got, wantRelations) {
		t.Fatalf("RelationTypes = %v, want %v", got, wantRelations)
	}

	info, ok := o.RelationInfo("WORKS_FOR")
	if !ok {
		t.Fatalf("RelationInfo missing WORKS_FOR")
	}
	if !reflect.DeepEqual(info.Domain, []string{"Person"}) {
		t.Fatalf("WORKS_FOR domain = %v, want [Person]", info.Domain)
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "malformed json",
			data: `{"entities": `,
		},
		{
			name: "no entity types",
			data: `{"entities": {}, "relations": {}}`,
		},
		{
			name: "relation domain references unknown entity",
			data: `{
				"entities": {"Person": {}},
				"relations": {"WORKS_FOR": {"domain": ["Ghost"], "range": ["Person"]}}
			}`,
		},
		{
			name: "relation range references unknown entity",
			data: `{
				"entities": {"Person": {}},
				"relations": {"WORKS_FOR": {"domain": ["Person"], "range": ["Ghost"]}}
			}`,
		},
		{
			name: "relation with empty domain",
			data: `{
				"entities": {"Person": {}},
				"relations": {"WORKS_FOR": {"domain": [], "range": ["Person"]}}
			}`,
		},
		{
			name: "alias collides with another entity type",
			data: `{
				"entities": {
					"Person": {"aliases": ["org"]},
					"Organization": {"aliases": ["Org"]}
				},
				"relations": {}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestResolveEntityType(t *testing.T) {
	o, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "canonical name", input: "Person", want: "Person", ok: true},
		{name: "case insensitive canonical", input: "PERSON", want: "Person", ok: true},
		{name: "alias", input: "org", want: "Organization", ok: true},
		{name: "alias with surrounding whitespace", input: "  Company ", want: "Organization", ok: true},
		{name: "unknown", input: "Vehicle", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := o.ResolveEntityType(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ResolveEntityType(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestValidateRelation(t *testing.T) {
	o, err := Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	tests := []struct {
		name     string
		source   string
		relation string
		target   string
		want     bool
	}{
		{name: "valid endpoints", source: "Person", relation: "WORKS_FOR", target: "Organization", want: true},
		{name: "multi-type domain", source: "Organization", relation: "LOCATED_IN", target: "Location", want: true},
		{name: "source outside domain", source: "Location", relation: "WORKS_FOR", target: "Organization", want: false},
		{name: "target outside range", source: "Person", relation: "WORKS_FOR", target: "Person", want: false},
		{name: "unknown relation", source: "Person", relation: "KNOWS", target: "Person", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.ValidateRelation(tt.source, tt.relation, tt.target); got != tt.want {
				t.Fatalf("ValidateRelation(%q, %q, %q) = %v, want %v", tt.source, tt.relation, tt.target, got, tt.want)
			}
		})
	}
}
