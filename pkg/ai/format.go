package ai

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// SchemaFor derives a strict JSON schema from a Go struct for
// structured-output completions. Additional properties are disallowed so
// the model cannot invent fields.
func SchemaFor(v any) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(v)

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return out, nil
}

// DecodeModelJSON decodes a model response into out, repairing the common
// JSON defects (trailing commas, fencing, unquoted keys) models produce.
func DecodeModelJSON(response string, out any) error {
	if err := json.Unmarshal([]byte(response), out); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(response)
	if err != nil {
		return fmt.Errorf("failed to repair model JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("failed to decode model JSON: %w", err)
	}
	return nil
}
