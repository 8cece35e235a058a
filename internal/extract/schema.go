package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Categories is the fixed set the model must choose from.
var Categories = []string{
	"Travel",
	"Office Supplies",
	"Software",
	"Utilities",
	"Marketing",
	"Meals & Entertainment",
	"Professional Services",
	"Other",
}

const (
	extractTool    = "extract_invoice_data"
	categorizeTool = "categorize_invoice"
)

func extractSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"invoice_number": map[string]any{"type": "string", "description": "Invoice number"},
			"vendor":         map[string]any{"type": "string", "description": "Vendor/business name"},
			"date":           map[string]any{"type": "string", "description": "Invoice date in YYYY-MM-DD format", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"amount":         map[string]any{"type": "number", "minimum": 0, "description": "Total amount as number"},
			"description":    map[string]any{"type": "string", "description": "Brief description of items/services"},
			"category":       map[string]any{"type": "string", "enum": Categories},
			"confidence":     map[string]any{"type": "number", "minimum": 0, "maximum": 1, "description": "Confidence score for categorization"},
		},
		"required":             []string{"invoice_number", "vendor", "date", "amount", "category", "confidence"},
		"additionalProperties": false,
	}
}

func categorizeSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category":   map[string]any{"type": "string", "enum": Categories},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
		"required":             []string{"category", "confidence"},
		"additionalProperties": false,
	}
}

// validate checks data against schema.
func validate(schema map[string]any, data []byte) error {
	b, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}

	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}

	return nil
}
