package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Tool names.
const (
	GetDrugInfo   = "get_drug_info"
	PlaceOrder    = "place_order"
	LookupOrder   = "lookup_order"
	TrackShipment = "track_shipment"
)

// Definition describes a tool to a language model.
type Definition struct {
	Name string `json:"name"`
	// Description is offered to the chat model.
	Description string `json:"description"`
	// AgentDescription is offered to the external voice agent, which gets
	// more explicit guidance than the chat model.
	AgentDescription string          `json:"-"`
	Parameters       json.RawMessage `json:"parameters"`
}

var definitions = []Definition{
	{
		Name:             GetDrugInfo,
		Description:      "Get detailed information about a specific drug including price, availability, and description.",
		AgentDescription: "Get detailed information about a specific drug including price, availability, and description. Use this when customers ask about medications.",
		Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "drug_name": {"type": "string", "description": "Name of the drug to look up. Examples: aspirin, acetaminophen"}
  },
  "required": ["drug_name"]
}`),
	},
	{
		Name:             PlaceOrder,
		Description:      "Place a new medication order for a customer.",
		AgentDescription: "Place a new medication order for a customer. Always get the customer's full name before placing an order.",
		Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "customer_name": {"type": "string", "description": "Customer's full name for the order"},
    "drug_name": {"type": "string", "description": "Name of the drug to order"}
  },
  "required": ["customer_name", "drug_name"]
}`),
	},
	{
		Name:             LookupOrder,
		Description:      "Look up an existing order by its ID number.",
		AgentDescription: "Look up an existing order by its ID number.",
		Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "order_id": {"type": "integer", "description": "The order ID number to look up"}
  },
  "required": ["order_id"]
}`),
	},
	{
		Name:             TrackShipment,
		Description:      "Track a DHL shipment using the tracking number.",
		AgentDescription: "Track a DHL shipment using the tracking number (10-14 digits).",
		Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "tracking_number": {"type": "string", "description": "The DHL tracking number (10-14 digits)"}
  },
  "required": ["tracking_number"]
}`),
	},
}

// Definitions returns every tool definition in a stable order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// ValidationError reports arguments that do not match a tool's schema.
type ValidationError struct {
	Tool    string
	Details []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, strings.Join(e.Details, "; "))
}

// Is makes every ValidationError match ErrInvalidArguments.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArguments
}

// schemaValidator holds compiled argument schemas per tool.
type schemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

func newSchemaValidator(defs []Definition) (*schemaValidator, error) {
	v := &schemaValidator{schemas: make(map[string]*gojsonschema.Schema, len(defs))}
	for _, d := range defs {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(d.Parameters))
		if err != nil {
			return nil, fmt.Errorf("invalid schema for tool %s: %w", d.Name, err)
		}
		v.schemas[d.Name] = schema
	}
	return v, nil
}

func (v *schemaValidator) validate(tool string, args json.RawMessage) error {
	schema, ok := v.schemas[tool]
	if !ok {
		return nil
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return &ValidationError{Tool: tool, Details: []string{err.Error()}}
	}
	if !result.Valid() {
		details := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			details[i] = desc.String()
		}
		return &ValidationError{Tool: tool, Details: details}
	}
	return nil
}
