package agent

import (
	"errors"
	"fmt"
	"sort"
)

func indexToolDefinitions(definitions []ToolDefinition) map[string]ToolDefinition {
	out := make(map[string]ToolDefinition, len(definitions))
	for i := range definitions {
		out[definitions[i].Name] = definitions[i]
	}
	return out
}

// ValidateToolCallArguments checks a call's arguments against the tool's
// declared input schema: required fields present, no undeclared fields,
// declared primitive types respected. Model-supplied arguments are
// untrusted input and never reach a handler unvalidated.
func ValidateToolCallArguments(call ToolCall, definition ToolDefinition) error {
	return ValidateToolArguments(definition.InputSchema, call.Arguments)
}

// ValidateToolArguments validates arguments against a JSON-schema style
// object description with "required" and typed "properties" entries.
func ValidateToolArguments(schema map[string]any, arguments map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	required, err := requiredFields(schema["required"])
	if err != nil {
		return err
	}
	for _, field := range required {
		if _, ok := arguments[field]; !ok {
			return fmt.Errorf("missing required argument %q", field)
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for _, key := range sortedKeys(arguments) {
		propertySchema, declared := properties[key]
		if !declared {
			return fmt.Errorf("unknown argument %q", key)
		}
		expectedType, ok := propertyType(propertySchema)
		if !ok {
			continue
		}
		if !matchesType(expectedType, arguments[key]) {
			return fmt.Errorf("argument %q must be %q", key, expectedType)
		}
	}
	return nil
}

func requiredFields(raw any) ([]string, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case []string:
		return value, nil
	case []any:
		out := make([]string, 0, len(value))
		for _, item := range value {
			field, ok := item.(string)
			if !ok {
				return nil, errors.New(`input schema "required" entries must be strings`)
			}
			out = append(out, field)
		}
		return out, nil
	default:
		return nil, errors.New(`input schema "required" must be an array`)
	}
}

func propertyType(propertySchema any) (string, bool) {
	propertyMap, ok := propertySchema.(map[string]any)
	if !ok {
		return "", false
	}
	typeName, ok := propertyMap["type"].(string)
	return typeName, ok
}

func matchesType(expected string, value any) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number", "integer":
		switch value.(type) {
		case int, int32, int64, float32, float64:
			return true
		default:
			return false
		}
	default:
		return true
	}
}

func sortedKeys(arguments map[string]any) []string {
	keys := make([]string, 0, len(arguments))
	for key := range arguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
