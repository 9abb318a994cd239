// Package tools implements the agent's capabilities: workspace file
// access, sandboxed shell execution, web search and fetch, outbound
// messaging, sub-agent spawning, and image generation. Every tool failure
// the model can react to is returned as a readable string result; Go
// errors are reserved for conditions the loop itself must handle.
package tools

import (
	"context"
	"fmt"
)

// Tool defines the interface for agent tools.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string
	// Description returns a human-readable description for the LLM.
	Description() string
	// Parameters returns the JSON schema for tool arguments.
	Parameters() map[string]interface{}
	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, params map[string]interface{}) (string, error)
}

// BaseTool provides the static half of a Tool implementation.
type BaseTool struct {
	name        string
	description string
	parameters  map[string]interface{}
}

// NewBaseTool creates a BaseTool with the given attributes.
func NewBaseTool(name, description string, parameters map[string]interface{}) BaseTool {
	return BaseTool{
		name:        name,
		description: description,
		parameters:  parameters,
	}
}

func (t *BaseTool) Name() string { return t.name }

func (t *BaseTool) Description() string { return t.description }

func (t *BaseTool) Parameters() map[string]interface{} { return t.parameters }

// ErrParamNotFound is returned when a required parameter is missing.
type ErrParamNotFound struct {
	Key string
}

func (e ErrParamNotFound) Error() string {
	return fmt.Sprintf("parameter %q not found", e.Key)
}

// ErrParamTypeMismatch is returned when a parameter has an unexpected type.
type ErrParamTypeMismatch struct {
	Key      string
	Expected string
	Actual   interface{}
}

func (e ErrParamTypeMismatch) Error() string {
	return fmt.Sprintf("parameter %q: expected %s, got %T", e.Key, e.Expected, e.Actual)
}

// GetStringParam extracts a required string parameter.
func GetStringParam(params map[string]interface{}, key string) (string, error) {
	val, ok := params[key]
	if !ok {
		return "", ErrParamNotFound{Key: key}
	}
	str, ok := val.(string)
	if !ok {
		return "", ErrParamTypeMismatch{Key: key, Expected: "string", Actual: val}
	}
	return str, nil
}

// GetIntParam extracts a required integer parameter. JSON numbers decode
// as float64, so that case is handled.
func GetIntParam(params map[string]interface{}, key string) (int, error) {
	val, ok := params[key]
	if !ok {
		return 0, ErrParamNotFound{Key: key}
	}
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, ErrParamTypeMismatch{Key: key, Expected: "int", Actual: val}
	}
}

// GetStringParamOr extracts a string parameter, falling back to a default
// when the key is missing or mistyped.
func GetStringParamOr(params map[string]interface{}, key, defaultVal string) string {
	val, err := GetStringParam(params, key)
	if err != nil {
		return defaultVal
	}
	return val
}

// GetIntParamOr extracts an integer parameter, falling back to a default
// when the key is missing or mistyped.
func GetIntParamOr(params map[string]interface{}, key string, defaultVal int) int {
	val, err := GetIntParam(params, key)
	if err != nil {
		return defaultVal
	}
	return val
}
