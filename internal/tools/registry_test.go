package tools

import (
	"context"
	"errors"
	"testing"
)

type staticTool struct {
	BaseTool
	result string
}

func (t *staticTool) Execute(ctx context.Context, params map[string]interface{}) (string, error) {
	return t.result, nil
}

func newStaticTool(name, result string) *staticTool {
	return &staticTool{
		BaseTool: NewBaseTool(name, "test tool "+name, map[string]interface{}{"type": "object"}),
		result:   result,
	}
}

func TestRegistryRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStaticTool("ping", "pong")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	out, err := r.Execute(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "pong" {
		t.Errorf("result = %q", out)
	}

	_, err = r.Execute(context.Background(), "missing", nil)
	var notFound ErrToolNotFound
	if !errors.As(err, &notFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(newStaticTool("ping", "a")); err != nil {
		t.Fatal(err)
	}

	err := r.Register(newStaticTool("ping", "b"))
	var dup ErrToolAlreadyExists
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrToolAlreadyExists, got %v", err)
	}
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(newStaticTool("zeta", ""))
	r.MustRegister(newStaticTool("alpha", ""))

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("got %d definitions", len(defs))
	}
	if defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Errorf("definitions not sorted: %s, %s", defs[0].Name, defs[1].Name)
	}
	if defs[0].Description == "" || defs[0].Parameters == nil {
		t.Error("definition missing description or schema")
	}
}

func TestParamHelpers(t *testing.T) {
	params := map[string]interface{}{
		"name":  "viking",
		"count": float64(3), // JSON numbers decode as float64
	}

	if v, err := GetStringParam(params, "name"); err != nil || v != "viking" {
		t.Errorf("GetStringParam = %q, %v", v, err)
	}
	var notFound ErrParamNotFound
	if _, err := GetStringParam(params, "missing"); !errors.As(err, &notFound) {
		t.Errorf("expected ErrParamNotFound, got %v", err)
	}
	if _, err := GetStringParam(params, "count"); err == nil {
		t.Error("expected type mismatch for count as string")
	}

	if v, err := GetIntParam(params, "count"); err != nil || v != 3 {
		t.Errorf("GetIntParam = %d, %v", v, err)
	}
	if v := GetIntParamOr(params, "missing", 7); v != 7 {
		t.Errorf("GetIntParamOr default = %d", v)
	}
	if v := GetStringParamOr(params, "missing", "fallback"); v != "fallback" {
		t.Errorf("GetStringParamOr default = %q", v)
	}
}
