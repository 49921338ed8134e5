// Package testutil provides test helpers for plantool (MockTool, test registries, collaborator fakes).
package testutil

import (
	"context"

	"github.com/skosovsky/plantool"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal map[string]any
	OutputVal map[string]any
	ExecuteFn func(ctx context.Context, args []byte) ([]byte, error)
}

func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or a bare object schema).
func (m *MockTool) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{"type": "object"}
}

func (m *MockTool) OutputSchema() map[string]any {
	return m.OutputVal
}

// Execute runs ExecuteFn if set, otherwise returns an empty JSON object.
func (m *MockTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args)
	}
	return []byte(`{}`), nil
}

var _ plantool.Tool = (*MockTool)(nil)
