package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type ratioArgs struct {
	Value string `json:"value"`
}

type ratioResult struct {
	Ratio int `json:"ratio"`
}

func newServer(t *testing.T) *Server {
	t.Helper()
	ratio, err := plantool.NewTool("parse_ratio", "Parse a ratio", func(_ context.Context, a ratioArgs) (ratioResult, error) {
		if a.Value == "101" {
			return ratioResult{}, domain.RangeError("parse_ratio", "ratio must be between 0 and 100, got 101")
		}
		return ratioResult{Ratio: 30}, nil
	})
	require.NoError(t, err)
	upsert, err := plantool.NewTool("upsert_plan", "Upsert", func(_ context.Context, a ratioArgs) (ratioResult, error) {
		return ratioResult{}, nil
	}, plantool.WithPlanWrites())
	require.NoError(t, err)

	s, err := New(testutil.NewTestRegistry(ratio, upsert), "plannerd", "test", nil)
	require.NoError(t, err)
	return s
}

func rpc(t *testing.T, s *Server, method string, params any) map[string]any {
	t.Helper()
	msg, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)
	resp := s.MCP().HandleMessage(context.Background(), msg)
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	require.Nil(t, out["error"], "rpc error: %v", out["error"])
	result, ok := out["result"].(map[string]any)
	require.True(t, ok, "no result in %s", body)
	return result
}

func TestListTools(t *testing.T) {
	s := newServer(t)
	result := rpc(t, s, "tools/list", map[string]any{})
	tools, ok := result["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 2)

	byName := make(map[string]map[string]any)
	for _, raw := range tools {
		tool := raw.(map[string]any)
		byName[tool["name"].(string)] = tool
	}
	ratio := byName["parse_ratio"]
	require.NotNil(t, ratio)
	assert.Equal(t, "Parse a ratio", ratio["description"])
	schema := ratio["inputSchema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema["properties"], "value")
	assert.Equal(t, true, ratio["annotations"].(map[string]any)["readOnlyHint"])
	assert.Equal(t, false, byName["upsert_plan"]["annotations"].(map[string]any)["readOnlyHint"])
}

func callTool(t *testing.T, s *Server, name string, args map[string]any) (plantool.ToolResult, bool) {
	t.Helper()
	result := rpc(t, s, "tools/call", map[string]any{"name": name, "arguments": args})
	content := result["content"].([]any)
	require.Len(t, content, 1)
	text := content[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	var env plantool.ToolResult
	require.NoError(t, json.Unmarshal([]byte(text["text"].(string)), &env))
	isError, _ := result["isError"].(bool)
	return env, isError
}

func TestCallTool_Success(t *testing.T) {
	s := newServer(t)
	env, isError := callTool(t, s, "parse_ratio", map[string]any{"value": "30%"})
	assert.False(t, isError)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"ratio":30}`, string(env.Result))
}

func TestCallTool_Failures(t *testing.T) {
	s := newServer(t)
	env, isError := callTool(t, s, "parse_ratio", map[string]any{"value": "101"})
	assert.True(t, isError)
	assert.False(t, env.Success)
	assert.Equal(t, "range_error", env.ErrorKind)
	assert.Equal(t, "parse_ratio: ratio must be between 0 and 100, got 101", env.Message)

	env, isError = callTool(t, s, "parse_ratio", map[string]any{"value": 30})
	assert.True(t, isError)
	assert.Equal(t, plantool.KindValidation, env.ErrorKind)
}

func TestDefinition(t *testing.T) {
	tool := &testutil.MockTool{NameVal: "get_plan", DescVal: "Get a plan"}
	def, err := Definition(tool)
	require.NoError(t, err)
	assert.Equal(t, "get_plan", def.Name)
	assert.JSONEq(t, `{"type":"object"}`, string(def.RawInputSchema))
	require.NotNil(t, def.Annotations.ReadOnlyHint)
	assert.True(t, *def.Annotations.ReadOnlyHint)

	_, err = Definition(&testutil.MockTool{NameVal: "bad", ParamsVal: map[string]any{"x": func() {}}})
	require.Error(t, err)
}
