package plantool

import (
	"maps"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotAndRestoreCustomTypes restores the global custom type registry after the test.
// Do not run such tests with t.Parallel().
func snapshotAndRestoreCustomTypes(t *testing.T) {
	t.Helper()
	customTypesMu.Lock()
	before := maps.Clone(customTypes)
	customTypesMu.Unlock()
	t.Cleanup(func() {
		customTypesMu.Lock()
		customTypes = before
		customTypesMu.Unlock()
	})
}

func properties(t *testing.T, schema map[string]any) map[string]any {
	t.Helper()
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has no properties: %v", schema)
	return props
}

func TestGenerateSchema_Simple(t *testing.T) {
	type Args struct {
		Value    string `json:"value"`
		Optional int    `json:"optional,omitempty"`
	}
	m, compiled, err := generateSchema[Args](false)
	require.NoError(t, err)
	require.NotNil(t, compiled)
	assert.Equal(t, "object", m["type"])
	assert.Equal(t, false, m["additionalProperties"])
	assert.Equal(t, []any{"value"}, m["required"])
	assert.Equal(t, "string", properties(t, m)["value"].(map[string]any)["type"])
}

func TestGenerateSchema_StrictMode(t *testing.T) {
	type Inner struct {
		Rate float64 `json:"rate,omitempty"`
	}
	type Args struct {
		Name  string `json:"name,omitempty"`
		Inner Inner  `json:"inner"`
	}
	m, _, err := generateSchema[Args](true)
	require.NoError(t, err)
	assert.Equal(t, []any{"inner", "name"}, m["required"])
	inner := properties(t, m)["inner"].(map[string]any)
	assert.Equal(t, false, inner["additionalProperties"])
	assert.Equal(t, []any{"rate"}, inner["required"])
}

func TestApplyStrictMode(t *testing.T) {
	m := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"b": map[string]any{"type": "string"},
			"a": map[string]any{"type": "string"},
		},
	}
	applyStrictMode(m)
	assert.Equal(t, false, m["additionalProperties"])
	assert.Equal(t, []any{"a", "b"}, m["required"])
}

func TestGenerateSchema_CompiledValidates(t *testing.T) {
	type Args struct {
		Ratio int `json:"ratio" jsonschema:"minimum=0,maximum=100"`
	}
	_, compiled, err := generateSchema[Args](false)
	require.NoError(t, err)

	ok, err := decodeInstance([]byte(`{"ratio":100}`))
	require.NoError(t, err)
	require.NoError(t, compiled.Validate(ok))

	bad, err := decodeInstance([]byte(`{"ratio":101}`))
	require.NoError(t, err)
	require.Error(t, compiled.Validate(bad))
}

func TestGenerateSchema_TagEnrichment(t *testing.T) {
	type Args struct {
		InvestType string `json:"invest_type" description:"risk appetite" enum:"stable, balanced, aggressive"`
	}
	m, compiled, err := generateSchema[Args](false)
	require.NoError(t, err)
	prop := properties(t, m)["invest_type"].(map[string]any)
	assert.Equal(t, "risk appetite", prop["description"])
	assert.Equal(t, []any{"stable", "balanced", "aggressive"}, prop["enum"])

	v, err := decodeInstance([]byte(`{"invest_type":"reckless"}`))
	require.NoError(t, err)
	assert.Error(t, compiled.Validate(v))
}

type riskTier string

func TestRegisterType_ValueType(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	RegisterType(riskTier(""), "string", "", "low", "high")
	type Args struct {
		Tier riskTier `json:"tier"`
	}
	m, compiled, err := generateSchema[Args](false)
	require.NoError(t, err)
	tier := properties(t, m)["tier"].(map[string]any)
	assert.Equal(t, "string", tier["type"])
	assert.Equal(t, []any{"low", "high"}, tier["enum"])

	v, err := decodeInstance([]byte(`{"tier":"medium"}`))
	require.NoError(t, err)
	assert.Error(t, compiled.Validate(v))
}

func TestRegisterType_PointerFieldUsesValueMapping(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	type money struct{}
	RegisterType(money{}, "number", "decimal")
	type Args struct {
		Amount *money `json:"amount,omitempty"`
	}
	m, _, err := generateSchema[Args](false)
	require.NoError(t, err)
	amount := properties(t, m)["amount"].(map[string]any)
	assert.Equal(t, "number", amount["type"])
	assert.Equal(t, "decimal", amount["format"])
}

func TestRegisterType_InvalidArgs_Panic(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	assert.Panics(t, func() { RegisterType(nil, "string", "") })
	assert.Panics(t, func() { RegisterType(struct{}{}, "", "") })
}

func TestMapCustomType_FreshSchemaPerCall(t *testing.T) {
	snapshotAndRestoreCustomTypes(t)
	RegisterType(riskTier(""), "string", "", "low")
	a := mapCustomType(reflect.TypeOf(riskTier("")))
	b := mapCustomType(reflect.TypeOf(riskTier("")))
	require.NotNil(t, a)
	a.Enum[0] = "mutated"
	assert.Equal(t, "low", b.Enum[0])
	assert.Nil(t, mapCustomType(reflect.TypeOf(0)))
}

func noRefInSchemaTree(schemaMap map[string]any) bool {
	found := false
	walkSchema(schemaMap, func(n map[string]any) {
		if _, has := n["$ref"]; has {
			found = true
		}
	})
	return !found
}

func TestGenerateSchema_NoRefOrDefs(t *testing.T) {
	type Nested struct {
		A string `json:"a"`
	}
	type Root struct {
		N    Nested   `json:"n"`
		List []Nested `json:"list"`
	}
	m, _, err := generateSchema[Root](false)
	require.NoError(t, err)
	assert.Nil(t, m["$ref"])
	assert.Nil(t, m["$defs"])
	assert.True(t, noRefInSchemaTree(m))
}

func TestStripSchemaIDs_KeepsIDProperty(t *testing.T) {
	type Product struct {
		ID       string `json:"id"`
		BankName string `json:"bank_name"`
	}
	m, compiled, err := generateSchema[Product](false)
	require.NoError(t, err)
	assert.NotContains(t, m, "$id")
	assert.NotContains(t, m, "$schema")
	assert.Contains(t, properties(t, m), "id")

	v, err := decodeInstance([]byte(`{"id":"p1","bank_name":"KB"}`))
	require.NoError(t, err)
	require.NoError(t, compiled.Validate(v))
}

func TestNormalizeArgs(t *testing.T) {
	for _, in := range []string{"", "  ", "null", " null "} {
		assert.Equal(t, "{}", string(normalizeArgs([]byte(in))), "%q", in)
	}
	assert.Equal(t, `{"x":1}`, string(normalizeArgs([]byte(`{"x":1}`))))
}
