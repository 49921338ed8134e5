package plantool

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	sjs "github.com/santhosh-tekuri/jsonschema/v6"
)

type customType struct {
	jsonType string
	format   string
	enum     []any
}

var (
	customTypesMu sync.RWMutex
	customTypes   = make(map[reflect.Type]customType)
)

// RegisterType registers a custom Go type to be mapped to a JSON Schema type/format in generated schemas.
// emptyInstance is a value of the type to register (e.g. domain.Category("")); it must not be nil.
// jsonType is the JSON Schema type (e.g. "string", "number"); it must not be empty.
// format and enum are optional. Pointer fields (*T) use the same mapping as T.
// Call RegisterType at application startup before the first NewTool or NewExtractor.
func RegisterType(emptyInstance any, jsonType, format string, enum ...any) {
	if emptyInstance == nil {
		panic("plantool: RegisterType emptyInstance must not be nil")
	}
	if jsonType == "" {
		panic("plantool: RegisterType jsonType must not be empty")
	}
	customTypesMu.Lock()
	defer customTypesMu.Unlock()
	customTypes[reflect.TypeOf(emptyInstance)] = customType{
		jsonType: jsonType,
		format:   format,
		enum:     slices.Clone(enum),
	}
}

// mapCustomType is the reflector Mapper; it returns a fresh schema per call so that tag
// keywords applied by the reflector never leak between properties.
func mapCustomType(t reflect.Type) *jsonschema.Schema {
	customTypesMu.RLock()
	ct, ok := customTypes[t]
	customTypesMu.RUnlock()
	if !ok {
		return nil
	}
	return &jsonschema.Schema{Type: ct.jsonType, Format: ct.format, Enum: slices.Clone(ct.enum)}
}

func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
		Mapper:         mapCustomType,
	}
}

// reflectSchema produces the JSON Schema map of type T with struct-tag enrichment applied.
func reflectSchema[T any]() (map[string]any, error) {
	schema := newReflector().Reflect(new(T))
	if schema == nil {
		return nil, errNilSchema
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, err
	}
	if schemaMap == nil {
		return nil, errNilSchema
	}
	enrichSchemaFromStructTags(schemaMap, reflect.TypeOf(*new(T)))
	stripSchemaIDs(schemaMap)
	return schemaMap, nil
}

// generateSchema produces a JSON Schema map and a compiled validator for type T.
// It is called once when building a Tool. strict sets additionalProperties: false
// for all objects and marks every property required.
func generateSchema[T any](strict bool) (map[string]any, *sjs.Schema, error) {
	schemaMap, err := reflectSchema[T]()
	if err != nil {
		return nil, nil, err
	}
	if strict {
		applyStrictMode(schemaMap)
	}
	compiled, err := compileRawSchema(schemaMap)
	if err != nil {
		return nil, nil, err
	}
	return schemaMap, compiled, nil
}

// enrichSchemaFromStructTags adds description and enum from struct tags to root-level properties.
// typ may be a pointer; json tag (first part before comma) is used to match property keys.
func enrichSchemaFromStructTags(schemaMap map[string]any, typ reflect.Type) {
	if schemaMap == nil || typ == nil {
		return
	}
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return
	}
	props, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		return
	}
	jsonToField := make(map[string]reflect.StructField, typ.NumField())
	for i := range typ.NumField() {
		field := typ.Field(i)
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		jsonToField[jsonTag] = field
	}
	for key, val := range props {
		field, ok := jsonToField[key]
		if !ok {
			continue
		}
		prop, ok := val.(map[string]any)
		if !ok {
			// interface-typed fields reflect to the boolean schema true
			if b, isBool := val.(bool); !isBool || !b {
				continue
			}
			prop = map[string]any{}
			props[key] = prop
		}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]any, len(parts))
			for i, p := range parts {
				enum[i] = strings.TrimSpace(p)
			}
			prop["enum"] = enum
		}
	}
}

// walkSchema recursively visits every map node in the schema tree (including $defs and definitions).
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// applyStrictMode sets additionalProperties: false for every object in the schema.
func applyStrictMode(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		props, ok := n["properties"].(map[string]any)
		if !ok {
			return
		}
		n["additionalProperties"] = false
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		required := make([]any, len(keys))
		for i, k := range keys {
			required[i] = k
		}
		if len(required) > 0 {
			n["required"] = required
		}
	})
}

var errNilSchema = errors.New("schema reflection returned nil")

const schemaResource = "tool.schema.json"

// compileRawSchema compiles a raw JSON Schema map into a validator. The map is not mutated.
func compileRawSchema(schemaMap map[string]any) (*sjs.Schema, error) {
	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	doc, err := sjs.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	c := sjs.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, err
	}
	return c.Compile(schemaResource)
}

// normalizeArgs treats absent arguments as an empty object.
func normalizeArgs(argsJSON []byte) []byte {
	if len(bytes.TrimSpace(argsJSON)) == 0 || bytes.Equal(bytes.TrimSpace(argsJSON), []byte("null")) {
		return []byte("{}")
	}
	return argsJSON
}

// decodeInstance parses argsJSON into the value form the validator expects.
func decodeInstance(argsJSON []byte) (any, error) {
	return sjs.UnmarshalJSON(bytes.NewReader(argsJSON))
}

// stripSchemaIDs removes id, $id and $schema so that compilation does not depend on them.
// A property named "id" holds a schema object and is kept.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		if _, isString := n["id"].(string); isString {
			delete(n, "id")
		}
		delete(n, "$id")
		delete(n, "$schema")
	})
}
