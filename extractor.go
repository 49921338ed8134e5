package plantool

import (
	"encoding/json"
	"errors"
	"maps"
	"reflect"

	sjs "github.com/santhosh-tekuri/jsonschema/v6"
)

// Extractor provides JSON Schema generation and two-layer validation (schema + Validatable)
// for type T without binding to the Tool interface. The MCP and REST transports share it
// through NewTool; it can also be used directly by a custom orchestrator.
type Extractor[T any] struct {
	schemaMap map[string]any
	compiled  *sjs.Schema
}

// NewExtractor creates an Extractor for type T. When strict is true, the generated schema
// has additionalProperties: false for all objects and all properties required.
func NewExtractor[T any](strict bool) (*Extractor[T], error) {
	schemaMap, compiled, err := generateSchema[T](strict)
	if err != nil {
		return nil, err
	}
	return &Extractor[T]{schemaMap: schemaMap, compiled: compiled}, nil
}

// Schema returns a shallow copy of the JSON Schema (top-level keys only).
// Nested maps are shared; callers must not mutate them.
func (e *Extractor[T]) Schema() map[string]any {
	return maps.Clone(e.schemaMap)
}

// ParseAndValidate deserializes argsJSON into T, runs layer 1 (schema validation) and
// layer 2 (Validatable.Validate() if T implements it). Returns ClientError for invalid
// JSON or validation failures so the caller can pass the message back for self-correction.
func (e *Extractor[T]) ParseAndValidate(argsJSON []byte) (T, error) {
	var zero T
	argsJSON = normalizeArgs(argsJSON)
	v, err := decodeInstance(argsJSON)
	if err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := validateAgainstSchema(e.compiled, v); err != nil {
		return zero, err
	}
	var args T
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return zero, wrapJSONParseError(err)
	}
	if err := runLayer2Validation(args); err != nil {
		if IsClientError(err) {
			return zero, err
		}
		var uc userCorrectableError
		if errors.As(err, &uc) && uc.UserCorrectable() {
			return zero, &ClientError{Reason: publicMessage(err), Err: err}
		}
		return zero, &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return args, nil
}

// runLayer2Validation runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runLayer2Validation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}
