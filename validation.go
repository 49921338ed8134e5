package plantool

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and unmarshaling.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON value decoded by decodeInstance.
// Used by both Extractor and dynamic tools. *jsonschema.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema runs layer 1 validation on an already decoded value.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if err := validate.Validate(v); err != nil {
		return &ClientError{Reason: err.Error(), Err: ErrValidation}
	}
	return nil
}

// validateCustom runs layer 2 (Validatable) if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}
