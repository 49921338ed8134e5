// Package plantool is the tool engine of the housing plan service: it registers, describes
// and safely executes the plan operations (amount parsing, affordability, product search,
// plan storage) for an LLM agent.
//
// # Overview
//
// Agents produce tool calls as JSON. This package turns that JSON into concrete Go
// function calls: validate (against the same JSON Schema shown to the agent) → unmarshal →
// execute → marshal the result, or report a kinded failure the agent can act on.
//
// Pipeline: Go function + argument struct → NewTool (reflection + schema) → Tool →
// Registry → Execute → ToolResult.
//
// # Key concepts
//
//   - Single Source of Truth: one set of struct tags drives both the schema sent to the
//     agent and the validation of incoming JSON.
//   - Envelope: Execute never returns a Go error. A ToolResult is either
//     {success: true, result} or {success: false, error_kind, message, retryable}.
//   - Error kinds: errors implementing ErrorKind() string keep their kind; ClientError
//     becomes validation_error; everything else is internal_error.
//   - Partial Success: ExecuteBatch collects all results; one failure does not cancel others.
//
// # Example
//
//	type Args struct { Value string `json:"value"` }
//	type Out  struct { Parsed int64 `json:"parsed"` }
//	tool, err := plantool.NewTool("parse_currency", "Parse a Korean amount", func(_ context.Context, a Args) (Out, error) {
//	    return Out{Parsed: 300_000_000}, nil
//	})
//	if err != nil { ... }
//	reg := plantool.NewRegistry()
//	reg.Register(tool)
//	res := reg.Execute(ctx, plantool.ToolCall{ID: "1", ToolName: "parse_currency", Args: []byte(`{"value":"3억"}`)})
package plantool
