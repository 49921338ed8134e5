package plantool

import (
	"context"
	"encoding/json"
	"time"
)

// Tool is the contract for an agent-callable operation.
// It is provider-agnostic (no knowledge of a particular LLM vendor or transport).
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the input JSON Schema as map (compatible with LLM tool definitions).
	Parameters() map[string]any
	// OutputSchema returns the JSON Schema of a successful result, or nil when unknown.
	OutputSchema() map[string]any
	// Execute runs the tool on raw JSON arguments and returns the JSON-encoded result.
	Execute(ctx context.Context, argsJSON []byte) ([]byte, error)
}

// ToolMetadata is implemented by tools created with NewTool and NewDynamicTool.
// Registry uses Timeout() to override the default execution timeout when set.
type ToolMetadata interface {
	Timeout() time.Duration
	Tags() []string
	Version() string
	// WritesPlan reports whether a successful call may modify a stored plan.
	WritesPlan() bool
}

// ToolCall is a single execution request (as produced by the agent).
type ToolCall struct {
	ID       string          `json:"id,omitempty"`
	ToolName string          `json:"tool_name"`
	Args     json.RawMessage `json:"args,omitempty"`
}

// Error kinds produced by the registry itself. Tools report further kinds through errors
// implementing ErrorKind() string.
const (
	KindValidation   = "validation_error"
	KindToolNotFound = "tool_not_found"
	KindTimeout      = "timeout"
	KindShutdown     = "shutdown"
	KindInternal     = "internal_error"
)

// ToolResult is the envelope every execution ends in. On success Result holds the tool output;
// otherwise ErrorKind, Message and Retryable describe the failure. Err keeps the original error
// for in-process callers and is never serialized.
type ToolResult struct {
	CallID    string          `json:"call_id,omitempty"`
	ToolName  string          `json:"tool_name"`
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
	Retryable bool            `json:"retryable,omitempty"`
	Err       error           `json:"-"`
}
