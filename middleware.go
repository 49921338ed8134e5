package plantool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skosovsky/plantool/logger"
)

// Middleware wraps a Tool with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Tool) Tool

// WithLogging returns a middleware that logs start, end, duration, and the error kind of failures.
func WithLogging(log *logger.Logger) Middleware {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next Tool) Tool {
		return &loggingTool{toolBase: toolBase{next: next}, log: log}
	}
}

// WithRecovery returns a middleware that recovers panics and returns SystemError.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return &recoveryTool{toolBase{next: next}}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-tool timeout. Named with the
// "Middleware" suffix to avoid collision with ToolOption WithTimeout. When both the registry
// timeout and this middleware apply, the effective timeout is the minimum of the two.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &timeoutTool{toolBase: toolBase{next: next}, timeout: d}
	}
}

// toolBase delegates Tool and ToolMetadata to the wrapped Tool; used by middleware wrappers.
type toolBase struct{ next Tool }

func (b *toolBase) Name() string                 { return b.next.Name() }
func (b *toolBase) Description() string          { return b.next.Description() }
func (b *toolBase) Parameters() map[string]any   { return b.next.Parameters() }
func (b *toolBase) OutputSchema() map[string]any { return b.next.OutputSchema() }

func (b *toolBase) Timeout() time.Duration {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Timeout()
	}
	return 0
}
func (b *toolBase) Tags() []string {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Tags()
	}
	return nil
}
func (b *toolBase) Version() string {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Version()
	}
	return ""
}
func (b *toolBase) WritesPlan() bool {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.WritesPlan()
	}
	return false
}

type loggingTool struct {
	toolBase
	log *logger.Logger
}

func (m *loggingTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	log := m.log.With("tool", m.next.Name())
	if id := sessionOf(args); id != "" {
		log = log.With("session_id", id)
	}
	log.Debug("tool start")
	start := time.Now()
	res, err := m.next.Execute(ctx, args)
	dur := time.Since(start)
	if err != nil {
		kind := errorKind(err)
		if IsClientError(err) {
			log.Info("tool rejected input", "duration", dur, "error_kind", kind, "error", err)
		} else {
			log.Error("tool error", "duration", dur, "error_kind", kind, "error", err)
		}
		return nil, err
	}
	log.Info("tool end", "duration", dur, "bytes", len(res))
	return res, nil
}

// sessionOf returns the session_id argument of a plan-scoped call, or "".
func sessionOf(args []byte) string {
	var a struct {
		SessionID string `json:"session_id"`
	}
	if len(args) == 0 || json.Unmarshal(args, &a) != nil {
		return ""
	}
	return a.SessionID
}

type recoveryTool struct{ toolBase }

func (r *recoveryTool) Execute(ctx context.Context, args []byte) (res []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = &SystemError{Err: &panicError{p: p}}
		}
	}()
	return r.next.Execute(ctx, args)
}

type timeoutTool struct {
	toolBase
	timeout time.Duration
}

func (t *timeoutTool) Timeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.toolBase.Timeout()
}

func (t *timeoutTool) Execute(ctx context.Context, args []byte) ([]byte, error) {
	if t.timeout <= 0 {
		return t.next.Execute(ctx, args)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Execute(ctx, args)
}

// Use stores the given middlewares and reapplies them from scratch to all registered tools (onion order:
// first middleware is outermost). Tools registered after Use will also get these middlewares applied.
// Calling Use multiple times replaces the middleware chain and rewraps from raw tools.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		t := raw
		for i := len(middlewares) - 1; i >= 0; i-- {
			t = middlewares[i](t)
		}
		r.tools[name] = t
	}
}
