package plantool

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/skosovsky/plantool/domain"
	"github.com/skosovsky/plantool/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func TestWithLogging(t *testing.T) {
	log, logs := observedLogger()
	inner := &minTool{name: "parse_currency", params: map[string]any{}, execute: func(context.Context, []byte) ([]byte, error) {
		return []byte(`{"parsed":350000000}`), nil
	}}
	out, err := WithLogging(log)(inner).Execute(context.Background(), []byte(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"parsed":350000000}`, string(out))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "tool start", entries[0].Message)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "tool end", entries[1].Message)
	fields := entries[1].ContextMap()
	assert.Equal(t, "parse_currency", fields["tool"])
	assert.EqualValues(t, len(out), fields["bytes"])
	assert.Contains(t, fields, "duration")
}

func TestWithLogging_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		level   zapcore.Level
		kind    string
	}{
		{"client error", wrapHandlerError(domain.ParseError("parse_amount", "malformed amount")), "tool rejected input", zapcore.InfoLevel, "parse_error"},
		{"storage error", wrapHandlerError(domain.StorageError("plan.upsert", "plan storage failed", errors.New("io"))), "tool error", zapcore.ErrorLevel, "storage_error"},
		{"system error", &SystemError{Err: errors.New("boom")}, "tool error", zapcore.ErrorLevel, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, logs := observedLogger()
			inner := &minTool{name: "fail", execute: func(context.Context, []byte) ([]byte, error) {
				return nil, tt.err
			}}
			_, err := WithLogging(log)(inner).Execute(context.Background(), nil)
			require.ErrorIs(t, err, tt.err)

			failures := logs.FilterMessage(tt.message).All()
			require.Len(t, failures, 1)
			assert.Equal(t, tt.level, failures[0].Level)
			assert.Equal(t, tt.kind, failures[0].ContextMap()["error_kind"])
		})
	}
}

func TestWithLogging_SessionID(t *testing.T) {
	log, logs := observedLogger()
	inner := &minTool{name: "upsert_plan", execute: func(context.Context, []byte) ([]byte, error) {
		return nil, wrapHandlerError(domain.StorageError("plan.upsert", "plan storage failed", errors.New("io")))
	}}
	_, err := WithLogging(log)(inner).Execute(context.Background(), []byte(`{"session_id":"s-42","profile":{}}`))
	require.Error(t, err)

	failures := logs.FilterMessage("tool error").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, "upsert_plan", fields["tool"])
	assert.NotEmpty(t, fields["session_id"])
	for _, e := range logs.All() {
		assert.Contains(t, e.ContextMap(), "session_id", e.Message)
	}

	log, logs = observedLogger()
	for _, args := range []string{``, `{}`, `not json`, `{"session_id":7}`} {
		_, _ = WithLogging(log)(inner).Execute(context.Background(), []byte(args))
	}
	for _, e := range logs.All() {
		assert.NotContains(t, e.ContextMap(), "session_id", e.Message)
	}
}

func TestWithLogging_NilLogger(t *testing.T) {
	inner := &minTool{name: "n", execute: func(context.Context, []byte) ([]byte, error) { return []byte(`{}`), nil }}
	_, err := WithLogging(nil)(inner).Execute(context.Background(), nil)
	require.NoError(t, err)
}

func TestWithRecovery(t *testing.T) {
	inner := &minTool{name: "panic_me", execute: func(context.Context, []byte) ([]byte, error) {
		panic("test panic")
	}}
	res, err := WithRecovery()(inner).Execute(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Nil(t, res)
	var sysErr *SystemError
	require.ErrorAs(t, err, &sysErr)
	assert.Contains(t, sysErr.Err.Error(), "panic")
}

func TestWithTimeoutMiddleware(t *testing.T) {
	inner := &minTool{name: "slow", execute: func(ctx context.Context, _ []byte) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	wrapped := WithTimeoutMiddleware(5 * time.Millisecond)(inner)
	res, err := wrapped.Execute(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 5*time.Millisecond, wrapped.(ToolMetadata).Timeout())
}

func TestMiddleware_PreservesMetadata(t *testing.T) {
	tool, err := NewTool("upsert_plan", "Upsert", func(_ context.Context, a doubleArgs) (doubleResult, error) {
		return doubleResult{Y: a.X}, nil
	}, WithPlanWrites(), WithVersion("1.0.0"), WithTags("plan"))
	require.NoError(t, err)

	wrapped := WithLogging(nil)(WithRecovery()(tool))
	meta, ok := wrapped.(ToolMetadata)
	require.True(t, ok)
	assert.True(t, meta.WritesPlan())
	assert.Equal(t, "1.0.0", meta.Version())
	assert.Equal(t, []string{"plan"}, meta.Tags())
	assert.Equal(t, tool.Parameters(), wrapped.Parameters())
	assert.Equal(t, tool.OutputSchema(), wrapped.OutputSchema())
}

func TestRegistry_Use(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newDoubleTool(t))
	log, logs := observedLogger()
	reg.Use(WithRecovery(), WithLogging(log))

	args, err := json.Marshal(doubleArgs{X: 2})
	require.NoError(t, err)
	result := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: args})
	require.True(t, result.Success)
	var r doubleResult
	require.NoError(t, json.Unmarshal(result.Result, &r))
	assert.Equal(t, 4, r.Y)
	assert.Equal(t, 1, logs.FilterMessage("tool end").Len())
}

func TestRegistry_Use_NoDoubleWrap(t *testing.T) {
	log, logs := observedLogger()
	reg := NewRegistry()
	reg.Register(newDoubleTool(t))
	reg.Use(WithRecovery())
	reg.Use(WithLogging(log))

	result := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x":3}`)})
	require.True(t, result.Success)
	require.Equal(t, 1, logs.FilterMessage("tool start").Len())
}

func TestRegistry_Use_AppliesToLaterTools(t *testing.T) {
	log, logs := observedLogger()
	reg := NewRegistry()
	reg.Use(WithLogging(log))
	reg.Register(newDoubleTool(t))

	result := reg.Execute(context.Background(), ToolCall{ID: "1", ToolName: "double", Args: raw(`{"x":3}`)})
	require.True(t, result.Success)
	assert.Equal(t, 1, logs.FilterMessage("tool start").Len())
}
