// Package httpapi serves the tool registry over plain HTTP next to the MCP endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/skosovsky/plantool"
	"github.com/skosovsky/plantool/logger"
)

// maxBodyBytes bounds a tool call body.
const maxBodyBytes = 1 << 20

// ReadyCheck reports whether a dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	// MCP is mounted at MCPPath when set.
	MCP     http.Handler
	MCPPath string
	// Ready holds named readiness checks run by GET /readyz.
	Ready map[string]ReadyCheck
	Log   *logger.Logger
}

type api struct {
	reg   *plantool.Registry
	ready map[string]ReadyCheck
	log   *logger.Logger
}

// ToolInfo describes a registered tool in GET /tools.
type ToolInfo struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Parameters   map[string]any `json:"parameters"`
	OutputSchema map[string]any `json:"output_schema,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Version      string         `json:"version,omitempty"`
	WritesPlan   bool           `json:"writes_plan"`
}

// NewRouter builds the HTTP surface:
//
//	GET  /healthz
//	GET  /readyz
//	GET  /tools
//	POST /tools/{name}
func NewRouter(reg *plantool.Registry, opts Options) http.Handler {
	log := opts.Log
	if log == nil {
		log = logger.NewNop()
	}
	a := &api{reg: reg, ready: opts.Ready, log: log.With("component", "http")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", a.handleReady)
	r.Get("/tools", a.handleListTools)
	r.Post("/tools/{name}", a.handleCallTool)
	if opts.MCP != nil {
		path := opts.MCPPath
		if path == "" {
			path = "/mcp"
		}
		r.Handle(path, opts.MCP)
	}
	return r
}

func (a *api) handleListTools(w http.ResponseWriter, _ *http.Request) {
	tools := a.reg.GetAllTools()
	out := make([]ToolInfo, 0, len(tools))
	for _, t := range tools {
		info := ToolInfo{
			Name:         t.Name(),
			Description:  t.Description(),
			Parameters:   t.Parameters(),
			OutputSchema: t.OutputSchema(),
		}
		if meta, ok := t.(plantool.ToolMetadata); ok {
			info.Tags = meta.Tags()
			info.Version = meta.Version()
			info.WritesPlan = meta.WritesPlan()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, plantool.ToolResult{
			ToolName:  name,
			ErrorKind: plantool.KindValidation,
			Message:   "request body too large",
		})
		return
	}
	callID := r.Header.Get("X-Call-ID")
	if callID == "" {
		callID = uuid.NewString()
	}
	res := a.reg.Execute(r.Context(), plantool.ToolCall{ID: callID, ToolName: name, Args: body})
	writeJSON(w, statusOf(res), res)
}

// statusOf maps the envelope to an HTTP status. Tool failures other than an unknown tool or
// shutdown are reported in the 200 envelope so agents read error_kind the same way as over MCP.
func statusOf(res plantool.ToolResult) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.ErrorKind == plantool.KindToolNotFound:
		return http.StatusNotFound
	case res.ErrorKind == plantool.KindShutdown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func (a *api) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(a.ready))
	for name := range a.ready {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := a.ready[name](ctx); err != nil {
			a.log.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"ready": status == http.StatusOK, "checks": checks})
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
