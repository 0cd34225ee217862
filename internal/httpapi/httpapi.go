// Package httpapi serves the registry over HTTP/JSON.
//
// Routes are registered on a grpc-gateway ServeMux with HandlePath, so the
// same {param} path templates the gRPC gateway uses apply here. Every
// response, including routing failures, uses the message.Response envelope.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"

	"go.klb.dev/sharedclip/internal/message"
	"go.klb.dev/sharedclip/internal/registry"
)

// bodySlack is the allowance for JSON framing on top of the content limit.
const bodySlack = 64 * 1024

// Config describes the service to HTTP clients.
type Config struct {
	Name    string
	Version string
	// MaxContentBytes bounds request bodies; zero disables the bound.
	MaxContentBytes int
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

// Server is the HTTP transport adapter for the registry.
type Server struct {
	reg     *registry.Registry
	cfg     Config
	started time.Time
	handler http.Handler
}

// New builds a Server for reg.
func New(reg *registry.Registry, cfg Config) (*Server, error) {
	s := &Server{reg: reg, cfg: cfg, started: time.Now()}

	gw := gwruntime.NewServeMux(gwruntime.WithRoutingErrorHandler(routingError))
	routes := []struct {
		method, pattern string
		h               gwruntime.HandlerFunc
	}{
		{http.MethodPost, "/share/shared_clipboard", s.handleCreate},
		{http.MethodGet, "/share/shared_clipboard", s.handleDeviceCount},
		{http.MethodPost, "/share/shared_clipboard/set", s.handleSet},
		{http.MethodDelete, "/share/shared_clipboard/{device_id}", s.handleRemove},
		{http.MethodGet, "/share/shared_clipboard/{device_id}", s.handleGet},
		{http.MethodGet, "/share/shared_clipboard/{device_id}/count", s.handleHistoryCount},
		{http.MethodGet, "/share/shared_clipboard/{device_id}/raw", s.handleRaw},
		{http.MethodGet, "/share/devices", s.handleDevices},
	}
	for _, rt := range routes {
		if err := gw.HandlePath(rt.method, rt.pattern, rt.h); err != nil {
			return nil, fmt.Errorf("route %s %s: %w", rt.method, rt.pattern, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/", gw)

	s.handler = withMiddleware(mux, cfg)
	return s, nil
}

// withMiddleware wraps h with the standard stack. Panic recovery sits inside
// the access log so failed requests are still logged.
func withMiddleware(h http.Handler, cfg Config) http.Handler {
	return chain(h,
		withRequestID,
		accessLog,
		recoverPanics,
		withCORS(cfg.CORSOrigins),
	)
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message.OK("Welcome to "+s.cfg.Name, map[string]any{
		"version": s.cfg.Version,
		"status":  "running",
	}))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, message.OK("healthy", map[string]any{
		"status":   "healthy",
		"service":  s.cfg.Name,
		"version":  s.cfg.Version,
		"uptime_s": int(time.Since(s.started).Seconds()),
		"devices":  s.reg.Count(),
	}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req message.DeviceRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reqID, err := message.ResolveRequestID(req.RequestID)
	if err != nil {
		writeError(w, r, registry.InvalidInput(err.Error()))
		return
	}
	id := req.Device()
	if id == "" {
		writeError(w, r, registry.InvalidInput("devices_id is required"))
		return
	}

	if err := s.reg.Create(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.OK("Shared clipboard instance created", map[string]any{
		"device_id":  id,
		"request_id": reqID,
	}))
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id := params["device_id"]
	if err := s.reg.Remove(id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.OK("Shared clipboard instance removed", map[string]any{
		"device_id": id,
	}))
}

func (s *Server) handleHistoryCount(w http.ResponseWriter, r *http.Request, params map[string]string) {
	n, err := s.reg.HistoryCount(params["device_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message.OK("Retrieved successfully", map[string]any{"count": n}))
}

func (s *Server) handleDeviceCount(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	writeJSON(w, http.StatusOK, message.OK("Retrieved successfully", map[string]any{
		"device_count": s.reg.Count(),
	}))
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req message.SetRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reqID, err := message.ResolveRequestID(req.RequestID)
	if err != nil {
		writeError(w, r, registry.InvalidInput(err.Error()))
		return
	}
	if req.Content == nil {
		writeError(w, r, registry.InvalidInput("content is required"))
		return
	}

	res, err := s.reg.SetContent(req.Device(), *req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := "Shared clipboard content set for all devices"
	if res.Scope == registry.ScopeDevice {
		msg = "Shared clipboard content set for " + res.DeviceID
	}
	data := map[string]any{
		"written":    res.Written,
		"request_id": reqID,
	}
	if res.DeviceID != "" {
		data["device_id"] = res.DeviceID
	}
	writeJSON(w, http.StatusOK, message.OK(msg, data))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, params map[string]string) {
	snap, err := s.reg.Snapshot(params["device_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	data := map[string]any{
		"device_id":   snap.DeviceID,
		"has_current": snap.HasCurrent,
		"history":     snap.History,
		"count":       len(snap.History),
	}
	if snap.HasCurrent {
		data["current"] = snap.Current
		data["updated_at"] = snap.UpdatedAt
	}
	writeJSON(w, http.StatusOK, message.OK("Retrieved successfully", data))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request, params map[string]string) {
	snap, err := s.reg.Snapshot(params["device_id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !snap.HasCurrent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(snap.Current))
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	devs := s.reg.Devices()
	rows := make([]map[string]any, 0, len(devs))
	for _, d := range devs {
		row := map[string]any{
			"device_id":     d.DeviceID,
			"count":         d.HistoryCount,
			"has_current":   d.HasCurrent,
			"registered_at": d.RegisteredAt,
		}
		if !d.UpdatedAt.IsZero() {
			row["updated_at"] = d.UpdatedAt
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, message.OK("Retrieved successfully", map[string]any{
		"device_count": len(rows),
		"devices":      rows,
	}))
}

// decode reads the JSON body into v, bounding its size when a content limit
// is configured.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if s.cfg.MaxContentBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxContentBytes)+bodySlack)
	}
	if err := message.Decode(body, v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return &registry.Error{Kind: registry.KindTooLarge, Detail: "request body too large"}
		}
		return registry.InvalidInput(err.Error())
	}
	return nil
}

// statusFor maps a registry error kind to an HTTP status.
func statusFor(err error) int {
	switch registry.KindOf(err) {
	case registry.KindAlreadyExists, registry.KindInvalidInput:
		return http.StatusBadRequest
	case registry.KindNotFound:
		return http.StatusNotFound
	case registry.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text for err. Unexpected errors never
// leak their details.
func publicMessage(err error) string {
	switch registry.KindOf(err) {
	case registry.KindAlreadyExists:
		return "Device ID already exists"
	case registry.KindNotFound:
		return "Device ID not found"
	case registry.KindInvalidInput, registry.KindTooLarge:
		return err.Error()
	default:
		return "internal server error"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", RequestID(r.Context()), "err", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, message.Fail(status, publicMessage(err)))
}

func routingError(_ context.Context, _ *gwruntime.ServeMux, _ gwruntime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	msg := http.StatusText(status)
	if status == http.StatusNotFound {
		msg = "route not found"
	}
	writeJSON(w, status, message.Fail(status, msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
