package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/charliek/npcctl/internal/constants"
	"github.com/charliek/npcctl/internal/domain"
	"github.com/charliek/npcctl/internal/logs"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 * 1024

// Controller is the part of the supervisor the API drives
type Controller interface {
	Status() domain.ProcessInfo
	Start(ctx context.Context, params domain.ConnectParams) error
	Stop(ctx context.Context) error
}

// SettingsStore persists connection settings
type SettingsStore interface {
	Load() (domain.ConnectionConfig, error)
	Save(cfg domain.ConnectionConfig) error
	Path() string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	controller Controller
	store      SettingsStore
	logManager *logs.Manager
	logger     *zap.Logger
}

// NewHandlers creates new HTTP handlers
func NewHandlers(controller Controller, store SettingsStore, logMgr *logs.Manager, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		controller: controller,
		store:      store,
		logManager: logMgr,
		logger:     logger,
	}
}

// GetStatus handles GET /api/v1/status
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ToStatusResponse(h.controller.Status(), h.store.Path()))
}

// Connect handles POST /api/v1/connect. The stored settings are used,
// overlaid with any fields in the optional JSON body.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	cfg, err := h.loadSettings()
	if err != nil {
		h.writeError(w, err)
		return
	}
	cfg, err = req.Apply(cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.Save {
		if err := h.store.Save(cfg); err != nil {
			h.writeError(w, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultRequestTimeout)
	defer cancel()

	if err := h.controller.Start(ctx, cfg.Params()); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToStatusResponse(h.controller.Status(), h.store.Path()))
}

// Disconnect handles POST /api/v1/disconnect
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	if !h.controller.Status().State.IsActive() {
		h.writeError(w, domain.ErrNotRunning)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultRequestTimeout)
	defer cancel()

	if err := h.controller.Stop(ctx); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// GetSettings handles GET /api/v1/settings
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Load()
	resp := ToSettingsResponse(cfg)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidConfig) {
			h.writeError(w, err)
			return
		}
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutSettings handles PUT /api/v1/settings
func (h *Handlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	cfg, err := h.loadSettings()
	if err != nil {
		h.writeError(w, err)
		return
	}
	cfg, err = req.Apply(cfg)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.store.Save(cfg); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToSettingsResponse(cfg))
}

// GetLogs handles GET /api/v1/logs
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	filter, limit, err := parseLogParams(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries, total, err := h.logManager.Query(filter, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := LogsResponse{
		Logs:          make([]LogEntryResponse, len(entries)),
		FilteredCount: len(entries),
		TotalCount:    total,
	}

	for i, e := range entries {
		resp.Logs[i] = ToLogEntryResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// loadSettings reads the stored settings. A malformed auth key is not fatal
// here since the store substitutes the default key.
func (h *Handlers) loadSettings() (domain.ConnectionConfig, error) {
	cfg, err := h.store.Load()
	if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
		return cfg, err
	}
	if err != nil {
		h.logger.Warn("using default auth key", zap.Error(err))
	}
	return cfg, nil
}

// parseLogParams extracts log filter parameters from request
func parseLogParams(r *http.Request) (domain.LogFilter, int, error) {
	filter, err := parseLogFilter(r)
	if err != nil {
		return filter, 0, err
	}

	// Lines limit (default 100, max 10000 to prevent DoS)
	limit := constants.DefaultLogLimit
	if linesStr := r.URL.Query().Get("lines"); linesStr != "" {
		if l, err := strconv.Atoi(linesStr); err == nil && l > 0 {
			if l > constants.MaxLogLines {
				limit = constants.MaxLogLines
			} else {
				limit = l
			}
		}
	}

	return filter, limit, nil
}

// parseLogFilter reads the stream, pattern and regex query parameters
func parseLogFilter(r *http.Request) (domain.LogFilter, error) {
	q := r.URL.Query()
	filter := domain.LogFilter{
		Pattern: q.Get("pattern"),
		IsRegex: q.Get("regex") == "true",
	}

	if streams := q.Get("stream"); streams != "" {
		for _, s := range strings.Split(streams, ",") {
			stream := domain.Stream(strings.TrimSpace(s))
			switch stream {
			case domain.StreamStdout, domain.StreamStderr, domain.StreamSystem:
				filter.Streams = append(filter.Streams, stream)
			default:
				return filter, fmt.Errorf("%w: unknown stream %q", domain.ErrInvalidPattern, s)
			}
		}
	}

	return filter, nil
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decoding request body: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("bad request")

func fmtInvalidProtocol(name string) error {
	return fmt.Errorf("%w: unknown protocol %q, expected one of %s",
		domain.ErrInvalidParams, name, strings.Join(domain.Protocols, ", "))
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := domain.ErrorCode(err)
	message := err.Error()

	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		code = "BAD_REQUEST"
	case errors.Is(err, domain.ErrInvalidParams),
		errors.Is(err, domain.ErrInvalidPattern),
		errors.Is(err, domain.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyRunning),
		errors.Is(err, domain.ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrStartTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrExecutableNotFound),
		errors.Is(err, domain.ErrStartFailed),
		errors.Is(err, domain.ErrConfigWrite):
		// message names the path, which is local to the caller anyway
	default:
		// For unknown errors, log the actual error but return a sanitized message
		// to avoid leaking internal paths or sensitive information
		h.logger.Error("internal error", zap.Error(err))
		message = "an internal error occurred"
	}

	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
