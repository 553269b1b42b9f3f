package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/settingstree/internal/registry"
	"github.com/eugenenazirov/settingstree/internal/source"
	"github.com/eugenenazirov/settingstree/internal/tree"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// SettingsStore is the part of the settings registry exposed over HTTP.
type SettingsStore interface {
	Groups() []string
	Environment() string
	Settings(name string) (tree.Value, error)
	ReloadGroup(name string) (bool, error)
	ReloadAll() error
	SetEnvironment(env string) error
}

// Handler wires a settings store into HTTP handlers.
type Handler struct {
	store SettingsStore

	clock func() time.Time

	mu         sync.RWMutex
	reloadedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving the given store.
func NewHandler(store SettingsStore, opts ...HandlerOption) *Handler {
	h := &Handler{
		store: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reloadedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := groupsResponse{
		Groups:      h.store.Groups(),
		Environment: h.store.Environment(),
		ReloadedAt:  h.currentReloadedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	settings, err := h.store.Settings(group)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	resp := groupResponse{
		Group:       registry.NormalizeName(group),
		Environment: h.store.Environment(),
		Settings:    settings,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	path := strings.ReplaceAll(strings.Trim(r.PathValue("path"), "/"), "/", tree.PathSeparator)

	settings, err := h.store.Settings(group)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	value := settings.Lookup(path)
	if value.IsAbsent() {
		writeError(w, http.StatusNotFound, "Unknown setting", "no setting at path "+path)
		return
	}

	resp := settingResponse{
		Group: registry.NormalizeName(group),
		Path:  path,
		Kind:  value.Kind().String(),
		Value: value,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReloadGroup(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	if _, err := h.store.ReloadGroup(group); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markReloaded()
	resp := reloadResponse{
		Groups:     []string{registry.NormalizeName(group)},
		ReloadedAt: h.currentReloadedAt(),
		Message:    "Settings group reloaded successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReloadAll(w http.ResponseWriter, r *http.Request) {
	_ = r
	if err := h.store.ReloadAll(); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markReloaded()
	resp := reloadResponse{
		Groups:     h.store.Groups(),
		ReloadedAt: h.currentReloadedAt(),
		Message:    "Settings reloaded successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetEnvironment(w http.ResponseWriter, r *http.Request) {
	_ = r
	writeJSON(w, http.StatusOK, environmentResponse{Environment: h.store.Environment()})
}

func (h *Handler) handlePutEnvironment(w http.ResponseWriter, r *http.Request) {
	var req environmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	env := strings.TrimSpace(req.Environment)
	if err := h.store.SetEnvironment(env); err != nil {
		writeStoreError(w, err)
		return
	}

	h.markReloaded()
	resp := environmentResponse{
		Environment: env,
		Message:     "Environment changed and settings reloaded",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) currentReloadedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reloadedAt
}

func (h *Handler) markReloaded() {
	h.mu.Lock()
	h.reloadedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type environmentRequest struct {
	Environment string `json:"environment"`
}

type environmentResponse struct {
	Environment string `json:"environment"`
	Message     string `json:"message,omitempty"`
}

type groupsResponse struct {
	Groups      []string  `json:"groups"`
	Environment string    `json:"environment"`
	ReloadedAt  time.Time `json:"reloadedAt"`
}

type groupResponse struct {
	Group       string     `json:"group"`
	Environment string     `json:"environment"`
	Settings    tree.Value `json:"settings"`
}

type settingResponse struct {
	Group string     `json:"group"`
	Path  string     `json:"path"`
	Kind  string     `json:"kind"`
	Value tree.Value `json:"value"`
}

type reloadResponse struct {
	Groups     []string  `json:"groups"`
	ReloadedAt time.Time `json:"reloadedAt"`
	Message    string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		if status != http.StatusInternalServerError {
			writeInternalError(w, fmt.Errorf("encode response: %w", err))
			return
		}
		http.Error(w, `{"error":"Internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeStoreError(w http.ResponseWriter, err error) {
	var srcErr *source.SourceError
	switch {
	case errors.Is(err, registry.ErrUnknownGroup):
		writeError(w, http.StatusNotFound, "Unknown group", err.Error())
	case source.IsNotFound(err):
		writeError(w, http.StatusUnprocessableEntity, "Source not found", err.Error(),
			"Restore the missing settings file or restart without it")
	case errors.As(err, &srcErr):
		writeError(w, http.StatusUnprocessableEntity, "Invalid source", err.Error(),
			"Fix the settings file "+srcErr.Locator+" and reload")
	case errors.Is(err, source.ErrUnsupportedSource):
		writeError(w, http.StatusUnprocessableEntity, "Unsupported source", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
