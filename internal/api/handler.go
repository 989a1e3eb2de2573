package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/forge-settings/internal/settings"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const profileHeader = "X-Settings-Profile"

// maxRequestBody bounds the POST /api/resolve payload.
const maxRequestBody = 16 << 10

// SettingsLoader produces the effective settings for a set of signals.
type SettingsLoader interface {
	Load(signals settings.Signals) (settings.Resolution, error)
}

// Handler serves resolved settings over HTTP.
type Handler struct {
	loader  SettingsLoader
	signals func() settings.Signals
	logger  *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithSignals overrides how GET /api/settings reads the environment signals.
func WithSignals(read func() settings.Signals) HandlerOption {
	return func(h *Handler) {
		h.signals = read
	}
}

// WithHandlerLogger sets the logger used for resolution failures.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler around loader.
func NewHandler(loader SettingsLoader, opts ...HandlerOption) *Handler {
	h := &Handler{
		loader: loader,
		signals: func() settings.Signals {
			return settings.ReadSignals(nil)
		},
		logger: zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
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

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	h.respondWithSettings(w, r, h.signals())
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req settings.Signals
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	h.respondWithSettings(w, r, req)
}

func (h *Handler) respondWithSettings(w http.ResponseWriter, r *http.Request, signals settings.Signals) {
	res, err := h.loader.Load(signals)
	if err != nil {
		h.logger.Error("settings resolution failed",
			zap.Error(err),
			zap.String("request_id", requestIDFromContext(r.Context())),
		)
		switch {
		case errors.Is(err, settings.ErrProbe):
			writeError(w, http.StatusInternalServerError, "Override check failed", err.Error())
		case errors.Is(err, settings.ErrInvalidOverlay), errors.Is(err, settings.ErrUnsupportedOverlay):
			writeError(w, http.StatusInternalServerError, "Invalid override file", err.Error())
		default:
			writeInternalError(w, err)
		}
		return
	}

	w.Header().Set(profileHeader, res.Profile.String())
	writeJSON(w, http.StatusOK, settingsResponse{
		Document:   res.Document(),
		ResolvedAt: h.clock(),
	})
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type settingsResponse struct {
	settings.Document
	ResolvedAt time.Time `json:"resolvedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
