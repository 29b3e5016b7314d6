package config

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

// Handler provides admin endpoints for stored widget configs.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a widget config HTTP handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// Routes returns a chi router with widget config admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{widgetID}/config", h.GetConfig)
	r.Put("/{widgetID}/config", h.PutConfig)
	return r
}

// GetConfig returns the normalized config for a widget.
// GET /admin/widgets/{widgetID}/config
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetID")
	cfg, err := h.store.Get(r.Context(), widgetID)
	if errors.Is(err, ErrWidgetNotFound) {
		http.Error(w, `{"error": "widget not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get widget config", "widget_id", widgetID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Error("failed to encode widget config", "widget_id", widgetID, "error", err)
	}
}

// PutConfig replaces the config for a widget. The body is validated the same
// way a config file is.
// PUT /admin/widgets/{widgetID}/config
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	widgetID := chi.URLParam(r, "widgetID")
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error": "invalid body"}`, http.StatusBadRequest)
		return
	}
	cfg, err := ParseWidget(body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err := h.store.Set(r.Context(), widgetID, cfg); err != nil {
		h.logger.Error("failed to save widget config", "widget_id", widgetID, "error", err)
		http.Error(w, `{"error": "failed to save config"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("widget config updated", "widget_id", widgetID, "services", len(cfg.Services))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(cfg); err != nil {
		h.logger.Error("failed to encode widget config", "widget_id", widgetID, "error", err)
	}
}
