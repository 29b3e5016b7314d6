package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-widget/internal/availability"
	"github.com/wolfman30/booking-widget/internal/booking"
	"github.com/wolfman30/booking-widget/internal/config"
	"github.com/wolfman30/booking-widget/internal/dates"
	"github.com/wolfman30/booking-widget/pkg/logging"
)

// Handler exposes booking sessions over JSON. Every event responds with the
// session's full View.
type Handler struct {
	source   config.Source
	newFlow  FlowFactory
	sessions *Sessions
	logger   *logging.Logger
}

// NewHandler creates a widget session handler.
func NewHandler(source config.Source, newFlow FlowFactory, sessions *Sessions, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		source:   source,
		newFlow:  newFlow,
		sessions: sessions,
		logger:   logger.Component("widget"),
	}
}

// Routes returns a chi router with the session routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateSession)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/service", h.SelectService)
		r.Post("/navigate", h.Navigate)
		r.Post("/refresh", h.Refresh)
		r.Post("/date", h.SelectDate)
		r.Post("/slot", h.SelectSlot)
		r.Post("/form", h.OpenForm)
		r.Patch("/form", h.UpdateForm)
		r.Post("/submit", h.Submit)
		r.Post("/back", h.Back)
		r.Post("/dismiss", h.Dismiss)
		r.Post("/cancel", h.Cancel)
	})
	return r
}

// CreateSession starts a flow on the current widget config and loads the
// first calendar page. A failed initial fetch still creates the session; the
// view carries the error and the shell can refresh.
// POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.source.Widget(r.Context())
	if err != nil {
		h.logger.Error("failed to load widget config", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "widget configuration unavailable"})
		return
	}
	flow, err := h.newFlow(cfg)
	if err != nil {
		var noActive *config.NoActiveServicesError
		if errors.As(err, &noActive) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to create booking flow", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	sess := h.sessions.Add(cfg, flow)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := flow.Start(r.Context()); err != nil {
		h.logger.Warn("initial availability fetch failed", "session_id", sess.ID, "error", err)
	}
	h.logger.Info("booking session created", "session_id", sess.ID, "service_id", flow.ServiceID())
	writeJSON(w, http.StatusCreated, buildView(sess, nil))
}

// GET /sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "get", func(_ *Session) error { return nil })
}

// DELETE /sessions/{sessionID}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Remove(chi.URLParam(r, "sessionID")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectServiceRequest struct {
	ServiceID string `json:"serviceId"`
}

// POST /sessions/{sessionID}/service
func (h *Handler) SelectService(w http.ResponseWriter, r *http.Request) {
	var req selectServiceRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, "select_service", func(s *Session) error {
		return s.Flow.SelectService(r.Context(), req.ServiceID)
	})
}

type navigateRequest struct {
	Delta int `json:"delta"`
}

// POST /sessions/{sessionID}/navigate
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, "navigate", func(s *Session) error {
		return s.Flow.Navigate(r.Context(), req.Delta)
	})
}

// POST /sessions/{sessionID}/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "refresh", func(s *Session) error {
		return s.Flow.Refresh(r.Context())
	})
}

type selectDateRequest struct {
	Date string `json:"date"`
}

// POST /sessions/{sessionID}/date
func (h *Handler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req selectDateRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, "select_date", func(s *Session) error {
		date, err := dates.ParseISO(req.Date, s.Flow.Location())
		if err != nil {
			return badRequest(err)
		}
		return s.Flow.SelectDate(date)
	})
}

type selectSlotRequest struct {
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime,omitempty"`
	ResourceID string `json:"resourceId"`
}

func (req selectSlotRequest) slot() (availability.TimeSlot, error) {
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return availability.TimeSlot{}, fmt.Errorf("invalid startTime: %w", err)
	}
	slot := availability.TimeSlot{Start: start, ResourceID: req.ResourceID}
	if req.EndTime != "" {
		end, err := time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			return availability.TimeSlot{}, fmt.Errorf("invalid endTime: %w", err)
		}
		slot.End = end
	}
	return slot, nil
}

// POST /sessions/{sessionID}/slot
func (h *Handler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req selectSlotRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, "select_slot", func(s *Session) error {
		slot, err := req.slot()
		if err != nil {
			return badRequest(err)
		}
		return s.Flow.SelectTimeSlot(slot)
	})
}

// POST /sessions/{sessionID}/form
func (h *Handler) OpenForm(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "open_form", func(s *Session) error {
		return s.Flow.OpenForm()
	})
}

type updateFormRequest struct {
	Fields     map[string]string `json:"fields"`
	Checkboxes map[string]bool   `json:"checkboxes"`
}

// UpdateForm writes form inputs. Inputs are applied in name order and the
// first rejected one stops the update.
// PATCH /sessions/{sessionID}/form
func (h *Handler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req updateFormRequest
	if !decode(w, r, &req) {
		return
	}
	h.with(w, r, "update_form", func(s *Session) error {
		for _, name := range sortedKeys(req.Fields) {
			if err := s.Flow.SetField(config.FieldName(name), req.Fields[name]); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
		}
		for _, kind := range sortedKeys(req.Checkboxes) {
			if err := s.Flow.SetCheckbox(config.CheckboxKind(kind), req.Checkboxes[kind]); err != nil {
				return fmt.Errorf("checkbox %s: %w", kind, err)
			}
		}
		return nil
	})
}

// Submit books the selected slot. The provider calls are detached from the
// request's cancellation so a dropped connection cannot abandon a booking
// half way; the scheduling client's timeout still bounds them.
// POST /sessions/{sessionID}/submit
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "submit", func(s *Session) error {
		return s.Flow.Submit(context.WithoutCancel(r.Context()))
	})
}

// POST /sessions/{sessionID}/back
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "back", func(s *Session) error { return s.Flow.Back() })
}

// POST /sessions/{sessionID}/dismiss
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "dismiss", func(s *Session) error { return s.Flow.Dismiss() })
}

// POST /sessions/{sessionID}/cancel
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.with(w, r, "cancel", func(s *Session) error { return s.Flow.Cancel() })
}

func (h *Handler) with(w http.ResponseWriter, r *http.Request, event string, fn func(*Session) error) {
	sess, ok := h.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	err := fn(sess)
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("booking event failed", "session_id", sess.ID, "event", event, "error", err)
		} else {
			h.logger.Debug("booking event rejected", "session_id", sess.ID, "event", event, "error", err)
		}
	}
	writeJSON(w, status, buildView(sess, err))
}

type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

func statusFor(err error) int {
	var (
		reqErr   *requestError
		verr     *booking.ValidationError
		subErr   *booking.SubmissionError
		fetchErr *availability.FetchError
	)
	switch {
	case errors.As(err, &reqErr), errors.Is(err, booking.ErrNavigateTooFar):
		return http.StatusBadRequest
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &subErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.Is(err, booking.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, booking.ErrNotSelectable),
		errors.Is(err, booking.ErrUnknownSlot),
		errors.Is(err, booking.ErrUnknownService),
		errors.Is(err, booking.ErrFieldDisabled):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
