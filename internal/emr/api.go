package emr

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/shared/auth"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/events"
	"github.com/stewardrx/platform/internal/shared/metrics"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Handler provides EMR order endpoints
type Handler struct {
	repo *Repository
	bus  events.Publisher
}

func NewHandler(repo *Repository, bus events.Publisher) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes returns the EMR order router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/orders", h.list)
	r.Post("/orders", h.create)
	r.Get("/orders/{id}", h.get)
	r.Post("/orders/{id}/send", h.send)
	r.Post("/orders/{id}/acknowledge", h.acknowledge)

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Status: r.URL.Query().Get("status")}
	if pid := r.URL.Query().Get("patient_id"); pid != "" {
		id, err := types.ParseID(pid)
		if err != nil {
			writeError(w, apperrors.BadRequest("invalid patient_id"))
			return
		}
		filter.PatientID = id
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	orders, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	route := req.Route
	if route == "" {
		route = "IV"
	}

	now := time.Now().UTC()
	order := &Order{
		ID:         types.NewID(),
		PatientID:  req.PatientID,
		Antibiotic: req.Antibiotic,
		Dose:       req.Dose,
		Frequency:  req.Frequency,
		Route:      route,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if user := auth.UserFromContext(r.Context()); user != nil {
		order.OrderedBy = &user.ID
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordEMROrder(StatusDraft)
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid order id"))
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusDraft, StatusSent, "emr.order.sent")
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusSent, StatusAcknowledged, "emr.order.acknowledged")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, from, to, eventType string) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid order id"))
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordEMROrder(to)

	event := events.NewEvent(eventType, "emr", map[string]any{
		"order_id":   order.ID.String(),
		"patient_id": order.PatientID.String(),
		"antibiotic": order.Antibiotic,
	})
	if user := auth.UserFromContext(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.FullName, user.Role)
	}
	if err := h.bus.Publish(r.Context(), event); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}

	writeJSON(w, http.StatusOK, order)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.HTTPStatus, map[string]interface{}{"error": appErr})
		return
	}
	log.Error().Err(err).Msg("unhandled error")
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]string{
			"code":    "INTERNAL_ERROR",
			"message": "internal server error",
		},
	})
}
