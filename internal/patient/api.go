package patient

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

// Handler provides HTTP endpoints for patient records
type Handler struct {
	repo *Repository
	bus  events.Publisher
}

func NewHandler(repo *Repository, bus events.Publisher) *Handler {
	return &Handler{repo: repo, bus: bus}
}

// Routes returns the patient router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/search", h.search)
	r.Get("/by-pathogen", h.byPathogen)
	r.Get("/antibiotics-usage", h.antibioticsUsage)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/labs", h.labs)

	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		Search:   r.URL.Query().Get("search"),
		Pathogen: r.URL.Query().Get("pathogen"),
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		filter.PageSize = size
	}

	resp, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
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

	now := time.Now().UTC()
	p := &Patient{
		ID:                 types.NewID(),
		PatientID:          req.PatientID,
		Name:               req.Name,
		Gender:             req.Gender,
		Age:                req.Age,
		BodyWeight:         req.BodyWeight,
		Height:             req.Height,
		WBC:                req.WBC,
		Hb:                 req.Hb,
		Platelet:           req.Platelet,
		AST:                req.AST,
		ALT:                req.ALT,
		SCr:                req.SCr,
		CockcroftGaultCrCl: req.CockcroftGaultCrCl,
		CRP:                req.CRP,
		BodyTemperature:    req.BodyTemperature,
		Diagnosis1:         req.Diagnosis1,
		Diagnosis2:         req.Diagnosis2,
		Pathogen:           req.Pathogen,
		SampleType:         req.SampleType,
		Antibiotics:        req.Antibiotics,
		Allergies:          req.Allergies,
		CurrentMedications: req.CurrentMedications,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := h.repo.Create(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordPatientCreated()
	h.publish(r, "patient.created", p.ID, map[string]any{
		"patient_id": p.PatientID,
		"name":       p.Name,
	})

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid patient id"))
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*Patient
		BMI       *float64 `json:"bmi,omitempty"`
		RiskLevel string   `json:"risk_level"`
	}{p, p.BMI(), RiskLevel(p)})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid patient id"))
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}

	p, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "patient.updated", p.ID, map[string]any{
		"patient_id": p.PatientID,
	})

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid patient id"))
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.publish(r, "patient.deleted", id, nil)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, apperrors.BadRequest("query parameter q is required"))
		return
	}

	patients, err := h.repo.SearchByName(r.Context(), term, 10)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

func (h *Handler) byPathogen(w http.ResponseWriter, r *http.Request) {
	pathogen := r.URL.Query().Get("pathogen")
	if pathogen == "" {
		writeError(w, apperrors.BadRequest("query parameter pathogen is required"))
		return
	}

	filter := ListFilter{Pathogen: pathogen}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
		filter.PageSize = size
	}

	resp, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) antibioticsUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.repo.AntibioticsUsage(r.Context(), r.URL.Query().Get("antibiotic"))
	if err != nil {
		writeError(w, err)
		return
	}
	if usage == nil {
		usage = []AntibioticUsage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": usage})
}

func (h *Handler) labs(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid patient id"))
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	summary := LabSummary{
		PatientID:          p.PatientID,
		Name:               p.Name,
		WBC:                p.WBC,
		Hb:                 p.Hb,
		Platelet:           p.Platelet,
		AST:                p.AST,
		ALT:                p.ALT,
		SCr:                p.SCr,
		CockcroftGaultCrCl: p.CockcroftGaultCrCl,
		CRP:                p.CRP,
		BodyTemperature:    p.BodyTemperature,
		BMI:                p.BMI(),
		RiskLevel:          RiskLevel(p),
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) publish(r *http.Request, eventType string, id types.ID, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["id"] = id.String()
	event := events.NewEvent(eventType, "patient", data)
	if user := auth.UserFromContext(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.FullName, user.Role)
	}
	if err := h.bus.Publish(r.Context(), event); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
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
