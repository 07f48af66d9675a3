package recommendation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/patient"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/metrics"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Handler serves per-patient recommendation requests
type Handler struct {
	provider Provider
	patients *patient.Repository
}

func NewHandler(provider Provider, patients *patient.Repository) *Handler {
	return &Handler{provider: provider, patients: patients}
}

// Mount registers the recommendation route on the patients router, so
// the full path is /patients/{id}/recommendations.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/{id}/recommendations", h.recommend)
}

func (h *Handler) recommend(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, apperrors.BadRequest("invalid patient id"))
		return
	}

	p, err := h.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.provider.Recommend(r.Context(), p)
	if err != nil {
		metrics.RecordRecommendation(h.provider.Name(), StatusError)
		writeError(w, err)
		return
	}

	metrics.RecordRecommendation(h.provider.Name(), result.Status)

	if result.Candidates == nil {
		result.Candidates = []Candidate{}
	}
	writeJSON(w, http.StatusOK, result)
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
