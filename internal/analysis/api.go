package analysis

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/stewardrx/platform/internal/shared/auth"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/events"
	"github.com/stewardrx/platform/internal/shared/metrics"
)

// Handler serves the prescription analysis endpoint
type Handler struct {
	aggregator *Aggregator
	bus        events.Publisher
}

func NewHandler(aggregator *Aggregator, bus events.Publisher) *Handler {
	return &Handler{aggregator: aggregator, bus: bus}
}

// Routes returns the analysis router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/prescriptions", h.prescriptions)
	return r
}

func (h *Handler) prescriptions(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RecordAnalysisRun(
		report.Summary.ExactMatches,
		report.Summary.PartialMatches,
		report.Summary.NoMatches,
		report.Summary.NoRecommendations,
	)

	event := events.NewEvent("analysis.run", "analysis", map[string]any{
		"total_patients": report.Summary.TotalPatients,
		"exact_matches":  report.Summary.ExactMatches,
		"match_rate":     report.Summary.MatchRate,
	})
	if user := auth.UserFromContext(r.Context()); user != nil {
		event = event.WithActor(user.ID, user.FullName, user.Role)
	}
	if err := h.bus.Publish(r.Context(), event); err != nil {
		log.Warn().Err(err).Msg("failed to publish analysis event")
	}

	writeJSON(w, http.StatusOK, report)
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
