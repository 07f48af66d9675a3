package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
)

// Handler exposes the audit trail
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the audit router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/verify", h.verify)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		EventType: r.URL.Query().Get("event_type"),
		ActorID:   r.URL.Query().Get("actor_id"),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		filter.Offset = offset
	}

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	chain, err := h.repo.Chain(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	badSequence, verifyErr := VerifyChain(chain)
	resp := map[string]any{
		"entries": len(chain),
		"intact":  verifyErr == nil,
	}
	if verifyErr != nil {
		resp["first_invalid_sequence"] = badSequence
		resp["detail"] = verifyErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
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
