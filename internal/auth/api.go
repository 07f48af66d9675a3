package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	sharedauth "github.com/stewardrx/platform/internal/shared/auth"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
	"github.com/stewardrx/platform/internal/shared/types"
)

// Handler provides authentication endpoints
type Handler struct {
	repo   *Repository
	issuer *TokenIssuer
}

func NewHandler(repo *Repository, issuer *TokenIssuer) *Handler {
	return &Handler{repo: repo, issuer: issuer}
}

// Routes returns the auth router. Login is public; everything else
// requires a valid token.
func (h *Handler) Routes(mw *sharedauth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Post("/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate)
		r.Get("/me", h.me)
		r.With(mw.RequireRole(RoleAdmin)).Post("/register", h.register)
	})

	return r
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.repo.GetByUsername(r.Context(), req.Username)
	if err != nil {
		// Same response for unknown user and bad password
		writeError(w, apperrors.Unauthorized("invalid credentials"))
		return
	}
	if !user.Active || !CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, apperrors.Unauthorized("invalid credentials"))
		return
	}

	token, expiresAt, err := h.issuer.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("username", user.Username).Msg("user signed in")

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal := sharedauth.UserFromContext(r.Context())
	if principal == nil {
		writeError(w, apperrors.Unauthorized("not authenticated"))
		return
	}

	user, err := h.repo.GetByID(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.BadRequest("invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	now := time.Now().UTC()
	user := &User{
		ID:           types.NewID(),
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.repo.Create(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
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
