package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/apperror"
	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/services"
)

// UserHandler handles HTTP requests for user profiles.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile handles retrieving a user by username, posts expanded.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	profile, err := h.service.GetUserProfile(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// ChangePassword handles a self-service password change. The current
// password is re-verified by the service before the new one is
// accepted.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	var payload struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	user, err := h.service.ChangePassword(r.Context(), username, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("Password change rejected")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangeAvatar handles updating a user's profile image. Only the
// authenticated owner of the profile may change it.
func (h *UserHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewAuthError("Unauthorized"))
		return
	}

	username := chi.URLParam(r, "username")
	var payload struct {
		ProfileImage string `json:"profile_image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	user, err := h.service.ChangeAvatar(r.Context(), username, payload.ProfileImage, claims.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
