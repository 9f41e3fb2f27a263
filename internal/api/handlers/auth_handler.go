package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/apperror"
	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/services"
)

// AuthHandler handles signup and signin.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens *auth.TokenManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// SignupPayload defines the structure for registration requests.
type SignupPayload struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	ProfileImage string `json:"profile_image"`
}

// SigninPayload defines the structure for signin requests.
type SigninPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	_, err := h.users.Signup(r.Context(), services.SignupRequest{
		Username:     payload.Username,
		Email:        payload.Email,
		Password:     payload.Password,
		ProfileImage: payload.ProfileImage,
	})
	if err != nil {
		log.Warn().Err(err).Str("username", payload.Username).Msg("Signup rejected")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User registered successfully."})
}

// Signin handles authentication and token issuance.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var payload SigninPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	if payload.Username == "" || payload.Password == "" {
		writeError(w, apperror.NewValidationError("missing username or password"))
		return
	}

	user, err := h.users.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		log.Warn().Str("username", payload.Username).Msg("Failed authentication attempt")
		writeError(w, err)
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeError(w, apperror.New(apperror.InternalError, "Failed to generate token", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(h.tokens.Lifetime()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":         token,
		"username":      user.Username,
		"uid":           user.ID,
		"profile_image": user.ProfileImage,
	})
}
