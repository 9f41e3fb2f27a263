package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/apperror"
	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/models"
	"github.com/bcanady/snippets-be/internal/services"
)

// PostHandler handles HTTP requests for posts, comments, and likes.
type PostHandler struct {
	service services.PostServiceProvider
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(service services.PostServiceProvider) *PostHandler {
	return &PostHandler{service: service}
}

// GetAll handles the request to list the feed.
func (h *PostHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if posts == nil {
		posts = []models.PostView{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// Get handles the request to get a single post by its ID.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	post, err := h.service.GetPost(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Create handles the request to create a new post. The author is the
// verified identity from the token.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewAuthError("Unauthorized"))
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	post, err := h.service.CreatePost(r.Context(), claims.UserID, payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("post_id", post.ID).Str("user_id", claims.UserID).Msg("Post created")
	writeJSON(w, http.StatusOK, post)
}

// Delete handles the request to delete a post. Only the author may
// delete it.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewAuthError("Unauthorized"))
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeletePost(r.Context(), claims.UserID, id); err != nil {
		writeError(w, err)
		return
	}

	log.Info().Str("post_id", id).Str("user_id", claims.UserID).Msg("Post deleted")
	w.WriteHeader(http.StatusOK)
}

// ToggleLike flips the caller's like on a post.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewAuthError("Unauthorized"))
		return
	}

	postID := chi.URLParam(r, "postId")
	liked, err := h.service.ToggleLike(r.Context(), claims.UserID, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	message := "Post unliked successfully"
	if liked {
		message = "Post liked successfully"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": message,
		"liked":   liked,
	})
}

// AddComment appends a comment to a post. The comment's author is the
// verified identity; any author id in the payload is ignored.
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.NewAuthError("Unauthorized"))
		return
	}

	var payload struct {
		Text   string `json:"text"`
		PostID string `json:"postId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.NewValidationError("Invalid request body"))
		return
	}

	post, err := h.service.AddComment(r.Context(), claims.UserID, payload.PostID, payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}
