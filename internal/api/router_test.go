package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/database"
	"github.com/bcanady/snippets-be/internal/models"
	"github.com/bcanady/snippets-be/internal/services"
)

// newTestServer stands up the full router over a fresh database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "snippets.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tokens := auth.NewTokenManager("test-secret", time.Hour)
	postService := services.NewPostService(db)
	userService := services.NewUserService(db, postService, "/avatars/default.png")

	srv := httptest.NewServer(NewRouter(tokens, userService, postService, "http://localhost:3000"))
	t.Cleanup(srv.Close)
	return srv
}

// doJSON sends a JSON request, optionally with a bearer token, and
// decodes the response body into out when it is non-nil.
func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp
}

type signinResponse struct {
	Token        string `json:"token"`
	Username     string `json:"username"`
	UID          string `json:"uid"`
	ProfileImage string `json:"profile_image"`
}

// signupAndSignin registers a user and returns their session.
func signupAndSignin(t *testing.T, srv *httptest.Server, username string) signinResponse {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-password",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup %s status = %d, want 200", username, resp.StatusCode)
	}

	var session signinResponse
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", map[string]string{
		"username": username,
		"password": "secret-password",
	}, &session)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin %s status = %d, want 200", username, resp.StatusCode)
	}
	if session.Token == "" || session.UID == "" {
		t.Fatalf("signin %s response = %+v, want token and uid", username, session)
	}
	return session
}

func TestSignupValidationAndDuplicates(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"username": "alice",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing-field signup status = %d, want 422", resp.StatusCode)
	}

	signupAndSignin(t, srv, "alice")

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret-password",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup status = %d, want 422", resp.StatusCode)
	}
}

func TestSigninRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t)
	signupAndSignin(t, srv, "alice")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", map[string]string{
		"username": "alice",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("missing-password signin status = %d, want 422", resp.StatusCode)
	}

	for _, creds := range []map[string]string{
		{"username": "alice", "password": "wrong-password"},
		{"username": "nobody", "password": "secret-password"},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", creds, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("bad signin %v status = %d, want 401", creds, resp.StatusCode)
		}
	}
}

func TestFeedLifecycle(t *testing.T) {
	srv := newTestServer(t)
	alice := signupAndSignin(t, srv, "alice")
	bob := signupAndSignin(t, srv, "bob")

	// Posting requires a token
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/posts", "", map[string]string{"text": "hello world"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated post status = %d, want 401", resp.StatusCode)
	}

	var created models.PostView
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/posts", alice.Token, map[string]string{"text": "hello world"}, &created)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create post status = %d, want 200", resp.StatusCode)
	}
	if created.Author.Username != "alice" {
		t.Fatalf("post author = %q, want alice", created.Author.Username)
	}

	// The feed is public and shows the post with no likes or comments
	var feed []models.PostView
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/posts", "", nil, &feed)
	if resp.StatusCode != http.StatusOK || len(feed) != 1 {
		t.Fatalf("feed = status %d with %d posts, want 200 with 1", resp.StatusCode, len(feed))
	}
	if len(feed[0].Likes) != 0 || len(feed[0].Comments) != 0 {
		t.Fatalf("fresh post has %d likes, %d comments, want 0/0", len(feed[0].Likes), len(feed[0].Comments))
	}

	// Bob's like toggles on, then off
	var toggle struct {
		Message string `json:"message"`
		Liked   bool   `json:"liked"`
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/posts/like/"+created.ID, bob.Token, nil, &toggle)
	if resp.StatusCode != http.StatusOK || !toggle.Liked {
		t.Fatalf("first toggle = status %d liked %v, want 200 true", resp.StatusCode, toggle.Liked)
	}

	var view models.PostView
	doJSON(t, http.MethodGet, srv.URL+"/api/posts/"+created.ID, "", nil, &view)
	if len(view.Likes) != 1 || view.Likes[0].Username != "bob" {
		t.Fatalf("likes after toggle = %+v, want bob", view.Likes)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/posts/like/"+created.ID, bob.Token, nil, &toggle)
	if resp.StatusCode != http.StatusOK || toggle.Liked {
		t.Fatalf("second toggle = status %d liked %v, want 200 false", resp.StatusCode, toggle.Liked)
	}

	// Comments require the gate; the author comes from the token, not
	// the payload
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/posts/comments", "", map[string]string{
		"text": "first!", "postId": created.ID,
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated comment status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/posts/comments", bob.Token, map[string]string{
		"text": "first!", "postId": created.ID, "userId": alice.UID,
	}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("comment status = %d, want 200", resp.StatusCode)
	}
	if len(view.Comments) != 1 || view.Comments[0].Author.Username != "bob" {
		t.Fatalf("comment = %+v, want authored by bob", view.Comments)
	}

	// Only the owner can delete
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/posts/"+created.ID, bob.Token, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-owner delete status = %d, want 401", resp.StatusCode)
	}
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/posts/"+created.ID, alice.Token, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner delete status = %d, want 200", resp.StatusCode)
	}

	doJSON(t, http.MethodGet, srv.URL+"/api/posts", "", nil, &feed)
	if len(feed) != 0 {
		t.Fatalf("feed after delete = %d posts, want 0", len(feed))
	}

	var profile models.UserProfile
	doJSON(t, http.MethodGet, srv.URL+"/api/users/alice", "", nil, &profile)
	if len(profile.Posts) != 0 {
		t.Fatalf("alice's posts after delete = %d, want 0", len(profile.Posts))
	}

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/posts/"+created.ID, alice.Token, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete of missing post status = %d, want 404", resp.StatusCode)
	}
}

func TestUserRoutes(t *testing.T) {
	srv := newTestServer(t)
	alice := signupAndSignin(t, srv, "alice")
	bob := signupAndSignin(t, srv, "bob")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/users/nobody", "", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown profile status = %d, want 404", resp.StatusCode)
	}

	var profile models.UserProfile
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice", "", nil, &profile)
	if resp.StatusCode != http.StatusOK || profile.Username != "alice" {
		t.Fatalf("profile = status %d user %q, want 200 alice", resp.StatusCode, profile.Username)
	}

	// Password change re-verifies the current password
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/password", "", map[string]string{
		"currentPassword": "wrong-password", "newPassword": "fresh-password",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong current password status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/password", "", map[string]string{
		"currentPassword": "secret-password", "newPassword": "nope",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short new password status = %d, want 400", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/password", "", map[string]string{
		"currentPassword": "secret-password", "newPassword": "fresh-password",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("password change status = %d, want 200", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/auth/signin", "", map[string]string{
		"username": "alice", "password": "fresh-password",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin with new password status = %d, want 200", resp.StatusCode)
	}

	// Avatar changes are self-only
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/avatar", "", map[string]string{
		"profile_image": "/avatars/new.png",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated avatar change status = %d, want 401", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/avatar", bob.Token, map[string]string{
		"profile_image": "/avatars/new.png",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("non-owner avatar change status = %d, want 401", resp.StatusCode)
	}

	var updated models.User
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/users/alice/avatar", alice.Token, map[string]string{
		"profile_image": "/avatars/new.png",
	}, &updated)
	if resp.StatusCode != http.StatusOK || updated.ProfileImage != "/avatars/new.png" {
		t.Fatalf("avatar change = status %d image %q, want 200 /avatars/new.png", resp.StatusCode, updated.ProfileImage)
	}
}
