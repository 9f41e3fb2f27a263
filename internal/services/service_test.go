package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bcanady/snippets-be/internal/database"
)

const testAvatar = "/avatars/default.png"

// newTestDB opens a migrated database in a per-test temp directory.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "snippets.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestServices wires a user and post service over a fresh database.
func newTestServices(t *testing.T) (*UserService, *PostService) {
	t.Helper()
	db := newTestDB(t)
	posts := NewPostService(db)
	users := NewUserService(db, posts, testAvatar)
	return users, posts
}

// signupUser registers a user and fails the test on error.
func signupUser(t *testing.T, users *UserService, username string) string {
	t.Helper()
	user, err := users.Signup(context.Background(), SignupRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret-password",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", username, err)
	}
	return user.ID
}
