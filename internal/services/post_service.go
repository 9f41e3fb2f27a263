package services

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bcanady/snippets-be/internal/apperror"
	"github.com/bcanady/snippets-be/internal/database"
	"github.com/bcanady/snippets-be/internal/models"
)

// PostServiceProvider defines the interface for post services.
type PostServiceProvider interface {
	ListPosts(ctx context.Context) ([]models.PostView, error)
	GetPost(ctx context.Context, id string) (models.PostView, error)
	CreatePost(ctx context.Context, authorID, text string) (models.PostView, error)
	DeletePost(ctx context.Context, requesterID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (bool, error)
	AddComment(ctx context.Context, authorID, postID, text string) (models.PostView, error)
	PostsByOwner(ctx context.Context, userID string) ([]models.PostView, error)
}

// PostService provides business logic for posts, comments, and likes.
type PostService struct {
	db *sql.DB
}

// NewPostService creates a new PostService.
func NewPostService(db *sql.DB) *PostService {
	return &PostService{db: db}
}

// validateText enforces the shared body rules for posts and comments.
func validateText(text string) error {
	if text == "" {
		return apperror.NewValidationError("text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxTextLength {
		return apperror.NewValidationError("text must be at most 120 characters")
	}
	return nil
}

// ListPosts returns all posts ordered by creation time descending,
// with authors, comments, and likes expanded.
func (s *PostService) ListPosts(ctx context.Context) ([]models.PostView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.text, p.created_at, u.id, u.username, u.profile_image
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.created_at DESC, p.rowid DESC`)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list posts", err)
	}
	defer rows.Close()

	views, err := s.scanAndExpand(ctx, rows)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetPost returns a single post with authors, comments, and likes
// expanded.
func (s *PostService) GetPost(ctx context.Context, id string) (models.PostView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.text, p.created_at, u.id, u.username, u.profile_image
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = ?`, id)
	if err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to get post", err)
	}
	defer rows.Close()

	views, err := s.scanAndExpand(ctx, rows)
	if err != nil {
		return models.PostView{}, err
	}
	if len(views) == 0 {
		return models.PostView{}, apperror.NewNotFoundError("Post not found")
	}
	return views[0], nil
}

// PostsByOwner returns the posts recorded in a user's owner index, in
// index order.
func (s *PostService) PostsByOwner(ctx context.Context, userID string) ([]models.PostView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.text, p.created_at, u.id, u.username, u.profile_image
		FROM user_posts up
		JOIN posts p ON p.id = up.post_id
		JOIN users u ON u.id = p.author_id
		WHERE up.user_id = ?
		ORDER BY up.position`, userID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list user posts", err)
	}
	defer rows.Close()

	views, err := s.scanAndExpand(ctx, rows)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// CreatePost creates a post and appends it to the author's owner index
// in a single transaction, so the index never references a post that
// failed to persist and vice versa.
func (s *PostService) CreatePost(ctx context.Context, authorID, text string) (models.PostView, error) {
	if err := validateText(text); err != nil {
		return models.PostView{}, err
	}

	post := models.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to create post", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO posts(id, author_id, text, created_at) VALUES(?, ?, ?, ?)",
		post.ID, post.AuthorID, post.Text, database.ToMillis(post.CreatedAt))
	if err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to create post", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_posts(user_id, post_id, position)
		VALUES(?, ?, COALESCE((SELECT MAX(position) + 1 FROM user_posts WHERE user_id = ?), 0))`,
		post.AuthorID, post.ID, post.AuthorID)
	if err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to index post", err)
	}

	if err := tx.Commit(); err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to create post", err)
	}

	return s.GetPost(ctx, post.ID)
}

// DeletePost removes a post after verifying ownership. Comments and
// likes go with it via cascade. The owner-index row is removed after
// the delete commits; if that removal fails the delete still reports
// success and the reconciler repairs the index later.
func (s *PostService) DeletePost(ctx context.Context, requesterID, postID string) error {
	var authorID string
	row := s.db.QueryRowContext(ctx, "SELECT author_id FROM posts WHERE id = ?", postID)
	if err := row.Scan(&authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NewNotFoundError("Post not found")
		}
		return apperror.NewDatabaseError("failed to get post", err)
	}

	if authorID != requesterID {
		return apperror.NewAuthError("Unauthorized")
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", postID); err != nil {
		return apperror.NewDatabaseError("failed to delete post", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM user_posts WHERE user_id = ? AND post_id = ?", authorID, postID); err != nil {
		// The post is gone; never block the caller on the secondary
		// index. The reconciler removes the dangling row.
		log.Warn().Err(err).Str("post_id", postID).Str("user_id", authorID).
			Msg("Post deleted but owner index removal failed; deferring to reconciler")
	}

	return nil
}

// ToggleLike flips the like relation for a (user, post) pair and
// reports the resulting state. The UNIQUE(user_id, post_id) constraint
// arbitrates concurrent toggles: a racing insert loses with a
// constraint violation and is retried as a removal.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (bool, error) {
	var exists int
	row := s.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = ?", postID)
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, apperror.NewNotFoundError("Post not found")
		}
		return false, apperror.NewDatabaseError("failed to get post", err)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM likes WHERE user_id = ? AND post_id = ?", userID, postID)
	if err != nil {
		return false, apperror.NewDatabaseError("failed to toggle like", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO likes(id, user_id, post_id, created_at) VALUES(?, ?, ?, ?)",
		uuid.New().String(), userID, postID, database.ToMillis(time.Now()))
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Another toggle from the same user won the insert; this
			// invocation completes as the removal.
			if _, derr := s.db.ExecContext(ctx,
				"DELETE FROM likes WHERE user_id = ? AND post_id = ?", userID, postID); derr != nil {
				return false, apperror.NewDatabaseError("failed to toggle like", derr)
			}
			return false, nil
		}
		return false, apperror.NewDatabaseError("failed to toggle like", err)
	}

	return true, nil
}

// AddComment appends a comment to a post and returns the updated post
// with authors expanded.
func (s *PostService) AddComment(ctx context.Context, authorID, postID, text string) (models.PostView, error) {
	if err := validateText(text); err != nil {
		return models.PostView{}, err
	}

	var exists int
	row := s.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id = ?", postID)
	if err := row.Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PostView{}, apperror.NewNotFoundError("Post not found")
		}
		return models.PostView{}, apperror.NewDatabaseError("failed to get post", err)
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO comments(id, post_id, author_id, text, created_at) VALUES(?, ?, ?, ?, ?)",
		uuid.New().String(), postID, authorID, text, database.ToMillis(time.Now()))
	if err != nil {
		return models.PostView{}, apperror.NewDatabaseError("failed to add comment", err)
	}

	return s.GetPost(ctx, postID)
}

// scanAndExpand builds post views from a post+author result set,
// expanding each post's comments and likes.
func (s *PostService) scanAndExpand(ctx context.Context, rows *sql.Rows) ([]models.PostView, error) {
	var views []models.PostView
	for rows.Next() {
		var view models.PostView
		var createdMs int64
		if err := rows.Scan(&view.ID, &view.Text, &createdMs,
			&view.Author.ID, &view.Author.Username, &view.Author.ProfileImage); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan post", err)
		}
		view.CreatedAt = database.FromMillis(createdMs)
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read posts", err)
	}

	for i := range views {
		comments, err := s.commentsForPost(ctx, views[i].ID)
		if err != nil {
			return nil, err
		}
		likes, err := s.likesForPost(ctx, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Comments = comments
		views[i].Likes = likes
	}
	return views, nil
}

// commentsForPost returns a post's comments newest first, authors
// expanded.
func (s *PostService) commentsForPost(ctx context.Context, postID string) ([]models.CommentView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.text, c.created_at, u.id, u.username, u.profile_image
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at DESC, c.rowid DESC`, postID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list comments", err)
	}
	defer rows.Close()

	comments := []models.CommentView{}
	for rows.Next() {
		var comment models.CommentView
		var createdMs int64
		if err := rows.Scan(&comment.ID, &comment.Text, &createdMs,
			&comment.Author.ID, &comment.Author.Username, &comment.Author.ProfileImage); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan comment", err)
		}
		comment.CreatedAt = database.FromMillis(createdMs)
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read comments", err)
	}
	return comments, nil
}

// likesForPost returns the public fields of the users who like a post.
func (s *PostService) likesForPost(ctx context.Context, postID string) ([]models.UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.profile_image
		FROM likes l
		JOIN users u ON u.id = l.user_id
		WHERE l.post_id = ?
		ORDER BY l.created_at`, postID)
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to list likes", err)
	}
	defer rows.Close()

	likes := []models.UserSummary{}
	for rows.Next() {
		var user models.UserSummary
		if err := rows.Scan(&user.ID, &user.Username, &user.ProfileImage); err != nil {
			return nil, apperror.NewDatabaseError("failed to scan like", err)
		}
		likes = append(likes, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("failed to read likes", err)
	}
	return likes, nil
}
