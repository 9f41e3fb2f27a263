package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bcanady/snippets-be/internal/apperror"
	"github.com/bcanady/snippets-be/internal/database"
	"github.com/bcanady/snippets-be/internal/models"
)

// bcryptCost matches the cost the service has always used for stored
// hashes.
const bcryptCost = 12

// dummyHash is compared against on signin when the username does not
// exist, so a miss costs the same as a mismatch.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("snippets-dummy"), bcryptCost)

// Bounds for a new password on password change.
const (
	minPasswordLength = 8
	maxPasswordLength = 20
)

// SignupRequest carries the fields accepted at registration.
type SignupRequest struct {
	Username     string
	Email        string
	Password     string
	ProfileImage string
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Signup(ctx context.Context, req SignupRequest) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) (models.User, error)
	ChangeAvatar(ctx context.Context, username, profileImage, requesterUsername string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserProfile(ctx context.Context, username string) (models.UserProfile, error)
}

// UserService provides business logic for identity and credentials.
type UserService struct {
	db            *sql.DB
	posts         *PostService
	defaultAvatar string
}

// NewUserService creates a new UserService. The post service is used
// to expand a profile's owned posts.
func NewUserService(db *sql.DB, posts *PostService, defaultAvatar string) *UserService {
	return &UserService{db: db, posts: posts, defaultAvatar: defaultAvatar}
}

// Signup registers a new user, hashing their password. Username and
// email must both be unused.
func (s *UserService) Signup(ctx context.Context, req SignupRequest) (models.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.User{}, apperror.NewValidationError("Please provide username, email, and password.")
	}

	existing, err := s.findByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to check existing users", err)
	}
	if existing != nil {
		return models.User{}, apperror.NewConflictError("User with the same username or email already exists.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return models.User{}, apperror.New(apperror.InternalError, "failed to hash password", err)
	}

	avatar := req.ProfileImage
	if avatar == "" {
		avatar = s.defaultAvatar
	}

	user := models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		ProfileImage: avatar,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users(id, username, email, password_hash, profile_image, created_at) VALUES(?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.ProfileImage, database.ToMillis(user.CreatedAt))
	if err != nil {
		// A concurrent signup can slip past the pre-check; the unique
		// constraints on username and email are the real arbiter.
		if database.IsUniqueViolation(err) {
			return models.User{}, apperror.NewConflictError("User with the same username or email already exists.")
		}
		return models.User{}, apperror.NewDatabaseError("failed to create user", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// Authenticate verifies a user's credentials. A missing user and a
// wrong password produce the same error, with a hash comparison run in
// both cases.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to look up user", err)
	}
	if user == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return models.User{}, apperror.NewAuthError("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperror.NewAuthError("invalid username or password")
	}

	user.PasswordHash = ""
	return *user, nil
}

// ChangePassword re-verifies the current password before accepting a
// new one, then rehashes and persists it.
func (s *UserService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) (models.User, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to look up user", err)
	}
	if user == nil {
		return models.User{}, apperror.NewNotFoundError("User not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return models.User{}, apperror.NewAuthError("current password is incorrect")
	}

	if len(newPassword) < minPasswordLength || len(newPassword) > maxPasswordLength {
		return models.User{}, apperror.NewBadRequestError("password must be between 8 and 20 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return models.User{}, apperror.New(apperror.InternalError, "failed to hash new password", err)
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", string(hashedPassword), user.ID)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to update password", err)
	}

	user.PasswordHash = ""
	return *user, nil
}

// ChangeAvatar updates a user's profile image. Only the user may change
// their own avatar; usernames compare case-insensitively here because
// the route parameter may differ in case from the stored name.
func (s *UserService) ChangeAvatar(ctx context.Context, username, profileImage, requesterUsername string) (models.User, error) {
	if !strings.EqualFold(requesterUsername, username) {
		return models.User{}, apperror.NewAuthError("Unauthorized")
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to look up user", err)
	}
	if user == nil {
		return models.User{}, apperror.NewNotFoundError("User not found")
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET profile_image = ? WHERE id = ?", profileImage, user.ID)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to update avatar", err)
	}

	user.ProfileImage = profileImage
	user.PasswordHash = ""
	return *user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	var createdMs int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, profile_image, created_at FROM users WHERE id = ?", id)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.ProfileImage, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperror.NewNotFoundError("User not found")
		}
		return models.User{}, apperror.NewDatabaseError("failed to get user", err)
	}
	user.CreatedAt = database.FromMillis(createdMs)
	return user, nil
}

// GetUserByUsername retrieves a single user by their username. The
// lookup is case-sensitive; the username is the identity key.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return models.User{}, apperror.NewDatabaseError("failed to get user", err)
	}
	if user == nil {
		return models.User{}, apperror.NewNotFoundError("User not found")
	}
	user.PasswordHash = ""
	return *user, nil
}

// GetUserProfile returns a user's public fields with their owned posts
// expanded.
func (s *UserService) GetUserProfile(ctx context.Context, username string) (models.UserProfile, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return models.UserProfile{}, err
	}

	posts, err := s.posts.PostsByOwner(ctx, user.ID)
	if err != nil {
		return models.UserProfile{}, err
	}

	return models.UserProfile{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		ProfileImage: user.ProfileImage,
		CreatedAt:    user.CreatedAt,
		Posts:        posts,
	}, nil
}

// findByUsername returns the full user row including the password
// hash, or nil when no such user exists.
func (s *UserService) findByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	var createdMs int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, profile_image, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.ProfileImage, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = database.FromMillis(createdMs)
	return &user, nil
}

// findByUsernameOrEmail returns a user matching either field, or nil.
func (s *UserService) findByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	var user models.User
	var createdMs int64
	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, profile_image, created_at FROM users WHERE username = ? OR email = ?",
		username, email)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.ProfileImage, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.CreatedAt = database.FromMillis(createdMs)
	return &user, nil
}
