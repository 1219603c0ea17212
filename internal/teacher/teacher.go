package teacher

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
)

// Teacher is the account that owns courses, subjects and check-ins.
type Teacher struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ErrInvalidCredentials is returned on login with a wrong email or password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Repository persists teachers and their refresh tokens.
type Repository interface {
	Insert(ctx context.Context, t Teacher) (Teacher, error)
	GetByID(ctx context.Context, id string) (*Teacher, error)
	GetByEmail(ctx context.Context, email string) (*Teacher, error)
	Update(ctx context.Context, t Teacher) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SaveRefreshToken(ctx context.Context, teacherID, token string, expiresAt time.Time) error
	// LookupRefreshToken returns the owning teacher ID for a live
	// (unexpired, unrevoked) refresh token, or ErrNotFound.
	LookupRefreshToken(ctx context.Context, token string) (string, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

var validate = validator.New()

// Service implements teacher registration, login and profile management.
type Service struct {
	repo Repository
}

// NewService creates a service backed by a repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	FirstName       string `json:"first_name" validate:"required"`
	MiddleName      string `json:"middle_name"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Register validates the form, rejects duplicate emails and stores the
// teacher with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Teacher, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validate.Struct(in); err != nil {
		return Teacher{}, apperr.FromValidator(err)
	}
	if in.Password != in.ConfirmPassword {
		return Teacher{}, apperr.Invalid("passwords do not match")
	}
	if existing, err := s.repo.GetByEmail(ctx, in.Email); err != nil {
		return Teacher{}, err
	} else if existing != nil {
		return Teacher{}, apperr.Invalid("email is already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Teacher{}, err
	}
	return s.repo.Insert(ctx, Teacher{
		FirstName:    in.FirstName,
		MiddleName:   in.MiddleName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	})
}

// Login verifies credentials and returns the teacher.
func (s *Service) Login(ctx context.Context, email, password string) (Teacher, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Teacher{}, ErrInvalidCredentials
	}
	t, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return Teacher{}, err
	}
	if t == nil || !auth.CheckPassword(t.PasswordHash, password) {
		return Teacher{}, ErrInvalidCredentials
	}
	return *t, nil
}

// Get returns a teacher by ID.
func (s *Service) Get(ctx context.Context, id string) (Teacher, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if t == nil {
		return Teacher{}, apperr.ErrNotFound
	}
	return *t, nil
}

// UpdateProfileInput carries a profile edit.
type UpdateProfileInput struct {
	FirstName  string `json:"first_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
}

// UpdateProfile edits names and email; a change to an email already used by
// another teacher is rejected.
func (s *Service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (Teacher, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := validate.Struct(in); err != nil {
		return Teacher{}, apperr.FromValidator(err)
	}
	t, err := s.Get(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	if in.Email != t.Email {
		if existing, err := s.repo.GetByEmail(ctx, in.Email); err != nil {
			return Teacher{}, err
		} else if existing != nil {
			return Teacher{}, apperr.Invalid("email is already registered")
		}
	}
	t.FirstName = in.FirstName
	t.MiddleName = in.MiddleName
	t.LastName = in.LastName
	t.Email = in.Email
	if err := s.repo.Update(ctx, t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// ChangePassword verifies the old password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	t, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(t.PasswordHash, oldPassword) {
		return apperr.Invalid("current password is incorrect")
	}
	if len(newPassword) < 8 {
		return apperr.Invalid("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, hash)
}

// StoreRefreshToken persists a refresh token for later rotation checks.
func (s *Service) StoreRefreshToken(ctx context.Context, teacherID, token string, expiresAt time.Time) error {
	return s.repo.SaveRefreshToken(ctx, teacherID, token, expiresAt)
}

// Refresh validates a stored refresh token, revokes it and returns the owning
// teacher for a new token pair to be issued.
func (s *Service) Refresh(ctx context.Context, token string) (Teacher, error) {
	teacherID, err := s.repo.LookupRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Teacher{}, ErrInvalidCredentials
		}
		return Teacher{}, err
	}
	if err := s.repo.RevokeRefreshToken(ctx, token); err != nil {
		return Teacher{}, err
	}
	return s.Get(ctx, teacherID)
}
