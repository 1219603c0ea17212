package teacher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// IDPrefix for generated teacher IDs.
const IDPrefix = "TCH"

// PGRepository persists teachers in Postgres.
type PGRepository struct {
	db  *sql.DB
	gen *ids.Generator
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, gen *ids.Generator) *PGRepository {
	return &PGRepository{db: db, gen: gen}
}

const teacherCols = `id, first_name, middle_name, last_name, email, password_hash, created_at, updated_at`

func scanTeacher(row interface{ Scan(...any) error }) (*Teacher, error) {
	var t Teacher
	err := row.Scan(&t.ID, &t.FirstName, &t.MiddleName, &t.LastName, &t.Email, &t.PasswordHash, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// Insert stores a new teacher, generating a sequential ID with a bounded
// retry loop on collision.
func (r *PGRepository) Insert(ctx context.Context, t Teacher) (Teacher, error) {
	for attempt := 0; attempt < r.gen.Attempts(); attempt++ {
		id, err := r.gen.Next(ctx, "teachers", IDPrefix)
		if err != nil {
			return Teacher{}, err
		}
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO teachers (id, first_name, middle_name, last_name, email, password_hash)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING created_at, updated_at
		`, id, t.FirstName, t.MiddleName, t.LastName, t.Email, t.PasswordHash)
		if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
			if ids.IsUniqueViolation(err) {
				// a duplicate email registered concurrently is not an
				// ID collision; retrying cannot help
				if ids.ViolatedConstraint(err) == "teachers_email_key" {
					return Teacher{}, apperr.ErrDuplicate
				}
				continue
			}
			return Teacher{}, err
		}
		t.ID = id
		return t, nil
	}
	return Teacher{}, fmt.Errorf("teacher id generation: %w", apperr.ErrDuplicate)
}

// GetByID returns a teacher or nil when absent.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherCols+` FROM teachers WHERE id = $1`, id))
}

// GetByEmail returns a teacher or nil when absent.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*Teacher, error) {
	return scanTeacher(r.db.QueryRowContext(ctx,
		`SELECT `+teacherCols+` FROM teachers WHERE email = $1`, email))
}

// Update writes names and email.
func (r *PGRepository) Update(ctx context.Context, t Teacher) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE teachers
		SET first_name = $2, middle_name = $3, last_name = $4, email = $5, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.FirstName, t.MiddleName, t.LastName, t.Email)
	return err
}

// UpdatePassword stores a new password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE teachers SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *PGRepository) SaveRefreshToken(ctx context.Context, teacherID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (token, teacher_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, teacherID, expiresAt)
	return err
}

// LookupRefreshToken resolves a live refresh token to its teacher ID.
func (r *PGRepository) LookupRefreshToken(ctx context.Context, token string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT teacher_id FROM refresh_tokens
		WHERE token = $1 AND NOT revoked AND expires_at > NOW()
	`, token)
	var teacherID string
	if err := row.Scan(&teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.ErrNotFound
		}
		return "", err
	}
	return teacherID, nil
}

// RevokeRefreshToken marks a token revoked.
func (r *PGRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}
