package subject

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// IDPrefix for generated subject IDs.
const IDPrefix = "SUB"

// PGRepository persists subjects in Postgres.
type PGRepository struct {
	db  *sql.DB
	gen *ids.Generator
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, gen *ids.Generator) *PGRepository {
	return &PGRepository{db: db, gen: gen}
}

const subjectCols = `id, teacher_id, name, code, description, created_at, updated_at`

func scanSubject(row interface{ Scan(...any) error }) (*Subject, error) {
	var sub Subject
	err := row.Scan(&sub.ID, &sub.TeacherID, &sub.Name, &sub.Code, &sub.Description, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// Insert stores a new subject, generating the ID with a bounded retry loop.
func (r *PGRepository) Insert(ctx context.Context, sub Subject) (Subject, error) {
	for attempt := 0; attempt < r.gen.Attempts(); attempt++ {
		id, err := r.gen.Next(ctx, "subjects", IDPrefix)
		if err != nil {
			return Subject{}, err
		}
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO subjects (id, teacher_id, name, code, description)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at, updated_at
		`, id, sub.TeacherID, sub.Name, sub.Code, sub.Description)
		if err := row.Scan(&sub.CreatedAt, &sub.UpdatedAt); err != nil {
			if ids.IsUniqueViolation(err) {
				continue
			}
			return Subject{}, err
		}
		sub.ID = id
		return sub, nil
	}
	return Subject{}, fmt.Errorf("subject id generation: %w", apperr.ErrDuplicate)
}

// GetByID returns a subject or nil when absent.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Subject, error) {
	return scanSubject(r.db.QueryRowContext(ctx,
		`SELECT `+subjectCols+` FROM subjects WHERE id = $1`, id))
}

// ListByTeacher returns the teacher's subjects, by ID.
func (r *PGRepository) ListByTeacher(ctx context.Context, teacherID string) ([]Subject, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subjectCols+` FROM subjects WHERE teacher_id = $1 ORDER BY id`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Subject
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *sub)
	}
	return res, rows.Err()
}

// Update writes name, code and description.
func (r *PGRepository) Update(ctx context.Context, sub Subject) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subjects SET name = $2, code = $3, description = $4, updated_at = NOW()
		WHERE id = $1
	`, sub.ID, sub.Name, sub.Code, sub.Description)
	return err
}

// Delete removes a subject. FK cascades drop its check-ins and join rows.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return err
}

// CourseOwned reports whether a course exists and belongs to the teacher.
func (r *PGRepository) CourseOwned(ctx context.Context, courseID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM courses WHERE id = $1 AND teacher_id = $2
		)
	`, courseID, teacherID)
	var ok bool
	return ok, row.Scan(&ok)
}
