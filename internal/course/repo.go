package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// IDPrefix for generated course IDs.
const IDPrefix = "CRS"

// PGRepository persists courses in Postgres.
type PGRepository struct {
	db  *sql.DB
	gen *ids.Generator
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, gen *ids.Generator) *PGRepository {
	return &PGRepository{db: db, gen: gen}
}

const courseCols = `id, teacher_id, name, code, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.TeacherID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Insert stores a new course, generating the ID with a bounded retry loop.
func (r *PGRepository) Insert(ctx context.Context, c Course) (Course, error) {
	for attempt := 0; attempt < r.gen.Attempts(); attempt++ {
		id, err := r.gen.Next(ctx, "courses", IDPrefix)
		if err != nil {
			return Course{}, err
		}
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO courses (id, teacher_id, name, code)
			VALUES ($1,$2,$3,$4)
			RETURNING created_at, updated_at
		`, id, c.TeacherID, c.Name, c.Code)
		if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
			if ids.IsUniqueViolation(err) {
				continue
			}
			return Course{}, err
		}
		c.ID = id
		return c, nil
	}
	return Course{}, fmt.Errorf("course id generation: %w", apperr.ErrDuplicate)
}

// GetByID returns a course or nil when absent.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx,
		`SELECT `+courseCols+` FROM courses WHERE id = $1`, id))
}

// ListByTeacher returns the teacher's courses, by ID.
func (r *PGRepository) ListByTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courseCols+` FROM courses WHERE teacher_id = $1 ORDER BY id`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

// Update writes name and code.
func (r *PGRepository) Update(ctx context.Context, c Course) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE courses SET name = $2, code = $3, updated_at = NOW() WHERE id = $1
	`, c.ID, c.Name, c.Code)
	return err
}

// Delete removes a course. FK rules drop its join rows and null out
// students.course_id; subjects are left alone.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}

// SubjectOwned reports whether a subject exists and belongs to the teacher.
func (r *PGRepository) SubjectOwned(ctx context.Context, subjectID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subjects WHERE id = $1 AND teacher_id = $2
		)
	`, subjectID, teacherID)
	var ok bool
	return ok, row.Scan(&ok)
}
