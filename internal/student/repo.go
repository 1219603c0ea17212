package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// IDPrefix for generated student IDs.
const IDPrefix = "STU"

// PGRepository persists students in Postgres.
type PGRepository struct {
	db  *sql.DB
	gen *ids.Generator
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, gen *ids.Generator) *PGRepository {
	return &PGRepository{db: db, gen: gen}
}

const studentCols = `id, first_name, middle_name, last_name, course_id, created_at, updated_at`

func scanStudent(row interface{ Scan(...any) error }) (*Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.FirstName, &st.MiddleName, &st.LastName, &st.CourseID, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// Insert stores a student and links it to the creating teacher in one
// transaction, generating the ID with a bounded retry loop.
func (r *PGRepository) Insert(ctx context.Context, st Student, teacherID string) (Student, error) {
	for attempt := 0; attempt < r.gen.Attempts(); attempt++ {
		id, err := r.gen.Next(ctx, "students", IDPrefix)
		if err != nil {
			return Student{}, err
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return Student{}, err
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO students (id, first_name, middle_name, last_name, course_id)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING created_at, updated_at
		`, id, st.FirstName, st.MiddleName, st.LastName, st.CourseID)
		if err := row.Scan(&st.CreatedAt, &st.UpdatedAt); err != nil {
			_ = tx.Rollback()
			if ids.IsUniqueViolation(err) {
				continue
			}
			return Student{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO teacher_students (teacher_id, student_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING
		`, teacherID, id); err != nil {
			_ = tx.Rollback()
			return Student{}, err
		}
		if err := tx.Commit(); err != nil {
			return Student{}, err
		}
		st.ID = id
		return st, nil
	}
	return Student{}, fmt.Errorf("student id generation: %w", apperr.ErrDuplicate)
}

// GetByID returns a student or nil when absent.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*Student, error) {
	return scanStudent(r.db.QueryRowContext(ctx,
		`SELECT `+studentCols+` FROM students WHERE id = $1`, id))
}

// ListByTeacher returns students associated with a teacher, by ID.
func (r *PGRepository) ListByTeacher(ctx context.Context, teacherID string) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+studentCols+` FROM students s
		JOIN teacher_students ts ON ts.student_id = s.id
		WHERE ts.teacher_id = $1
		ORDER BY s.id
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *st)
	}
	return res, rows.Err()
}

// Update writes names and the course reference.
func (r *PGRepository) Update(ctx context.Context, st Student) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET first_name = $2, middle_name = $3, last_name = $4, course_id = $5, updated_at = NOW()
		WHERE id = $1
	`, st.ID, st.FirstName, st.MiddleName, st.LastName, st.CourseID)
	return err
}

// Delete removes a student; join rows and check-ins go with it via FK cascade.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}

// Owned reports whether the student is associated with the teacher.
func (r *PGRepository) Owned(ctx context.Context, studentID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM teacher_students WHERE teacher_id = $1 AND student_id = $2
		)
	`, teacherID, studentID)
	var ok bool
	return ok, row.Scan(&ok)
}

// CourseOwned reports whether the course exists and belongs to the teacher.
func (r *PGRepository) CourseOwned(ctx context.Context, courseID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM courses WHERE id = $1 AND teacher_id = $2
		)
	`, courseID, teacherID)
	var ok bool
	return ok, row.Scan(&ok)
}

// SubjectOwned reports whether the subject exists and belongs to the teacher.
func (r *PGRepository) SubjectOwned(ctx context.Context, subjectID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subjects WHERE id = $1 AND teacher_id = $2
		)
	`, subjectID, teacherID)
	var ok bool
	return ok, row.Scan(&ok)
}
