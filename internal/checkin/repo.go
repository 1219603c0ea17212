package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// IDPrefix for generated check-in IDs.
const IDPrefix = "CHK"

// PGRepository persists check-ins in Postgres.
type PGRepository struct {
	db  *sql.DB
	gen *ids.Generator
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB, gen *ids.Generator) *PGRepository {
	return &PGRepository{db: db, gen: gen}
}

const checkinCols = `id, student_id, subject_id, teacher_id, occurred_on, occurred_at, status, created_at`

func scanCheckin(row interface{ Scan(...any) error }) (*CheckIn, error) {
	var c CheckIn
	var on time.Time
	err := row.Scan(&c.ID, &c.StudentID, &c.SubjectID, &c.TeacherID, &on, &c.Time, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	c.Date = on.Format(DateLayout)
	return &c, nil
}

// Insert stores a check-in, generating the ID with a bounded retry loop.
// There is deliberately no uniqueness on (student, subject, date).
func (r *PGRepository) Insert(ctx context.Context, c CheckIn) (CheckIn, error) {
	for attempt := 0; attempt < r.gen.Attempts(); attempt++ {
		id, err := r.gen.Next(ctx, "checkins", IDPrefix)
		if err != nil {
			return CheckIn{}, err
		}
		row := r.db.QueryRowContext(ctx, `
			INSERT INTO checkins (id, student_id, subject_id, teacher_id, occurred_on, occurred_at, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			RETURNING created_at
		`, id, c.StudentID, c.SubjectID, c.TeacherID, c.Date, c.Time, c.Status)
		if err := row.Scan(&c.CreatedAt); err != nil {
			if ids.IsUniqueViolation(err) {
				continue
			}
			return CheckIn{}, err
		}
		c.ID = id
		return c, nil
	}
	return CheckIn{}, fmt.Errorf("check-in id generation: %w", apperr.ErrDuplicate)
}

// GetByID returns a check-in or nil when absent.
func (r *PGRepository) GetByID(ctx context.Context, id string) (*CheckIn, error) {
	return scanCheckin(r.db.QueryRowContext(ctx,
		`SELECT `+checkinCols+` FROM checkins WHERE id = $1`, id))
}

func filterClauses(teacherID string, f Filter) (string, []any) {
	clauses := []string{"teacher_id = $1"}
	args := []any{teacherID}
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if f.StudentID != "" {
		add("student_id = $%d", f.StudentID)
	}
	if f.SubjectID != "" {
		add("subject_id = $%d", f.SubjectID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.From != "" {
		add("occurred_on >= $%d", f.From)
	}
	if f.To != "" {
		add("occurred_on <= $%d", f.To)
	}
	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

// List returns the teacher's check-ins matching the filter, newest first.
func (r *PGRepository) List(ctx context.Context, teacherID string, f Filter) ([]CheckIn, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	where, args := filterClauses(teacherID, f)
	query := fmt.Sprintf(`
		SELECT %s FROM checkins
		WHERE %s
		ORDER BY occurred_on DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, checkinCols, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []CheckIn
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}
	return res, rows.Err()
}

// UpdateStatus changes the status on a check-in.
func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE checkins SET status = $2 WHERE id = $1`, id, string(status))
	return err
}

// Delete removes a check-in.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM checkins WHERE id = $1`, id)
	return err
}

// Enrolled reports whether the student is enrolled in the subject.
func (r *PGRepository) Enrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM student_subjects WHERE student_id = $1 AND subject_id = $2
		)
	`, studentID, subjectID)
	var ok bool
	return ok, row.Scan(&ok)
}

// StudentOwned reports whether the student is associated with the teacher.
func (r *PGRepository) StudentOwned(ctx context.Context, studentID, teacherID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM teacher_students WHERE teacher_id = $1 AND student_id = $2
		)
	`, teacherID, studentID)
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

// CountByStatus aggregates matching check-ins per status.
func (r *PGRepository) CountByStatus(ctx context.Context, teacherID string, f Filter) (map[Status]int, error) {
	where, args := filterClauses(teacherID, f)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT status, COUNT(*) FROM checkins WHERE %s GROUP BY status
	`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[Status]int{}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[Status(st)] = n
	}
	return counts, rows.Err()
}

// CountStudents returns how many students are associated with the teacher.
func (r *PGRepository) CountStudents(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teacher_students WHERE teacher_id = $1`, teacherID).Scan(&n)
	return n, err
}

// CountSubjects returns how many subjects the teacher owns.
func (r *PGRepository) CountSubjects(ctx context.Context, teacherID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subjects WHERE teacher_id = $1`, teacherID).Scan(&n)
	return n, err
}

// CountEnrolled returns how many students are enrolled in the subject.
func (r *PGRepository) CountEnrolled(ctx context.Context, subjectID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM student_subjects WHERE subject_id = $1`, subjectID).Scan(&n)
	return n, err
}
