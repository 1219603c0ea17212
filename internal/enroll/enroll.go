package enroll

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
)

// Join identifies one of the many-to-many association tables. Table and
// column names are code-controlled constants.
type Join struct {
	Table     string
	OwnerCol  string
	MemberCol string
}

var (
	StudentSubjects = Join{Table: "student_subjects", OwnerCol: "student_id", MemberCol: "subject_id"}
	CourseSubjects  = Join{Table: "course_subjects", OwnerCol: "course_id", MemberCol: "subject_id"}
	TeacherStudents = Join{Table: "teacher_students", OwnerCol: "teacher_id", MemberCol: "student_id"}
)

// Diff computes the set difference between current and desired member sets:
// which IDs must be inserted and which deleted so that current becomes
// desired. Duplicates in either input collapse; output order is stable.
func Diff(current, desired []string) (add, remove []string) {
	cur := make(map[string]bool, len(current))
	for _, id := range current {
		cur[id] = true
	}
	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}
	for id := range want {
		if !cur[id] {
			add = append(add, id)
		}
	}
	for id := range cur {
		if !want[id] {
			remove = append(remove, id)
		}
	}
	sort.Strings(add)
	sort.Strings(remove)
	return add, remove
}

// Syncer persists join-table state in Postgres.
type Syncer struct {
	db *sql.DB
}

// NewSyncer creates a syncer.
func NewSyncer(db *sql.DB) *Syncer {
	return &Syncer{db: db}
}

// Members returns the member IDs associated with ownerID, sorted.
func (s *Syncer) Members(ctx context.Context, j Join, ownerID string) ([]string, error) {
	return s.column(ctx, j.Table, j.MemberCol, j.OwnerCol, ownerID)
}

// Owners returns the owner IDs associated with memberID, sorted.
func (s *Syncer) Owners(ctx context.Context, j Join, memberID string) ([]string, error) {
	return s.column(ctx, j.Table, j.OwnerCol, j.MemberCol, memberID)
}

func (s *Syncer) column(ctx context.Context, table, selectCol, whereCol, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`, selectCol, table, whereCol, selectCol), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Sync makes the member set for ownerID equal desired exactly: rows not in
// desired are deleted, missing ones inserted, all in one transaction. Calling
// it twice with the same desired set is a no-op. A desired ID that does not
// exist fails the whole sync.
func (s *Syncer) Sync(ctx context.Context, j Join, ownerID string, desired []string) error {
	current, err := s.Members(ctx, j, ownerID)
	if err != nil {
		return err
	}
	return s.apply(ctx, j, j.OwnerCol, j.MemberCol, ownerID, current, desired)
}

// SyncOwners is the mirror of Sync: it makes the owner set for memberID equal
// desired exactly.
func (s *Syncer) SyncOwners(ctx context.Context, j Join, memberID string, desired []string) error {
	current, err := s.Owners(ctx, j, memberID)
	if err != nil {
		return err
	}
	return s.apply(ctx, j, j.MemberCol, j.OwnerCol, memberID, current, desired)
}

func (s *Syncer) apply(ctx context.Context, j Join, fixedCol, varCol, fixedID string, current, desired []string) error {
	add, remove := Diff(current, desired)
	if len(add) == 0 && len(remove) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, id := range remove {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`, j.Table, fixedCol, varCol),
			fixedID, id); err != nil {
			return err
		}
	}
	for _, id := range add {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s, %s) VALUES ($1, $2)`, j.Table, fixedCol, varCol),
			fixedID, id); err != nil {
			if ids.IsForeignKeyViolation(err) {
				return apperr.Invalid("unknown " + varCol + ": " + id)
			}
			return err
		}
	}
	return tx.Commit()
}
