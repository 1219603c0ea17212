package ids

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generator produces human-readable sequential IDs like "STU-0007" by
// scanning the existing IDs for a prefix, taking the highest numeric suffix
// and incrementing it. The scan-then-insert is not atomic; callers retry on
// unique violation up to Attempts times.
type Generator struct {
	db      *sql.DB
	retries int
}

// NewGenerator creates a generator. retries bounds insert retry loops.
func NewGenerator(db *sql.DB, retries int) *Generator {
	if retries <= 0 {
		retries = 3
	}
	return &Generator{db: db, retries: retries}
}

// Attempts returns how many times an insert using a generated ID should be
// tried before giving up.
func (g *Generator) Attempts() int { return g.retries }

// Next returns the next ID for the given table and prefix. table is always a
// code-controlled constant, never user input.
func (g *Generator) Next(ctx context.Context, table, prefix string) (string, error) {
	rows, err := g.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE id LIKE $1`, table), prefix+"-%")
	if err != nil {
		return "", fmt.Errorf("scan %s ids: %w", table, err)
	}
	defer rows.Close()

	max := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if n, ok := Suffix(id); ok && n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return Format(prefix, max+1), nil
}

// Format renders an ID from a prefix and sequence number, zero-padded to four
// digits ("SUB-0001"); wider numbers keep their full width.
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s-%04d", prefix, n)
}

// Suffix extracts the numeric suffix of an ID ("STU-0012" -> 12). The second
// return is false when the ID has no parseable suffix.
func Suffix(id string) (int, bool) {
	i := strings.LastIndexByte(id, '-')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextFrom computes the next ID given an in-memory list of existing IDs.
// Shared by the generator tests and in-memory fakes.
func NextFrom(existing []string, prefix string) string {
	max := 0
	for _, id := range existing {
		if !strings.HasPrefix(id, prefix+"-") {
			continue
		}
		if n, ok := Suffix(id); ok && n > max {
			max = n
		}
	}
	return Format(prefix, max+1)
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a Postgres FK violation, which
// surfaces when a sync or insert references an ID that does not exist.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// ViolatedConstraint returns the constraint name carried by a Postgres
// error, or "" when err is not one. Lets callers tell an ID collision
// (primary key) apart from a data conflict like a duplicate email.
func ViolatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
