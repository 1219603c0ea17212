package checkin

import (
	"context"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"classtrack/internal/ids"
)

func TestFilterClauses(t *testing.T) {
	where, args := filterClauses("TCH-0001", Filter{
		StudentID: "STU-0001",
		SubjectID: "SUB-0001",
		Status:    StatusLate,
		From:      "2026-08-01",
		To:        "2026-08-31",
	})
	want := "teacher_id = $1 AND student_id = $2 AND subject_id = $3 AND status = $4 AND occurred_on >= $5 AND occurred_on <= $6"
	if where != want {
		t.Fatalf("where = %q\nwant    %q", where, want)
	}
	wantArgs := []any{"TCH-0001", "STU-0001", "SUB-0001", "late", "2026-08-01", "2026-08-31"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}

	where, args = filterClauses("TCH-0001", Filter{})
	if where != "teacher_id = $1" || len(args) != 1 {
		t.Fatalf("empty filter: where = %q, args = %v", where, args)
	}
}

func TestListNewestFirstWithPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewRepository(db, ids.NewGenerator(db, 3))

	day := func(d string) time.Time {
		parsed, err := time.Parse(DateLayout, d)
		if err != nil {
			t.Fatalf("parse %q: %v", d, err)
		}
		return parsed
	}
	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "subject_id", "teacher_id", "occurred_on", "occurred_at", "status", "created_at",
	}).
		AddRow("CHK-0003", "STU-0001", "SUB-0001", "TCH-0001", day("2026-08-28"), "", "present", now).
		AddRow("CHK-0002", "STU-0001", "SUB-0001", "TCH-0001", day("2026-08-27"), "", "late", now)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY occurred_on DESC, created_at DESC`)).
		WithArgs("TCH-0001", "SUB-0001", 2, 1).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), "TCH-0001", Filter{
		SubjectID: "SUB-0001",
		Limit:     2,
		Offset:    1,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Date != "2026-08-28" || got[1].Date != "2026-08-27" {
		t.Fatalf("order = %q, %q; want newest first", got[0].Date, got[1].Date)
	}
	if got[0].ID != "CHK-0003" || got[1].Status != StatusLate {
		t.Fatalf("rows = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
