package checkin

import (
	"context"
	"testing"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/ids"
	"classtrack/internal/queue"
)

type fakeRepo struct {
	checkins  map[string]CheckIn
	enrolled  map[string]bool   // studentID+"|"+subjectID
	students  map[string]string // student ID -> owning teacher ID
	subjects  map[string]string // subject ID -> owning teacher ID
	nStudents int
	nSubjects int
	nEnrolled map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		checkins:  map[string]CheckIn{},
		enrolled:  map[string]bool{},
		students:  map[string]string{},
		subjects:  map[string]string{},
		nEnrolled: map[string]int{},
	}
}

func (f *fakeRepo) enroll(tID, studentID, subjectID string) {
	f.students[studentID] = tID
	f.subjects[subjectID] = tID
	f.enrolled[studentID+"|"+subjectID] = true
	f.nEnrolled[subjectID]++
}

func (f *fakeRepo) Insert(_ context.Context, c CheckIn) (CheckIn, error) {
	var existing []string
	for id := range f.checkins {
		existing = append(existing, id)
	}
	c.ID = ids.NextFrom(existing, IDPrefix)
	c.CreatedAt = time.Now()
	f.checkins[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*CheckIn, error) {
	if c, ok := f.checkins[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (f *fakeRepo) matches(c CheckIn, teacherID string, fl Filter) bool {
	if c.TeacherID != teacherID {
		return false
	}
	if fl.StudentID != "" && c.StudentID != fl.StudentID {
		return false
	}
	if fl.SubjectID != "" && c.SubjectID != fl.SubjectID {
		return false
	}
	if fl.Status != "" && c.Status != fl.Status {
		return false
	}
	if fl.From != "" && c.Date < fl.From {
		return false
	}
	if fl.To != "" && c.Date > fl.To {
		return false
	}
	return true
}

func (f *fakeRepo) List(_ context.Context, teacherID string, fl Filter) ([]CheckIn, error) {
	var out []CheckIn
	for _, c := range f.checkins {
		if f.matches(c, teacherID, fl) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	c := f.checkins[id]
	c.Status = status
	f.checkins[id] = c
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	delete(f.checkins, id)
	return nil
}

func (f *fakeRepo) Enrolled(_ context.Context, studentID, subjectID string) (bool, error) {
	return f.enrolled[studentID+"|"+subjectID], nil
}

func (f *fakeRepo) StudentOwned(_ context.Context, studentID, tID string) (bool, error) {
	return f.students[studentID] == tID, nil
}

func (f *fakeRepo) SubjectOwned(_ context.Context, subjectID, tID string) (bool, error) {
	return f.subjects[subjectID] == tID, nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, teacherID string, fl Filter) (map[Status]int, error) {
	counts := map[Status]int{}
	for _, c := range f.checkins {
		if f.matches(c, teacherID, fl) {
			counts[c.Status]++
		}
	}
	return counts, nil
}

func (f *fakeRepo) CountStudents(context.Context, string) (int, error) { return f.nStudents, nil }
func (f *fakeRepo) CountSubjects(context.Context, string) (int, error) { return f.nSubjects, nil }
func (f *fakeRepo) CountEnrolled(_ context.Context, subjectID string) (int, error) {
	return f.nEnrolled[subjectID], nil
}

const (
	teacherID = "TCH-0001"
	studentID = "STU-0001"
	subjectID = "SUB-0001"
)

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, nil, nil, time.Minute)
}

func TestRecord(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	svc := newTestService(repo)

	rec, err := svc.Record(context.Background(), teacherID, Input{
		StudentID: studentID,
		SubjectID: subjectID,
		Date:      "2026-08-27",
		Time:      "09:15",
		Status:    StatusPresent,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.ID != "CHK-0001" {
		t.Fatalf("id = %q, want CHK-0001", rec.ID)
	}
	if rec.TeacherID != teacherID {
		t.Fatalf("teacher = %q", rec.TeacherID)
	}

	// duplicate day is allowed
	dup, err := svc.Record(context.Background(), teacherID, Input{
		StudentID: studentID,
		SubjectID: subjectID,
		Date:      "2026-08-27",
		Status:    StatusLate,
	})
	if err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}
	if dup.ID == rec.ID {
		t.Fatal("duplicate got the same ID")
	}
}

func TestRecordValidation(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	repo.students["STU-0002"] = teacherID // owned but never enrolled
	repo.enroll("TCH-0002", "STU-0050", "SUB-0050")
	svc := newTestService(repo)

	tests := []struct {
		name string
		in   Input
	}{
		{name: "missing student", in: Input{SubjectID: subjectID, Status: StatusPresent}},
		{name: "missing subject", in: Input{StudentID: studentID, Status: StatusPresent}},
		{name: "bad status", in: Input{StudentID: studentID, SubjectID: subjectID, Status: "asleep"}},
		{name: "bad date", in: Input{StudentID: studentID, SubjectID: subjectID, Status: StatusPresent, Date: "27/08/2026"}},
		{name: "bad time", in: Input{StudentID: studentID, SubjectID: subjectID, Status: StatusPresent, Time: "9am"}},
		{name: "unknown student", in: Input{StudentID: "STU-0099", SubjectID: subjectID, Status: StatusPresent}},
		{name: "not enrolled", in: Input{StudentID: "STU-0002", SubjectID: subjectID, Status: StatusPresent}},
		{name: "foreign student", in: Input{StudentID: "STU-0050", SubjectID: subjectID, Status: StatusPresent}},
		{name: "foreign subject", in: Input{StudentID: studentID, SubjectID: "SUB-0050", Status: StatusPresent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Record(context.Background(), teacherID, tt.in); !apperr.IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestRecordDefaultsDate(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	svc := newTestService(repo)

	rec, err := svc.Record(context.Background(), teacherID, Input{
		StudentID: studentID,
		SubjectID: subjectID,
		Status:    StatusPresent,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if rec.Date != time.Now().UTC().Format(DateLayout) {
		t.Fatalf("date = %q, want today", rec.Date)
	}
}

func record(t *testing.T, svc *Service, date string, status Status) {
	t.Helper()
	if _, err := svc.Record(context.Background(), teacherID, Input{
		StudentID: studentID,
		SubjectID: subjectID,
		Date:      date,
		Status:    status,
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestSubjectSummary(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	svc := newTestService(repo)

	record(t, svc, "2026-08-24", StatusPresent)
	record(t, svc, "2026-08-25", StatusPresent)
	record(t, svc, "2026-08-26", StatusLate)
	record(t, svc, "2026-08-27", StatusAbsent)
	record(t, svc, "2026-08-28", StatusExcused)

	sum, err := svc.SubjectSummary(context.Background(), teacherID, subjectID, "", "")
	if err != nil {
		t.Fatalf("SubjectSummary: %v", err)
	}
	if sum.Present != 2 || sum.Late != 1 || sum.Absent != 1 || sum.Excused != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if got := sum.Present + sum.Absent + sum.Late + sum.Excused; got != sum.Total {
		t.Fatalf("counts sum to %d, total is %d", got, sum.Total)
	}
	if want := 3.0 / 5.0; sum.Rate != want {
		t.Fatalf("rate = %v, want %v", sum.Rate, want)
	}

	// date-ranged scope preserves the same invariant
	ranged, err := svc.SubjectSummary(context.Background(), teacherID, subjectID, "2026-08-26", "2026-08-28")
	if err != nil {
		t.Fatalf("ranged summary: %v", err)
	}
	if ranged.Total != 3 {
		t.Fatalf("ranged total = %d, want 3", ranged.Total)
	}
	if got := ranged.Present + ranged.Absent + ranged.Late + ranged.Excused; got != ranged.Total {
		t.Fatalf("ranged counts sum to %d, total is %d", got, ranged.Total)
	}
}

func TestSummaryScopedToOwner(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	svc := newTestService(repo)

	record(t, svc, "2026-08-26", StatusPresent)
	record(t, svc, "2026-08-27", StatusPresent)

	// another teacher querying this subject must not get a summary at all
	if _, err := svc.SubjectSummary(context.Background(), "TCH-0002", subjectID, "", ""); err != apperr.ErrNotFound {
		t.Fatalf("want ErrNotFound for foreign subject, got %v", err)
	}
	if _, err := svc.StudentSummary(context.Background(), "TCH-0002", studentID, "", ""); err != apperr.ErrNotFound {
		t.Fatalf("want ErrNotFound for foreign student, got %v", err)
	}

	// the owner's totals are unaffected by the foreign lookup
	sum, err := svc.SubjectSummary(context.Background(), teacherID, subjectID, "", "")
	if err != nil {
		t.Fatalf("SubjectSummary: %v", err)
	}
	if sum.Total != 2 || sum.Present != 2 {
		t.Fatalf("summary = %+v, want 2 present / 2 total", sum)
	}
}

func TestCacheKeyPerTeacher(t *testing.T) {
	a := cacheKey("TCH-0001", "subject", "SUB-0001")
	b := cacheKey("TCH-0002", "subject", "SUB-0001")
	if a == b {
		t.Fatalf("teachers share a cache key: %q", a)
	}
	if a != "classtrack:stats:TCH-0001:subject:SUB-0001" {
		t.Fatalf("key = %q", a)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	svc := newTestService(repo)
	record(t, svc, "2026-08-27", StatusAbsent)

	rec, err := svc.UpdateStatus(context.Background(), teacherID, "CHK-0001", StatusExcused)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if rec.Status != StatusExcused {
		t.Fatalf("status = %q", rec.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), "TCH-0002", "CHK-0001", StatusPresent); err != apperr.ErrNotFound {
		t.Fatalf("want ErrNotFound for foreign teacher, got %v", err)
	}
}

func TestCheckReadiness(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	r, err := svc.CheckReadiness(context.Background(), teacherID, "")
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if r.Ready || r.HasStudents || r.HasSubjects {
		t.Fatalf("empty setup reported ready: %+v", r)
	}

	repo.nStudents = 3
	repo.nSubjects = 1
	r, err = svc.CheckReadiness(context.Background(), teacherID, "")
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if !r.Ready {
		t.Fatalf("setup with students and subjects not ready: %+v", r)
	}

	// subject scope requires at least one enrollee
	r, err = svc.CheckReadiness(context.Background(), teacherID, subjectID)
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if r.Ready || r.SubjectHasStudents == nil || *r.SubjectHasStudents {
		t.Fatalf("subject with no enrollees reported ready: %+v", r)
	}

	repo.enroll(teacherID, studentID, subjectID)
	r, err = svc.CheckReadiness(context.Background(), teacherID, subjectID)
	if err != nil {
		t.Fatalf("CheckReadiness: %v", err)
	}
	if !r.Ready {
		t.Fatalf("enrolled subject not ready: %+v", r)
	}
}

func TestRecordPublishesRefresh(t *testing.T) {
	repo := newFakeRepo()
	repo.enroll(teacherID, studentID, subjectID)
	q := queue.NewInMemory(4)
	svc := NewService(repo, nil, q, time.Minute)

	record(t, svc, "2026-08-27", StatusPresent)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case msg := <-msgs:
		if msg.Type != queue.TypeCheckin || string(msg.Body) != "CHK-0001" {
			t.Fatalf("message = %+v", msg)
		}
	case <-ctx.Done():
		t.Fatal("no refresh message published")
	}
}
