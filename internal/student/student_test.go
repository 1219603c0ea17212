package student

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/enroll"
	"classtrack/internal/ids"
)

type fakeRepo struct {
	students map[string]Student
	byTeach  map[string][]string // teacher ID -> student IDs in insert order
	courses  map[string]string   // course ID -> teacher ID
	subjects map[string]string   // subject ID -> teacher ID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		students: map[string]Student{},
		byTeach:  map[string][]string{},
		courses:  map[string]string{},
		subjects: map[string]string{},
	}
}

// fakeSyncer keeps join state in memory the way enroll.Syncer keeps it in
// Postgres: exact-set sync via set difference.
type fakeSyncer struct {
	members map[string][]string // join table + owner ID -> member IDs
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{members: map[string][]string{}}
}

func (f *fakeSyncer) key(j enroll.Join, ownerID string) string { return j.Table + "|" + ownerID }

func (f *fakeSyncer) Sync(_ context.Context, j enroll.Join, ownerID string, desired []string) error {
	current := f.members[f.key(j, ownerID)]
	add, remove := enroll.Diff(current, desired)
	next := make([]string, 0, len(current)+len(add))
	removed := map[string]bool{}
	for _, id := range remove {
		removed[id] = true
	}
	for _, id := range current {
		if !removed[id] {
			next = append(next, id)
		}
	}
	next = append(next, add...)
	sort.Strings(next)
	f.members[f.key(j, ownerID)] = next
	return nil
}

func (f *fakeSyncer) Members(_ context.Context, j enroll.Join, ownerID string) ([]string, error) {
	return f.members[f.key(j, ownerID)], nil
}

func (f *fakeRepo) Insert(_ context.Context, st Student, teacherID string) (Student, error) {
	var existing []string
	for id := range f.students {
		existing = append(existing, id)
	}
	st.ID = ids.NextFrom(existing, IDPrefix)
	st.CreatedAt = time.Now()
	st.UpdatedAt = st.CreatedAt
	f.students[st.ID] = st
	f.byTeach[teacherID] = append(f.byTeach[teacherID], st.ID)
	return st, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Student, error) {
	if st, ok := f.students[id]; ok {
		return &st, nil
	}
	return nil, nil
}

func (f *fakeRepo) ListByTeacher(_ context.Context, teacherID string) ([]Student, error) {
	var out []Student
	for _, id := range f.byTeach[teacherID] {
		if st, ok := f.students[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeRepo) Update(_ context.Context, st Student) error {
	f.students[st.ID] = st
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	delete(f.students, id)
	return nil
}

func (f *fakeRepo) Owned(_ context.Context, studentID, teacherID string) (bool, error) {
	for _, id := range f.byTeach[teacherID] {
		if id == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CourseOwned(_ context.Context, courseID, teacherID string) (bool, error) {
	return f.courses[courseID] == teacherID, nil
}

func (f *fakeRepo) SubjectOwned(_ context.Context, subjectID, teacherID string) (bool, error) {
	return f.subjects[subjectID] == teacherID, nil
}

const teacherID = "TCH-0001"

func TestCreateAndGet(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	created, err := svc.Create(context.Background(), teacherID, Input{FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != "STU-0001" {
		t.Fatalf("id = %q, want STU-0001", created.ID)
	}

	got, err := svc.Get(context.Background(), teacherID, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FirstName != "Ada" || got.LastName != "Lovelace" {
		t.Fatalf("got = %+v", got)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	if _, err := svc.Create(context.Background(), teacherID, Input{FirstName: " ", LastName: "X"}); !apperr.IsValidation(err) {
		t.Fatalf("want validation error for blank first name, got %v", err)
	}
	course := "CRS-0099"
	if _, err := svc.Create(context.Background(), teacherID, Input{FirstName: "A", LastName: "B", CourseID: &course}); !apperr.IsValidation(err) {
		t.Fatalf("want validation error for unknown course, got %v", err)
	}
}

func TestCreateWithCourse(t *testing.T) {
	repo := newFakeRepo()
	repo.courses["CRS-0001"] = teacherID
	svc := NewService(repo, newFakeSyncer())
	course := "CRS-0001"
	created, err := svc.Create(context.Background(), teacherID, Input{FirstName: "Ada", LastName: "Lovelace", CourseID: &course})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.CourseID == nil || *created.CourseID != "CRS-0001" {
		t.Fatalf("course = %v", created.CourseID)
	}
}

func TestGetForeignStudent(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	created, err := svc.Create(context.Background(), teacherID, Input{FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Get(context.Background(), "TCH-0002", created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound for foreign teacher, got %v", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	for _, name := range []string{"Ada", "Alan", "Edsger"} {
		if _, err := svc.Create(context.Background(), teacherID, Input{FirstName: name, LastName: "Test"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	doc, err := svc.Export(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.Count != 3 || len(doc.Students) != 3 {
		t.Fatalf("count = %d, students = %d", doc.Count, len(doc.Students))
	}
	if doc.ExportedAt.IsZero() {
		t.Fatal("exported_at not set")
	}

	// importing its own export into the same roster skips everything
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	res, err := svc.Import(context.Background(), teacherID, raw)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 0 || res.Skipped != 3 {
		t.Fatalf("result = %+v, want 0 imported / 3 skipped", res)
	}
}

func TestImport(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	if _, err := svc.Create(context.Background(), teacherID, Input{FirstName: "Ada", LastName: "Lovelace"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	data := []byte(`{
		"exported_at": "2026-01-15T10:00:00Z",
		"count": 4,
		"students": [
			{"first_name": "ADA", "last_name": "lovelace"},
			{"first_name": "Alan", "last_name": "Turing"},
			{"first_name": "Alan", "middle_name": "M", "last_name": "Turing"},
			{"first_name": "", "last_name": ""}
		]
	}`)
	res, err := svc.Import(context.Background(), teacherID, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	// duplicate triple skipped case-insensitively; distinct middle name is a
	// different student; blank row rejected
	if res.Imported != 2 || res.Skipped != 1 || res.Rejected != 1 {
		t.Fatalf("result = %+v, want 2/1/1", res)
	}

	students, err := svc.List(context.Background(), teacherID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) != 3 {
		t.Fatalf("roster = %d students, want 3", len(students))
	}
}

func TestImportBareList(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	res, err := svc.Import(context.Background(), teacherID,
		[]byte(`[{"first_name": "Grace", "last_name": "Hopper"}]`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Imported != 1 {
		t.Fatalf("result = %+v, want 1 imported", res)
	}
}

func TestImportMalformed(t *testing.T) {
	svc := NewService(newFakeRepo(), newFakeSyncer())
	if _, err := svc.Import(context.Background(), teacherID, []byte(`"nope"`)); !apperr.IsValidation(err) {
		t.Fatalf("want validation error for malformed file, got %v", err)
	}
}

func TestUpdateEnrollments(t *testing.T) {
	repo := newFakeRepo()
	repo.subjects["SUB-0001"] = teacherID
	repo.subjects["SUB-0002"] = teacherID
	repo.subjects["SUB-0003"] = teacherID
	syncer := newFakeSyncer()
	svc := NewService(repo, syncer)

	created, err := svc.Create(context.Background(), teacherID, Input{FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.UpdateEnrollments(context.Background(), teacherID, created.ID, []string{"SUB-0001", "SUB-0002"}); err != nil {
		t.Fatalf("UpdateEnrollments: %v", err)
	}
	got, err := svc.ListEnrollments(context.Background(), teacherID, created.ID)
	if err != nil {
		t.Fatalf("ListEnrollments: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"SUB-0001", "SUB-0002"}) {
		t.Fatalf("enrollments = %v", got)
	}

	// the sync is exact: dropped subjects disappear, repeats are no-ops
	if err := svc.UpdateEnrollments(context.Background(), teacherID, created.ID, []string{"SUB-0002", "SUB-0003"}); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if err := svc.UpdateEnrollments(context.Background(), teacherID, created.ID, []string{"SUB-0002", "SUB-0003"}); err != nil {
		t.Fatalf("repeated sync: %v", err)
	}
	got, err = svc.ListEnrollments(context.Background(), teacherID, created.ID)
	if err != nil {
		t.Fatalf("ListEnrollments: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"SUB-0002", "SUB-0003"}) {
		t.Fatalf("enrollments = %v", got)
	}

	// a subject the teacher does not own fails the whole sync
	if err := svc.UpdateEnrollments(context.Background(), teacherID, created.ID, []string{"SUB-0099"}); !apperr.IsValidation(err) {
		t.Fatalf("want validation error for unknown subject, got %v", err)
	}
}
