package checkin

import (
	"context"
	"log"
	"strings"
	"time"

	"classtrack/internal/apperr"
	"classtrack/internal/metrics"
	"classtrack/internal/queue"
	"classtrack/internal/store"
)

// Repository persists check-ins and answers aggregate queries.
type Repository interface {
	Insert(ctx context.Context, c CheckIn) (CheckIn, error)
	GetByID(ctx context.Context, id string) (*CheckIn, error)
	List(ctx context.Context, teacherID string, f Filter) ([]CheckIn, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
	// Enrolled reports whether the student is enrolled in the subject.
	Enrolled(ctx context.Context, studentID, subjectID string) (bool, error)
	// StudentOwned reports whether the student is associated with the teacher.
	StudentOwned(ctx context.Context, studentID, teacherID string) (bool, error)
	// SubjectOwned reports whether the subject exists and belongs to the teacher.
	SubjectOwned(ctx context.Context, subjectID, teacherID string) (bool, error)
	// CountByStatus aggregates the teacher's check-ins matching the filter.
	CountByStatus(ctx context.Context, teacherID string, f Filter) (map[Status]int, error)
	// Setup counts for the readiness check.
	CountStudents(ctx context.Context, teacherID string) (int, error)
	CountSubjects(ctx context.Context, teacherID string) (int, error)
	CountEnrolled(ctx context.Context, subjectID string) (int, error)
}

// Service records check-ins, serves statistics and keeps the stats cache warm
// through the queue-fed worker.
type Service struct {
	repo     Repository
	cache    *store.Redis
	queue    queue.Queue
	cacheTTL time.Duration
}

// NewService creates a service. cache and q may be nil; stats then always hit
// the database and no refresh messages are published.
func NewService(repo Repository, cache *store.Redis, q queue.Queue, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, queue: q, cacheTTL: cacheTTL}
}

// Input carries a check-in to record.
type Input struct {
	StudentID string `json:"student_id"`
	SubjectID string `json:"subject_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Status    Status `json:"status"`
}

// Record validates and stores a check-in. The student must be enrolled in
// the subject; a duplicate record for the same day is allowed.
func (s *Service) Record(ctx context.Context, teacherID string, in Input) (CheckIn, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	if in.StudentID == "" || in.SubjectID == "" {
		return CheckIn{}, apperr.Invalid("student_id and subject_id are required")
	}
	if !in.Status.Valid() {
		return CheckIn{}, apperr.Invalid("status must be one of: present, absent, late, excused")
	}
	if in.Date == "" {
		in.Date = time.Now().UTC().Format(DateLayout)
	} else if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return CheckIn{}, apperr.Invalid("date must be YYYY-MM-DD")
	}
	if in.Time != "" {
		if _, err := time.Parse("15:04", in.Time); err != nil {
			return CheckIn{}, apperr.Invalid("time must be HH:MM")
		}
	}

	if ok, err := s.repo.StudentOwned(ctx, in.StudentID, teacherID); err != nil {
		return CheckIn{}, err
	} else if !ok {
		return CheckIn{}, apperr.Invalid("unknown student: " + in.StudentID)
	}
	if ok, err := s.repo.SubjectOwned(ctx, in.SubjectID, teacherID); err != nil {
		return CheckIn{}, err
	} else if !ok {
		return CheckIn{}, apperr.Invalid("unknown subject: " + in.SubjectID)
	}
	enrolled, err := s.repo.Enrolled(ctx, in.StudentID, in.SubjectID)
	if err != nil {
		return CheckIn{}, err
	}
	if !enrolled {
		return CheckIn{}, apperr.Invalid("student is not enrolled in this subject")
	}

	rec, err := s.repo.Insert(ctx, CheckIn{
		StudentID: in.StudentID,
		SubjectID: in.SubjectID,
		TeacherID: teacherID,
		Date:      in.Date,
		Time:      in.Time,
		Status:    in.Status,
	})
	if err != nil {
		return CheckIn{}, err
	}
	metrics.CheckinsRecorded.WithLabelValues(string(rec.Status)).Inc()
	s.publishRefresh(ctx, rec.ID)
	return rec, nil
}

// Get returns one of the teacher's check-ins.
func (s *Service) Get(ctx context.Context, teacherID, id string) (CheckIn, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return CheckIn{}, err
	}
	if rec == nil || rec.TeacherID != teacherID {
		return CheckIn{}, apperr.ErrNotFound
	}
	return *rec, nil
}

// List returns check-ins matching the filter, newest first.
func (s *Service) List(ctx context.Context, teacherID string, f Filter) ([]CheckIn, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("status must be one of: present, absent, late, excused")
	}
	return s.repo.List(ctx, teacherID, f)
}

// UpdateStatus changes the status on an existing check-in.
func (s *Service) UpdateStatus(ctx context.Context, teacherID, id string, status Status) (CheckIn, error) {
	if !status.Valid() {
		return CheckIn{}, apperr.Invalid("status must be one of: present, absent, late, excused")
	}
	rec, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return CheckIn{}, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return CheckIn{}, err
	}
	rec.Status = status
	s.publishRefresh(ctx, rec.ID)
	return rec, nil
}

// Delete removes a check-in.
func (s *Service) Delete(ctx context.Context, teacherID, id string) error {
	rec, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, teacherID, rec.SubjectID, rec.StudentID)
	return nil
}

// SubjectSummary aggregates check-ins for one subject. Unfiltered summaries
// are served from the cache when warm. Foreign subjects are not found.
func (s *Service) SubjectSummary(ctx context.Context, teacherID, subjectID, from, to string) (Summary, error) {
	if ok, err := s.repo.SubjectOwned(ctx, subjectID, teacherID); err != nil {
		return Summary{}, err
	} else if !ok {
		return Summary{}, apperr.ErrNotFound
	}
	f := Filter{SubjectID: subjectID, From: from, To: to}
	return s.summary(ctx, teacherID, "subject", subjectID, f)
}

// StudentSummary aggregates check-ins for one student.
func (s *Service) StudentSummary(ctx context.Context, teacherID, studentID, from, to string) (Summary, error) {
	if ok, err := s.repo.StudentOwned(ctx, studentID, teacherID); err != nil {
		return Summary{}, err
	} else if !ok {
		return Summary{}, apperr.ErrNotFound
	}
	f := Filter{StudentID: studentID, From: from, To: to}
	return s.summary(ctx, teacherID, "student", studentID, f)
}

func (s *Service) summary(ctx context.Context, teacherID, scope, id string, f Filter) (Summary, error) {
	unfiltered := f.From == "" && f.To == ""
	key := cacheKey(teacherID, scope, id)
	if unfiltered {
		var cached Summary
		if s.cache.GetJSON(ctx, key, &cached) {
			metrics.StatsCache.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.StatsCache.WithLabelValues("miss").Inc()
	}
	counts, err := s.repo.CountByStatus(ctx, teacherID, f)
	if err != nil {
		return Summary{}, err
	}
	sum := summarize(scope, id, counts)
	if unfiltered {
		s.cache.SetJSON(ctx, key, sum, s.cacheTTL)
	}
	return sum, nil
}

// CheckReadiness reports whether the teacher can start recording: at least
// one student and one subject exist and, when subjectID is given, the subject
// has at least one enrolled student.
func (s *Service) CheckReadiness(ctx context.Context, teacherID, subjectID string) (Readiness, error) {
	students, err := s.repo.CountStudents(ctx, teacherID)
	if err != nil {
		return Readiness{}, err
	}
	subjects, err := s.repo.CountSubjects(ctx, teacherID)
	if err != nil {
		return Readiness{}, err
	}
	r := Readiness{HasStudents: students > 0, HasSubjects: subjects > 0}
	r.Ready = r.HasStudents && r.HasSubjects
	if subjectID != "" {
		enrolled, err := s.repo.CountEnrolled(ctx, subjectID)
		if err != nil {
			return Readiness{}, err
		}
		has := enrolled > 0
		r.SubjectHasStudents = &has
		r.Ready = r.Ready && has
	}
	return r, nil
}

// Refresh recomputes and re-caches the summaries touched by a check-in.
// Called by the worker for each queue message.
func (s *Service) Refresh(ctx context.Context, checkinID string) error {
	rec, err := s.repo.GetByID(ctx, checkinID)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperr.ErrNotFound
	}
	subCounts, err := s.repo.CountByStatus(ctx, rec.TeacherID, Filter{SubjectID: rec.SubjectID})
	if err != nil {
		return err
	}
	s.cache.SetJSON(ctx, cacheKey(rec.TeacherID, "subject", rec.SubjectID), summarize("subject", rec.SubjectID, subCounts), s.cacheTTL)

	stuCounts, err := s.repo.CountByStatus(ctx, rec.TeacherID, Filter{StudentID: rec.StudentID})
	if err != nil {
		return err
	}
	s.cache.SetJSON(ctx, cacheKey(rec.TeacherID, "student", rec.StudentID), summarize("student", rec.StudentID, stuCounts), s.cacheTTL)
	return nil
}

func (s *Service) publishRefresh(ctx context.Context, checkinID string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Publish(ctx, queue.Message{Type: queue.TypeCheckin, Body: []byte(checkinID)}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

func (s *Service) invalidate(ctx context.Context, teacherID, subjectID, studentID string) {
	s.cache.Invalidate(ctx, cacheKey(teacherID, "subject", subjectID), cacheKey(teacherID, "student", studentID))
}

// cacheKey scopes cached summaries to the owning teacher so one teacher's
// lookups can never seed another's entries.
func cacheKey(teacherID, scope, id string) string {
	return "classtrack:stats:" + teacherID + ":" + scope + ":" + id
}
