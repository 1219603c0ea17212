package course

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"classtrack/internal/apperr"
	"classtrack/internal/enroll"
)

// Course groups subjects and optionally students, owned by one teacher.
type Course struct {
	ID        string    `json:"id"`
	TeacherID string    `json:"teacher_id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository persists courses.
type Repository interface {
	Insert(ctx context.Context, c Course) (Course, error)
	GetByID(ctx context.Context, id string) (*Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Course, error)
	Update(ctx context.Context, c Course) error
	Delete(ctx context.Context, id string) error
	// SubjectOwned reports whether a subject exists and belongs to the teacher.
	SubjectOwned(ctx context.Context, subjectID, teacherID string) (bool, error)
}

// JoinSyncer keeps the course-subject join table in line with a desired set.
type JoinSyncer interface {
	Sync(ctx context.Context, j enroll.Join, ownerID string, desired []string) error
	Members(ctx context.Context, j enroll.Join, ownerID string) ([]string, error)
}

var validate = validator.New()

// Service implements course management for a teacher.
type Service struct {
	repo   Repository
	syncer JoinSyncer
}

// NewService creates a service backed by a repository and join syncer.
func NewService(repo Repository, syncer JoinSyncer) *Service {
	return &Service{repo: repo, syncer: syncer}
}

// Input carries the create/update form.
type Input struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
}

// Create validates and stores a new course.
func (s *Service) Create(ctx context.Context, teacherID string, in Input) (Course, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Course{}, apperr.FromValidator(err)
	}
	return s.repo.Insert(ctx, Course{TeacherID: teacherID, Name: in.Name, Code: in.Code})
}

// Get returns one of the teacher's courses.
func (s *Service) Get(ctx context.Context, teacherID, id string) (Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if c == nil || c.TeacherID != teacherID {
		return Course{}, apperr.ErrNotFound
	}
	return *c, nil
}

// List returns the teacher's courses.
func (s *Service) List(ctx context.Context, teacherID string) ([]Course, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// Update edits name and code.
func (s *Service) Update(ctx context.Context, teacherID, id string, in Input) (Course, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Course{}, apperr.FromValidator(err)
	}
	c, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return Course{}, err
	}
	c.Name = in.Name
	c.Code = in.Code
	if err := s.repo.Update(ctx, c); err != nil {
		return Course{}, err
	}
	return c, nil
}

// Delete removes a course. Its subjects and students survive: join rows are
// dropped and students lose their course reference, nothing else cascades.
func (s *Service) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.Get(ctx, teacherID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SyncSubjects makes the course's subject set equal subjectIDs exactly.
func (s *Service) SyncSubjects(ctx context.Context, teacherID, courseID string, subjectIDs []string) error {
	if _, err := s.Get(ctx, teacherID, courseID); err != nil {
		return err
	}
	for _, sid := range subjectIDs {
		ok, err := s.repo.SubjectOwned(ctx, sid, teacherID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("unknown subject: " + sid)
		}
	}
	return s.syncer.Sync(ctx, enroll.CourseSubjects, courseID, subjectIDs)
}

// ListSubjects returns the subject IDs attached to a course.
func (s *Service) ListSubjects(ctx context.Context, teacherID, courseID string) ([]string, error) {
	if _, err := s.Get(ctx, teacherID, courseID); err != nil {
		return nil, err
	}
	return s.syncer.Members(ctx, enroll.CourseSubjects, courseID)
}
