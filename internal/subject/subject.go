package subject

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"classtrack/internal/apperr"
	"classtrack/internal/enroll"
)

// Subject is the primary attendance-recording target, owned by one teacher.
type Subject struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository persists subjects.
type Repository interface {
	Insert(ctx context.Context, sub Subject) (Subject, error)
	GetByID(ctx context.Context, id string) (*Subject, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Subject, error)
	Update(ctx context.Context, sub Subject) error
	Delete(ctx context.Context, id string) error
	// CourseOwned reports whether a course exists and belongs to the teacher.
	CourseOwned(ctx context.Context, courseID, teacherID string) (bool, error)
}

// JoinSyncer keeps the course-subject join table in line with a desired set.
type JoinSyncer interface {
	SyncOwners(ctx context.Context, j enroll.Join, memberID string, desired []string) error
	Owners(ctx context.Context, j enroll.Join, memberID string) ([]string, error)
}

var validate = validator.New()

// Service implements subject management for a teacher.
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
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Description string `json:"description"`
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Description = strings.TrimSpace(in.Description)
}

// Create validates and stores a new subject.
func (s *Service) Create(ctx context.Context, teacherID string, in Input) (Subject, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Subject{}, apperr.FromValidator(err)
	}
	return s.repo.Insert(ctx, Subject{
		TeacherID:   teacherID,
		Name:        in.Name,
		Code:        in.Code,
		Description: in.Description,
	})
}

// Get returns one of the teacher's subjects.
func (s *Service) Get(ctx context.Context, teacherID, id string) (Subject, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	if sub == nil || sub.TeacherID != teacherID {
		return Subject{}, apperr.ErrNotFound
	}
	return *sub, nil
}

// List returns the teacher's subjects.
func (s *Service) List(ctx context.Context, teacherID string) ([]Subject, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// Update edits name, code and description.
func (s *Service) Update(ctx context.Context, teacherID, id string, in Input) (Subject, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Subject{}, apperr.FromValidator(err)
	}
	sub, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return Subject{}, err
	}
	sub.Name = in.Name
	sub.Code = in.Code
	sub.Description = in.Description
	if err := s.repo.Update(ctx, sub); err != nil {
		return Subject{}, err
	}
	return sub, nil
}

// Delete removes a subject together with its check-ins and join rows.
func (s *Service) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.Get(ctx, teacherID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// SyncCourses makes the subject's course set equal courseIDs exactly.
func (s *Service) SyncCourses(ctx context.Context, teacherID, subjectID string, courseIDs []string) error {
	if _, err := s.Get(ctx, teacherID, subjectID); err != nil {
		return err
	}
	for _, cid := range courseIDs {
		ok, err := s.repo.CourseOwned(ctx, cid, teacherID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Invalid("unknown course: " + cid)
		}
	}
	return s.syncer.SyncOwners(ctx, enroll.CourseSubjects, subjectID, courseIDs)
}

// ListCourses returns the course IDs attached to a subject.
func (s *Service) ListCourses(ctx context.Context, teacherID, subjectID string) ([]string, error) {
	if _, err := s.Get(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}
	return s.syncer.Owners(ctx, enroll.CourseSubjects, subjectID)
}

// ListStudents returns the student IDs enrolled in a subject.
func (s *Service) ListStudents(ctx context.Context, teacherID, subjectID string) ([]string, error) {
	if _, err := s.Get(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}
	return s.syncer.Owners(ctx, enroll.StudentSubjects, subjectID)
}
