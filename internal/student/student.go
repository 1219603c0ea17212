package student

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"classtrack/internal/apperr"
	"classtrack/internal/enroll"
)

// Student belongs to one or more teachers and optionally to a single course.
type Student struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"first_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	LastName   string    `json:"last_name"`
	CourseID   *string   `json:"course_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Repository persists students.
type Repository interface {
	// Insert stores a student and associates it with the creating teacher.
	Insert(ctx context.Context, st Student, teacherID string) (Student, error)
	GetByID(ctx context.Context, id string) (*Student, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Student, error)
	Update(ctx context.Context, st Student) error
	Delete(ctx context.Context, id string) error
	// Owned reports whether the student is associated with the teacher.
	Owned(ctx context.Context, studentID, teacherID string) (bool, error)
	// CourseOwned reports whether the course exists and belongs to the teacher.
	CourseOwned(ctx context.Context, courseID, teacherID string) (bool, error)
	// SubjectOwned reports whether the subject exists and belongs to the teacher.
	SubjectOwned(ctx context.Context, subjectID, teacherID string) (bool, error)
}

// JoinSyncer keeps the student-subject join table in line with a desired set.
type JoinSyncer interface {
	Sync(ctx context.Context, j enroll.Join, ownerID string, desired []string) error
	Members(ctx context.Context, j enroll.Join, ownerID string) ([]string, error)
}

var validate = validator.New()

// Service implements student management for a teacher.
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
	FirstName  string  `json:"first_name" validate:"required"`
	MiddleName string  `json:"middle_name"`
	LastName   string  `json:"last_name" validate:"required"`
	CourseID   *string `json:"course_id"`
}

func (in *Input) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.CourseID != nil && strings.TrimSpace(*in.CourseID) == "" {
		in.CourseID = nil
	}
}

func (s *Service) checkCourse(ctx context.Context, teacherID string, courseID *string) error {
	if courseID == nil {
		return nil
	}
	ok, err := s.repo.CourseOwned(ctx, *courseID, teacherID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Invalid("unknown course: " + *courseID)
	}
	return nil
}

// Create validates and stores a new student for the teacher.
func (s *Service) Create(ctx context.Context, teacherID string, in Input) (Student, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Student{}, apperr.FromValidator(err)
	}
	if err := s.checkCourse(ctx, teacherID, in.CourseID); err != nil {
		return Student{}, err
	}
	return s.repo.Insert(ctx, Student{
		FirstName:  in.FirstName,
		MiddleName: in.MiddleName,
		LastName:   in.LastName,
		CourseID:   in.CourseID,
	}, teacherID)
}

// Get returns one of the teacher's students.
func (s *Service) Get(ctx context.Context, teacherID, id string) (Student, error) {
	if err := s.authorize(ctx, teacherID, id); err != nil {
		return Student{}, err
	}
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if st == nil {
		return Student{}, apperr.ErrNotFound
	}
	return *st, nil
}

// List returns the teacher's students.
func (s *Service) List(ctx context.Context, teacherID string) ([]Student, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

// Update edits a student's names and course reference.
func (s *Service) Update(ctx context.Context, teacherID, id string, in Input) (Student, error) {
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return Student{}, apperr.FromValidator(err)
	}
	st, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return Student{}, err
	}
	if err := s.checkCourse(ctx, teacherID, in.CourseID); err != nil {
		return Student{}, err
	}
	st.FirstName = in.FirstName
	st.MiddleName = in.MiddleName
	st.LastName = in.LastName
	st.CourseID = in.CourseID
	if err := s.repo.Update(ctx, st); err != nil {
		return Student{}, err
	}
	return st, nil
}

// Delete removes a student along with its join rows and check-ins.
func (s *Service) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.authorize(ctx, teacherID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// UpdateEnrollments makes the student's enrolled-subject set equal subjectIDs
// exactly; the sync is idempotent.
func (s *Service) UpdateEnrollments(ctx context.Context, teacherID, studentID string, subjectIDs []string) error {
	if err := s.authorize(ctx, teacherID, studentID); err != nil {
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
	return s.syncer.Sync(ctx, enroll.StudentSubjects, studentID, subjectIDs)
}

// ListEnrollments returns the subject IDs the student is enrolled in.
func (s *Service) ListEnrollments(ctx context.Context, teacherID, studentID string) ([]string, error) {
	if err := s.authorize(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	return s.syncer.Members(ctx, enroll.StudentSubjects, studentID)
}

func (s *Service) authorize(ctx context.Context, teacherID, studentID string) error {
	ok, err := s.repo.Owned(ctx, studentID, teacherID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	return nil
}
