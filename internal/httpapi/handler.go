package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/apperr"
	"classtrack/internal/auth"
	"classtrack/internal/checkin"
	"classtrack/internal/config"
	"classtrack/internal/course"
	"classtrack/internal/student"
	"classtrack/internal/subject"
	"classtrack/internal/teacher"
)

// Handler exposes the REST API over the domain services.
type Handler struct {
	cfg      config.App
	teachers *teacher.Service
	students *student.Service
	courses  *course.Service
	subjects *subject.Service
	checkins *checkin.Service
}

// New creates a handler.
func New(cfg config.App, teachers *teacher.Service, students *student.Service,
	courses *course.Service, subjects *subject.Service, checkins *checkin.Service) *Handler {
	return &Handler{
		cfg:      cfg,
		teachers: teachers,
		students: students,
		courses:  courses,
		subjects: subjects,
		checkins: checkins,
	}
}

// Register mounts all API routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.POST("/v1/teachers/register", h.RegisterTeacher)
	r.POST("/v1/teachers/login", h.Login)
	r.POST("/v1/teachers/refresh", h.RefreshToken)

	v1 := r.Group("/v1", auth.TeacherAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))

	v1.GET("/profile", h.GetProfile)
	v1.PUT("/profile", h.UpdateProfile)
	v1.PUT("/profile/password", h.ChangePassword)

	v1.POST("/students", h.CreateStudent)
	v1.GET("/students", h.ListStudents)
	v1.GET("/students/:id", h.GetStudent)
	v1.PUT("/students/:id", h.UpdateStudent)
	v1.DELETE("/students/:id", h.DeleteStudent)
	v1.PUT("/students/:id/subjects", h.UpdateStudentEnrollments)
	v1.GET("/students/:id/subjects", h.ListStudentEnrollments)
	v1.POST("/students/import", h.ImportStudents)
	v1.GET("/students/export", h.ExportStudents)

	v1.POST("/courses", h.CreateCourse)
	v1.GET("/courses", h.ListCourses)
	v1.GET("/courses/:id", h.GetCourse)
	v1.PUT("/courses/:id", h.UpdateCourse)
	v1.DELETE("/courses/:id", h.DeleteCourse)
	v1.PUT("/courses/:id/subjects", h.SyncCourseSubjects)
	v1.GET("/courses/:id/subjects", h.ListCourseSubjects)

	v1.POST("/subjects", h.CreateSubject)
	v1.GET("/subjects", h.ListSubjects)
	v1.GET("/subjects/:id", h.GetSubject)
	v1.PUT("/subjects/:id", h.UpdateSubject)
	v1.DELETE("/subjects/:id", h.DeleteSubject)
	v1.PUT("/subjects/:id/courses", h.SyncSubjectCourses)
	v1.GET("/subjects/:id/courses", h.ListSubjectCourses)
	v1.GET("/subjects/:id/students", h.ListSubjectStudents)

	v1.POST("/checkins", h.RecordCheckin)
	v1.GET("/checkins", h.ListCheckins)
	v1.GET("/checkins/:id", h.GetCheckin)
	v1.PUT("/checkins/:id", h.UpdateCheckin)
	v1.DELETE("/checkins/:id", h.DeleteCheckin)

	v1.GET("/stats/subjects/:id", h.SubjectStats)
	v1.GET("/stats/students/:id", h.StudentStats)
	v1.GET("/stats/readiness", h.Readiness)
}

// fail translates domain errors into HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case apperr.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, teacher.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
