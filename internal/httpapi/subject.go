package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/subject"
)

// CreateSubject adds a subject owned by the teacher.
func (h *Handler) CreateSubject(c *gin.Context) {
	var req subject.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.subjects.Create(c.Request.Context(), auth.TeacherID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListSubjects returns the teacher's subjects.
func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjects.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

// GetSubject returns one subject.
func (h *Handler) GetSubject(c *gin.Context) {
	sub, err := h.subjects.Get(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// UpdateSubject edits a subject.
func (h *Handler) UpdateSubject(c *gin.Context) {
	var req subject.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sub, err := h.subjects.Update(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubject removes a subject together with its check-ins.
func (h *Handler) DeleteSubject(c *gin.Context) {
	if err := h.subjects.Delete(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncSubjectCourses replaces the subject's course set.
func (h *Handler) SyncSubjectCourses(c *gin.Context) {
	var req struct {
		CourseIDs []string `json:"course_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.subjects.SyncCourses(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.CourseIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_ids": req.CourseIDs})
}

// ListSubjectCourses returns the subject's course IDs.
func (h *Handler) ListSubjectCourses(c *gin.Context) {
	courses, err := h.subjects.ListCourses(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course_ids": courses})
}

// ListSubjectStudents returns the IDs of students enrolled in the subject.
func (h *Handler) ListSubjectStudents(c *gin.Context) {
	students, err := h.subjects.ListStudents(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_ids": students})
}
