package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/course"
)

// CreateCourse adds a course owned by the teacher.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req course.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crs, err := h.courses.Create(c.Request.Context(), auth.TeacherID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, crs)
}

// ListCourses returns the teacher's courses.
func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GetCourse returns one course.
func (h *Handler) GetCourse(c *gin.Context) {
	crs, err := h.courses.Get(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, crs)
}

// UpdateCourse edits a course.
func (h *Handler) UpdateCourse(c *gin.Context) {
	var req course.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	crs, err := h.courses.Update(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, crs)
}

// DeleteCourse removes a course; its subjects and students survive.
func (h *Handler) DeleteCourse(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncCourseSubjects replaces the course's subject set.
func (h *Handler) SyncCourseSubjects(c *gin.Context) {
	var req struct {
		SubjectIDs []string `json:"subject_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.courses.SyncSubjects(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.SubjectIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_ids": req.SubjectIDs})
}

// ListCourseSubjects returns the course's subject IDs.
func (h *Handler) ListCourseSubjects(c *gin.Context) {
	subjects, err := h.courses.ListSubjects(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_ids": subjects})
}
