package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/student"
)

// CreateStudent adds a student to the teacher's roster.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req student.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.students.Create(c.Request.Context(), auth.TeacherID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// ListStudents returns the teacher's roster.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.students.List(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetStudent returns one student.
func (h *Handler) GetStudent(c *gin.Context) {
	st, err := h.students.Get(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// UpdateStudent edits a student.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req student.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.students.Update(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// DeleteStudent removes a student and its check-ins.
func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateStudentEnrollments replaces the student's enrolled-subject set.
func (h *Handler) UpdateStudentEnrollments(c *gin.Context) {
	var req struct {
		SubjectIDs []string `json:"subject_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.students.UpdateEnrollments(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.SubjectIDs); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_ids": req.SubjectIDs})
}

// ListStudentEnrollments returns the student's enrolled subject IDs.
func (h *Handler) ListStudentEnrollments(c *gin.Context) {
	subjects, err := h.students.ListEnrollments(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject_ids": subjects})
}

// ImportStudents bulk-creates students from an uploaded JSON document.
func (h *Handler) ImportStudents(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body failed"})
		return
	}
	res, err := h.students.Import(c.Request.Context(), auth.TeacherID(c), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExportStudents downloads the roster as a JSON document.
func (h *Handler) ExportStudents(c *gin.Context) {
	doc, err := h.students.Export(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="students.json"`)
	c.JSON(http.StatusOK, doc)
}
