package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/checkin"
)

// RecordCheckin stores an attendance record.
func (h *Handler) RecordCheckin(c *gin.Context) {
	var req checkin.Input
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.checkins.Record(c.Request.Context(), auth.TeacherID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// ListCheckins returns check-ins with filters, newest first.
func (h *Handler) ListCheckins(c *gin.Context) {
	f := checkin.Filter{
		StudentID: c.Query("student_id"),
		SubjectID: c.Query("subject_id"),
		Status:    checkin.Status(c.Query("status")),
		From:      c.Query("from"),
		To:        c.Query("to"),
		Limit:     50,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	recs, err := h.checkins.List(c.Request.Context(), auth.TeacherID(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkins": recs})
}

// GetCheckin returns one check-in.
func (h *Handler) GetCheckin(c *gin.Context) {
	rec, err := h.checkins.Get(c.Request.Context(), auth.TeacherID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// UpdateCheckin changes a check-in's status.
func (h *Handler) UpdateCheckin(c *gin.Context) {
	var req struct {
		Status checkin.Status `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.checkins.UpdateStatus(c.Request.Context(), auth.TeacherID(c), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DeleteCheckin removes a check-in.
func (h *Handler) DeleteCheckin(c *gin.Context) {
	if err := h.checkins.Delete(c.Request.Context(), auth.TeacherID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubjectStats returns a per-status summary for a subject.
func (h *Handler) SubjectStats(c *gin.Context) {
	sum, err := h.checkins.SubjectSummary(c.Request.Context(), auth.TeacherID(c), c.Param("id"),
		c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// StudentStats returns a per-status summary for a student.
func (h *Handler) StudentStats(c *gin.Context) {
	sum, err := h.checkins.StudentSummary(c.Request.Context(), auth.TeacherID(c), c.Param("id"),
		c.Query("from"), c.Query("to"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// Readiness reports whether enough setup data exists to record attendance.
func (h *Handler) Readiness(c *gin.Context) {
	r, err := h.checkins.CheckReadiness(c.Request.Context(), auth.TeacherID(c), c.Query("subject_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
