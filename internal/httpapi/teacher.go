package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classtrack/internal/auth"
	"classtrack/internal/teacher"
)

func (h *Handler) issueTokens(c *gin.Context, t teacher.Teacher, status int) {
	tokens, err := auth.Issue(t.ID, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL, h.cfg.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := h.teachers.StoreRefreshToken(c.Request.Context(), t.ID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, gin.H{
		"teacher":       t,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}

// RegisterTeacher creates an account and returns a token pair.
func (h *Handler) RegisterTeacher(c *gin.Context) {
	var req teacher.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.teachers.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueTokens(c, t, http.StatusCreated)
}

// Login verifies credentials and returns a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.teachers.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueTokens(c, t, http.StatusOK)
}

// RefreshToken rotates a refresh token into a new pair.
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.teachers.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.issueTokens(c, t, http.StatusOK)
}

// GetProfile returns the authenticated teacher.
func (h *Handler) GetProfile(c *gin.Context) {
	t, err := h.teachers.Get(c.Request.Context(), auth.TeacherID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateProfile edits names and email.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req teacher.UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t, err := h.teachers.UpdateProfile(c.Request.Context(), auth.TeacherID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ChangePassword verifies the current password and stores a new one.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.teachers.ChangePassword(c.Request.Context(), auth.TeacherID(c), req.OldPassword, req.NewPassword); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}
