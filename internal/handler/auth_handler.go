package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lecturehub/backend-go/internal/database/models"
	"github.com/lecturehub/backend-go/internal/database/service"
	"github.com/lecturehub/backend-go/internal/middleware"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service     service.AuthService
	rateLimiter middleware.RateLimiter
	logger      *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, rateLimiter middleware.RateLimiter, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
	}
}

// Request/Response DTOs
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Nickname string `json:"nickname" binding:"required,min=1,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest tolerates an absent token; logout succeeds either way.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	UserID       uint        `json:"user_id"`
	Role         models.Role `json:"role"`
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid registration request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email, password (min 8 chars), name, and nickname required."})
		return
	}

	user, err := h.service.Register(req.Email, req.Password, req.Name, req.Nickname)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid login request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Email and password required."})
		return
	}

	if !h.allowAttempt(c) {
		return
	}

	user, tokens, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    tokens.ExpiresIn,
		UserID:       user.ID,
		Role:         user.Role,
	})
}

// RefreshToken handles token rotation
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("❌ [Handler] Invalid refresh request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token required"})
		return
	}

	if !h.allowAttempt(c) {
		return
	}

	user, tokens, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    tokens.ExpiresIn,
		UserID:       user.ID,
		Role:         user.Role,
	})
}

// Logout handles user logout. Always succeeds: logout is idempotent cleanup.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req)

	h.service.Logout(req.RefreshToken)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated caller's identity from the access token claims.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserID)
	role, _ := c.Get(middleware.ContextRole)

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"role":    role,
	})
}

// allowAttempt enforces the per-client attempt limit on login and refresh.
func (h *AuthHandler) allowAttempt(c *gin.Context) bool {
	subject := c.ClientIP()

	allowed, used, err := h.rateLimiter.CheckAttemptLimit(c.Request.Context(), subject)
	if err != nil {
		// Limiter trouble never blocks authentication
		return true
	}
	if !allowed {
		h.logger.Warn("⚠️ [Handler] Too many authentication attempts", "subject", subject, "used", used)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts. Try again later."})
		return false
	}

	if err := h.rateLimiter.RecordAttempt(c.Request.Context(), subject); err != nil {
		h.logger.Warn("⚠️ [Handler] Failed to record attempt", "error", err)
	}

	return true
}

// handleServiceError maps service errors to HTTP responses
func (h *AuthHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrReplayDetected):
		// Distinct code so clients drop stored tokens and force re-login
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Refresh token reuse detected. All sessions have been revoked.",
			"code":  "refresh_reused",
		})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	default:
		h.logger.Error("❌ [Handler] Internal server error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
