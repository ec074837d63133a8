package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
)

// AuthHandlers provides HTTP handlers for authentication endpoints.
type AuthHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		log:         logger,
	}
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	RegNo    string `json:"regNo" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents the authenticated member in API responses.
type UserResponse struct {
	RegNo string `json:"regNo"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthResponse represents the login response body.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Login handles member login.
// POST /api/auth/login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "regNo and password required"})
		return
	}

	token, user, err := h.authService.Login(c.Request.Context(), req.RegNo, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		h.log.Error().Err(err).Str("reg_no", req.RegNo).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("reg_no", user.RegNo).Msg("member logged in")
	c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User: UserResponse{
			RegNo: user.RegNo,
			Name:  user.Name,
			Role:  string(user.Role),
		},
	})
}
