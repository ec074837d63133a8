package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lpusphere/sphere-server/internal/auth"
	"github.com/lpusphere/sphere-server/internal/core"
	"github.com/lpusphere/sphere-server/internal/store"
)

const (
	// ContextKeyRegNo is the context key for the caller's regNo.
	ContextKeyRegNo = "reg_no"
	// ContextKeyName is the context key for the caller's display name.
	ContextKeyName = "name"
	// ContextKeyRole is the context key for the caller's role.
	ContextKeyRole = "role"
)

// AuthMiddleware creates a middleware that validates JWT tokens.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyRegNo, claims.RegNo)
		c.Set(ContextKeyName, claims.Name)
		c.Set(ContextKeyRole, string(claims.Role))

		c.Next()
	}
}

// identityFrom extracts the verified caller identity stored by AuthMiddleware.
func identityFrom(c *gin.Context) (core.Identity, bool) {
	regNo, ok := c.Get(ContextKeyRegNo)
	if !ok {
		return core.Identity{}, false
	}
	name, _ := c.Get(ContextKeyName)
	role, _ := c.Get(ContextKeyRole)

	regNoStr, ok := regNo.(string)
	if !ok {
		return core.Identity{}, false
	}
	nameStr, _ := name.(string)
	roleStr, _ := role.(string)

	return core.Identity{
		RegNo: regNoStr,
		Name:  nameStr,
		Role:  store.Role(roleStr),
	}, true
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
