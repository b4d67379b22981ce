package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"incidentwatch/utils"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextReporterID = "reporterID"
	ContextUsername   = "username"
)

type AuthMiddleware struct {
	jwtService *utils.JWTService
}

func NewAuthMiddleware(jwtService *utils.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAuth validates the bearer token and sets the reporter identity on
// the request context.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.extractToken(c)
		if token == "" {
			utils.UnauthorizedResponse(c, "Authentication token required")
			c.Abort()
			return
		}

		claims, err := am.jwtService.ValidateToken(token)
		if err != nil {
			logrus.Warnf("Invalid token: %v", err)
			utils.UnauthorizedResponse(c, "Invalid authentication token")
			c.Abort()
			return
		}

		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			utils.UnauthorizedResponse(c, "Authentication token expired")
			c.Abort()
			return
		}
		if claims.TokenType != "access" {
			utils.UnauthorizedResponse(c, "Invalid token type")
			c.Abort()
			return
		}

		c.Set(ContextReporterID, claims.ReporterID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// OptionalAuth sets the reporter identity when a valid token is present but
// never rejects the request.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := am.extractToken(c); token != "" {
			if claims, err := am.jwtService.ValidateToken(token); err == nil && claims.TokenType == "access" {
				c.Set(ContextReporterID, claims.ReporterID)
				c.Set(ContextUsername, claims.Username)
			}
		}
		c.Next()
	}
}

func (am *AuthMiddleware) extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// WebSocket clients cannot set headers from the browser.
	return c.Query("token")
}
