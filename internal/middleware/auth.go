package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewplan/crew-api/internal/models"
	"github.com/crewplan/crew-api/internal/scheduling"
	appErrors "github.com/crewplan/crew-api/pkg/errors"
	"github.com/crewplan/crew-api/pkg/response"
)

// Context keys set by the auth middleware.
const (
	ContextUserID  = "auth_user_id"
	ContextRole    = "auth_role"
	ContextStaffID = "auth_staff_id"
)

type tokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// Authenticate validates the bearer token and stores the caller identity
// on the request context.
func Authenticate(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextStaffID, claims.StaffID)
		c.Next()
	}
}

// RequireAdmin rejects non-admin callers.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != models.RoleAdmin {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) models.UserRole {
	if role, ok := c.Get(ContextRole); ok {
		if r, ok := role.(models.UserRole); ok {
			return r
		}
	}
	return ""
}

// UserID returns the authenticated user's id.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// StaffID returns the caller's linked staff id, empty for admin accounts.
func StaffID(c *gin.Context) string {
	return c.GetString(ContextStaffID)
}

// Caller derives the scheduling actor from the request identity.
func Caller(c *gin.Context) scheduling.Actor {
	return scheduling.Actor{
		StaffID: StaffID(c),
		Admin:   Role(c) == models.RoleAdmin,
	}
}
