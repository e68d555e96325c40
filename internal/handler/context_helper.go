package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusworks/uniportal-api/internal/middleware"
	"github.com/campusworks/uniportal-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// studentIDFromContext resolves the acting student. Staff and admins may act
// on behalf of a student through the student_id query parameter.
func studentIDFromContext(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	if claims.Role == models.RoleStudent {
		return claims.StudentID
	}
	return c.Query("student_id")
}
