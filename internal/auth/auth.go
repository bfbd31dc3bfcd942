package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	contextUserIDKey = "auth_user_id"
	contextRoleKey   = "auth_role"
)

// claims is the token shape session issuance (external to this service)
// signs: subject carries the user id, role the actor kind.
type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Middleware authenticates the bearer token and stores the actor's id and
// role on the request context. Session issuance lives outside this service;
// here we only verify the HMAC signature and extract identity.
func Middleware(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing bearer token",
			})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")

		var cl claims
		token, err := jwt.ParseWithClaims(tokenStr, &cl, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			logger.Debug("Rejected bearer token",
				slog.Any("error", err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		if cl.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "token has no subject",
			})
			return
		}

		c.Set(contextUserIDKey, cl.Subject)
		c.Set(contextRoleKey, cl.Role)
		c.Next()
	}
}

// UserID returns the authenticated actor's id, empty when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

// Role returns the authenticated actor's role.
func Role(c *gin.Context) string {
	return c.GetString(contextRoleKey)
}

// RequireRole rejects requests whose token carries a different role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Role(c) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role",
			})
			return
		}
		c.Next()
	}
}
