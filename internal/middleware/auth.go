package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mendian-cloud/core/internal/pkg/jwt"
	"github.com/mendian-cloud/core/internal/pkg/response"
)

const ContextKeyUserID = "user_id"

// Auth returns a middleware that enforces bearer JWT authentication. Tokens
// are issued by the CRM backend with the shared jwt_secret.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := ValidateToken(extractToken(c))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyUserID, claims.UserID)
		c.Next()
	}
}

// ValidateToken validates a JWT and returns its claims.
func ValidateToken(rawToken string) (*jwt.Claims, error) {
	token := NormalizeToken(rawToken)
	if token == "" {
		return nil, errors.New("token is required")
	}
	return jwt.Parse(token)
}

// IsAuthenticated reports whether the current request carries a valid identity.
func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeyUserID)
	return ok
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return header
	}
	return c.Query("token")
}

// NormalizeToken strips an optional "Bearer " prefix and surrounding space.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
