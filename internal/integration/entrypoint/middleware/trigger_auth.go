// Package middleware provides HTTP middleware for the API endpoints.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/facturio/backend/internal/integration/entrypoint/dto"
)

// TriggerAuth guards internal scheduler endpoints with a shared secret
// carried in the X-Trigger-Token header.
type TriggerAuth struct {
	token string
}

// NewTriggerAuth creates the middleware. An empty token disables the guard,
// which is only acceptable in development.
func NewTriggerAuth(token string) *TriggerAuth {
	return &TriggerAuth{token: token}
}

// Middleware returns a Gin handler that enforces the shared secret.
func (t *TriggerAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.token == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Trigger-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(t.token)) != 1 {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error: "invalid trigger token",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
