package middleware

import (
	"net/http"
	"strings"

	"possync/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserIDKey     = "user_id"
	ctxBusinessIDKey = "business_id"
	ctxDeviceIDKey   = "device_id"
)

type AuthMiddleware struct {
	tokens *jwt.Service
}

func NewAuthMiddleware(tokens *jwt.Service) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimSpace(authHeader[len("Bearer "):])
		}

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Access token required",
			})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(ctxUserIDKey, claims.UserID)
		c.Set(ctxBusinessIDKey, claims.BusinessID)
		if claims.DeviceID != nil {
			c.Set(ctxDeviceIDKey, *claims.DeviceID)
		}
		c.Next()
	}
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, ctxUserIDKey)
}

func GetBusinessID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, ctxBusinessIDKey)
}

// GetDeviceID returns the device bound to this token, if any. Only tokens
// minted for an offline device session carry one.
func GetDeviceID(c *gin.Context) (uuid.UUID, bool) {
	return getUUID(c, ctxDeviceIDKey)
}

func getUUID(c *gin.Context, key string) (uuid.UUID, bool) {
	v, exists := c.Get(key)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
