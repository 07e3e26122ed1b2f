package middleware

import (
	"strings"

	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/jwt"
	"companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Error(errors.NewUnauthorizedError(errors.CodeAuthRequired, "Authorization header is required"))
			c.Abort()
			return
		}

		if !authenticate(c, jwtService, log, token) {
			return
		}
		c.Next()
	}
}

// OptionalAuth validates a bearer token when one is sent. Requests without a
// token continue anonymously; a bad token is still rejected.
func OptionalAuth(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		if !authenticate(c, jwtService, log, token) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtService *jwt.Service, log *logger.Logger, token string) bool {
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		log.Warn("Invalid JWT token", "error", err.Error(), "path", c.Request.URL.Path)
		c.Error(errors.NewUnauthorizedError(errors.CodeInvalidToken, "Invalid or expired token"))
		c.Abort()
		return false
	}

	userID := claims.Subject()
	c.Set("claims", claims)
	c.Set("userId", userID)
	c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
	return true
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a WebSocket handshake, so the token query parameter is accepted there.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		if websocket.IsWebSocketUpgrade(c.Request) {
			return c.Query("token")
		}
		return ""
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
