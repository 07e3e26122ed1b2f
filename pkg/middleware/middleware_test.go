package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/jwt"
	"companion-chat/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInFlightGuardRejectsConcurrentSend(t *testing.T) {
	guard := NewInFlightGuard()
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.POST("/send", guard.Middleware(), func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/send", nil)
		req.Header.Set(ConversationHeader, "conv-1")
		r.ServeHTTP(first, req)
		close(done)
	}()
	<-entered

	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req.Header.Set(ConversationHeader, "conv-1")
	r.ServeHTTP(second, req)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), apperrors.CodeSendInProgress)

	close(release)
	<-done
	assert.Equal(t, http.StatusOK, first.Code)

	// the key is free again once the first send finished
	assert.True(t, guard.Acquire("conv-1"))
}

func TestInFlightGuardIgnoresOtherConversations(t *testing.T) {
	guard := NewInFlightGuard()
	require.True(t, guard.Acquire("a"))
	assert.True(t, guard.Acquire("b"))
	assert.False(t, guard.Acquire("a"))
	guard.Release("a")
	assert.True(t, guard.Acquire("a"))
}

func TestOptionalAuth(t *testing.T) {
	svc, err := jwt.NewService("secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.GET("/who", OptionalAuth(svc, logger.Discard()), func(c *gin.Context) {
		userID, ok := CurrentUser(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user": userID, "authenticated": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/who", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"","authenticated":false}`, w.Body.String())

	token, err := svc.GenerateToken(7, "u@example.com")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"user":"7","authenticated":true}`, w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/who", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthMiddlewareRequiresToken(t *testing.T) {
	svc, _ := jwt.NewService("secret", time.Hour)

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.GET("/private", JWTAuthMiddleware(svc, logger.Discard()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userId"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), apperrors.CodeAuthRequired)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(logger.Discard(), RateLimiterOptions{
		Limit:   rate.Every(time.Hour),
		Burst:   2,
		KeyFunc: func(c *gin.Context) string { return "same" },
	})
	defer limiter.Stop()

	r := gin.New()
	r.Use(apperrors.ErrorHandler())
	r.GET("/", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
