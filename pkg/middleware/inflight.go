package middleware

import (
	"sync"

	"companion-chat/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ConversationHeader names the header that identifies a client conversation
const ConversationHeader = "X-Conversation-ID"

// InFlightGuard allows at most one send per conversation at a time. Requests
// without a conversation id are not guarded.
type InFlightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewInFlightGuard creates an empty guard
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{active: make(map[string]struct{})}
}

// Acquire marks key as busy. It returns false if a send is already running.
func (g *InFlightGuard) Acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[key]; busy {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release frees key for the next send
func (g *InFlightGuard) Release(key string) {
	g.mu.Lock()
	delete(g.active, key)
	g.mu.Unlock()
}

// Middleware rejects a send with 409 while another one for the same
// conversation is still being answered.
func (g *InFlightGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(ConversationHeader)
		if key == "" {
			c.Next()
			return
		}

		if !g.Acquire(key) {
			c.Error(errors.NewConflictError(errors.CodeSendInProgress, "A message for this conversation is still being answered"))
			c.Abort()
			return
		}
		defer g.Release(key)

		c.Next()
	}
}
