package router

import (
	"net/http"
	"strings"

	"companion-chat/backend/internal/api"
	"companion-chat/backend/pkg/di"
	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/middleware"
	"companion-chat/backend/pkg/observability"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// logger first so every request gets a request id
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(container.Config.Security.AllowedOrigins))
	engine.Use(observability.HTTPMetrics())
	engine.Use(bodyLimit(container.Config.Security.MaxBodySize))

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	ct := r.Container

	jwtAuth := middleware.JWTAuthMiddleware(ct.JWTService, r.Logger)
	optionalAuth := middleware.OptionalAuth(ct.JWTService, r.Logger)
	limited := ct.RateLimiter.Middleware()
	// contract validation runs after authentication
	validate := ct.Validator.Middleware()

	authHandler := api.NewAuthHandler(ct.UserService, r.Logger)
	characterHandler := api.NewCharacterHandler(ct.CharacterService, r.Logger)
	messageHandler := api.NewMessageHandler(ct.Orchestrator, r.Logger)
	avatarHandler := api.NewAvatarHandler(ct.AvatarService)

	r.setupHealthRoutes()
	r.setupDocsRoutes()
	r.Engine.GET("/metrics", gin.WrapH(ct.Metrics.Handler))

	v1 := r.Engine.Group("/api/v1")
	{
		v1.GET("/health", ct.Health.Handler(ct.Config.Server.Version))

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", limited, validate, authHandler.Signup)
			auth.POST("/login", limited, validate, authHandler.Login)
			auth.GET("/me", jwtAuth, validate, authHandler.Me)
		}

		v1.POST("/chat/messages", optionalAuth, limited, validate, ct.InFlight.Middleware(), messageHandler.SendMessage)
		v1.POST("/avatars", optionalAuth, limited, validate, avatarHandler.GenerateAvatar)

		characters := v1.Group("/characters")
		{
			characters.GET("/presets", validate, characterHandler.ListPresets)
			characters.GET("", jwtAuth, validate, characterHandler.ListCharacters)
			characters.POST("", jwtAuth, ct.Validator.MiddlewareWith(api.RejectSave), characterHandler.SaveCharacter)
		}
	}

	r.Engine.GET("/ws", optionalAuth, ct.Hub.ServeWs)
}

// corsMiddleware allows the configured origins, "*" allowing any. WebSocket
// and conversation headers are allowed explicitly.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case origin == "":
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		default:
			if _, ok := origins[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		}
		c.Writer.Header().Add("Vary", "Origin")

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, Authorization, Origin, Upgrade, Connection, Cache-Control, "+middleware.ConversationHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// bodyLimit caps request bodies. Conversation history carries photos, so
// the limit is generous.
func bodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
