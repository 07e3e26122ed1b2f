package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"companion-chat/backend/ai"
	"companion-chat/backend/api"
	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/internal/repository"
	"companion-chat/backend/internal/service"
	"companion-chat/backend/internal/ws"
	"companion-chat/backend/pkg/cache"
	"companion-chat/backend/pkg/config"
	"companion-chat/backend/pkg/health"
	"companion-chat/backend/pkg/jwt"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/middleware"
	"companion-chat/backend/pkg/observability"
	"companion-chat/backend/pkg/secrets"
	"companion-chat/backend/pkg/validator"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const cacheKeyPrefix = "companion-chat:"

// Container holds all the dependencies for the application
type Container struct {
	Config           *config.Config
	DB               *gorm.DB
	Logger           *logger.Logger
	Secrets          secrets.Manager
	Cache            cache.Store
	JWTService       *jwt.Service
	Models           *ai.Models
	Orchestrator     *conversation.Orchestrator
	UserService      *service.UserService
	CharacterService *service.CharacterService
	AvatarService    *service.AvatarService
	Hub              *ws.Hub
	InFlight         *middleware.InFlightGuard
	RateLimiter      *middleware.RateLimiter
	Health           *health.Checker
	Metrics          *observability.Metrics
	Validator        *validator.OpenAPIValidator

	closers []func(context.Context) error
}

// Deps are the outside-world dependencies a container is assembled from.
// New builds them from configuration; tests pass fakes.
type Deps struct {
	Secrets       secrets.Manager
	Cache         cache.Store
	Models        *ai.Models
	Users         repository.UserRepository
	Characters    repository.CharacterRepository
	DatabasePing  func(ctx context.Context) error
	TraceExporter bool
}

// New creates the production container: secrets, cache, model provider and
// gorm repositories are built from cfg.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Container, error) {
	sm, err := secrets.NewManager(secrets.VaultConfig{
		Enabled:     cfg.Vault.Enabled,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log.WithComponent("secrets"))
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets manager: %w", err)
	}

	models, err := ai.NewProvider(ctx, ai.ProviderConfig{
		Provider:     cfg.Models.Provider,
		GeminiAPIKey: sm.GetSecretWithDefault(ctx, secrets.KeyGeminiAPIKey, cfg.Models.GeminiAPIKey),
		OpenAIAPIKey: sm.GetSecretWithDefault(ctx, secrets.KeyOpenAIAPIKey, cfg.Models.OpenAIAPIKey),
		Names: ai.ModelNames{
			Chat:   cfg.Models.ChatModel,
			Image:  cfg.Models.ImageModel,
			Speech: cfg.Models.SpeechModel,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}
	if cfg.Models.BreakerEnabled {
		models = ai.Guard(models, log)
	}

	return NewWithDeps(cfg, log, Deps{
		Secrets:    sm,
		Cache:      newCacheStore(ctx, cfg, log),
		Models:     models,
		Users:      repository.NewUserRepository(db),
		Characters: repository.NewCharacterRepository(db),
		DatabasePing: func(ctx context.Context) error {
			return config.PingDB(ctx, db)
		},
		TraceExporter: cfg.Observability.TracingEnabled,
	}, db)
}

// NewWithDeps assembles the services on top of deps
func NewWithDeps(cfg *config.Config, log *logger.Logger, deps Deps, db *gorm.DB) (*Container, error) {
	ctx := context.Background()
	c := &Container{Config: cfg, DB: db, Logger: log, Secrets: deps.Secrets, Models: deps.Models}

	if c.Secrets == nil {
		c.Secrets = secrets.NewEnvManager(log)
	}
	c.Cache = deps.Cache
	if c.Cache == nil {
		c.Cache = cache.NopStore{}
	}
	if closer, ok := c.Cache.(interface{ Close() error }); ok {
		c.closers = append(c.closers, func(context.Context) error { return closer.Close() })
	}

	jwtService, err := newJWTService(ctx, cfg, c.Secrets, log)
	if err != nil {
		return nil, err
	}
	c.JWTService = jwtService

	shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName, cfg.Server.Version, deps.TraceExporter, os.Stdout)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, shutdownTracing)

	metrics, err := observability.SetupMetrics(cfg.Observability.ServiceName, cfg.Server.Version)
	if err != nil {
		return nil, err
	}
	c.Metrics = metrics
	c.closers = append(c.closers, metrics.Shutdown)

	c.Orchestrator = conversation.New(
		deps.Models.Chat,
		deps.Models.Images,
		deps.Models.Speech,
		log,
		conversation.Config{
			Temperature:    cfg.Models.Temperature,
			CooldownWindow: cfg.Models.PhotoCooldown,
		},
	)
	c.UserService = service.NewUserService(deps.Users, jwtService)
	c.CharacterService = service.NewCharacterService(deps.Characters, c.Cache, cfg.Cache.TTL, log)
	c.AvatarService = service.NewAvatarService(deps.Models.Images, log)
	c.Hub = ws.NewHub(c.Orchestrator, log)

	c.InFlight = middleware.NewInFlightGuard()
	c.RateLimiter = middleware.NewRateLimiter(log, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
	})
	c.closers = append(c.closers, func(context.Context) error {
		c.RateLimiter.Stop()
		return nil
	})

	c.Health = health.NewChecker(log, 30*time.Second)
	if deps.DatabasePing != nil {
		c.Health.RegisterDatabaseCheck(deps.DatabasePing)
	}
	if pinger, ok := c.Cache.(interface {
		Ping(ctx context.Context) error
	}); ok {
		c.Health.RegisterCacheCheck(pinger.Ping)
	}

	c.Validator, err = newValidator(cfg)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Close releases background resources in reverse order of creation
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newJWTService(ctx context.Context, cfg *config.Config, sm secrets.Manager, log *logger.Logger) (*jwt.Service, error) {
	secret := sm.GetSecretWithDefault(ctx, secrets.KeyJWTSecret, cfg.JWT.Secret)
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET must be set in production: %w", jwt.ErrMissingKey)
		}
		log.Warn("JWT_SECRET not set, using the development secret")
		secret = jwt.DevelopmentSecret
	}
	return jwt.NewService(secret, cfg.JWT.Expiry)
}

// newCacheStore picks Redis when REDIS_URL is set and reachable and the
// in-memory cache otherwise.
func newCacheStore(ctx context.Context, cfg *config.Config, log *logger.Logger) cache.Store {
	if !cfg.Cache.Enabled {
		return cache.NopStore{}
	}

	if cfg.Cache.RedisURL != "" {
		store, err := cache.NewRedisStore(cfg.Cache.RedisURL, cfg.Cache.RedisDB, cacheKeyPrefix, cfg.Cache.TTL)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = store.Ping(pingCtx)
			cancel()
			if err == nil {
				log.Info("Using Redis cache")
				return store
			}
			store.Close()
		}
		log.Warn("Redis unavailable, falling back to in-memory cache", "error", err.Error())
	}

	return cache.NewMemoryStore(cache.NewCache(cache.Options{
		DefaultExpiration: cfg.Cache.TTL,
		CleanupInterval:   cfg.Cache.PurgeWindow,
		MaxItems:          cfg.Cache.MaxSize,
	}))
}

func newValidator(cfg *config.Config) (*validator.OpenAPIValidator, error) {
	if cfg.OpenAPI.SchemaPath != "" {
		return validator.NewOpenAPIValidatorFromFile(cfg.OpenAPI.SchemaPath)
	}
	return validator.NewOpenAPIValidator(api.OpenAPISchema)
}
