package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/DrynaaCode/vegedex-v2-tsc/internal/core/domain"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/infra/config"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/handlers"
	"github.com/DrynaaCode/vegedex-v2-tsc/internal/transport/http/middleware"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          handlers.AuthService
	PasswordReset handlers.PasswordResetService
	Profiles      handlers.ProfileService
	Admin         handlers.AdminService
	Plants        handlers.PlantService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Tokens      middleware.TokenVerifier
	Accounts    middleware.AccountLookup
	RateLimiter *middleware.RateLimiter
	Tracer      trace.Tracer
	HTTPMetrics *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
	Storage     StorageChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// StorageChecker exposes readiness behaviour for the image bucket.
type StorageChecker interface {
	HealthCheck(ctx context.Context) error
}

var (
	staffRoles = []domain.Role{domain.RoleAdministrator, domain.RoleModerator}
	adminRoles = []domain.Role{domain.RoleAdministrator}
)

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if deps.Tracer != nil {
		r.Use(middleware.Tracing(deps.Tracer))
	}
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders(cfg.App.IsProduction()))
	r.Use(middleware.CORS(cfg.HTTP.ClientURL))
	r.Use(middleware.Logger(log))
	r.Use(deps.HTTPMetrics.Handler())
	r.Use(middleware.JSONBodyGuard(0))

	healthOptions := []handlers.HealthOption{handlers.WithHealthLogger(log)}
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("postgres", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	if deps.Storage != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("storage", deps.Storage.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	requireAuth := middleware.RequireAuth(deps.Tokens)
	requireActive := middleware.RequireActive(deps.Accounts, log)
	optionalAuth := middleware.OptionalAuth(deps.Tokens)
	optionalActive := middleware.OptionalActive(deps.Accounts, log)

	api := r.Group("/api")

	if deps.Services.Auth != nil && deps.Services.PasswordReset != nil {
		cookies := handlers.CookiePolicy{
			Production: cfg.App.IsProduction(),
			AccessTTL:  cfg.JWT.AccessTokenTTL,
			RefreshTTL: cfg.JWT.RefreshTokenTTL,
		}
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, cookies, log)
		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset, cfg.App.IsTest(), log)

		auth := api.Group("/auth")
		auth.POST("/register", limited(deps, "auth_register_ip", cfg.RateLimit.RegisterMaxAttempts, authHandler.Register)...)
		auth.POST("/login", limited(deps, "auth_login_ip", cfg.RateLimit.LoginMaxAttempts, authHandler.Login)...)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh-token", authHandler.Refresh)
		auth.POST("/forgot-password", limited(deps, "password_forgot_ip", cfg.RateLimit.PasswordResetMaxAttempts, passwordHandler.ForgotPassword)...)
		auth.POST("/reset-password", limited(deps, "password_reset_ip", cfg.RateLimit.PasswordResetMaxAttempts, passwordHandler.ResetPassword)...)
	}

	if deps.Services.Profiles != nil {
		profileHandler := handlers.NewProfileHandler(deps.Services.Profiles, log)

		user := api.Group("/user", requireAuth)
		user.GET("/me", requireActive, profileHandler.Me)
		user.PATCH("/me", requireActive, profileHandler.UpdateMe)
		user.PATCH("/settings", profileHandler.UpdateSettings)
	}

	if deps.Services.Plants != nil {
		maxUpload := cfg.HTTP.MaxUploadBytes
		plantHandler := handlers.NewPlantHandler(deps.Services.Plants, maxUpload, log)
		staff := []gin.HandlerFunc{requireAuth, requireActive, middleware.RequireRole(staffRoles...)}

		plants := api.Group("/plants")
		plants.GET("", optionalAuth, optionalActive, plantHandler.List)
		plants.GET("/:id", optionalAuth, plantHandler.Get)
		plants.POST("", chain(staff, plantHandler.Create)...)
		plants.POST("/bulk", chain(staff, plantHandler.BulkCreate)...)
		plants.POST("/:id/image", chain(staff, plantHandler.AddImage)...)
	}

	if deps.Services.Admin != nil {
		adminHandler := handlers.NewAdminHandler(deps.Services.Admin, log)

		admin := api.Group("/admin/user", requireAuth, requireActive)
		admin.GET("", middleware.RequireRole(adminRoles...), adminHandler.ListUsers)
		admin.PATCH("/:id/ban", middleware.RequireRole(staffRoles...), adminHandler.Ban)
		admin.PATCH("/:id/unban", middleware.RequireRole(staffRoles...), adminHandler.Unban)
		admin.PATCH("/:id/role", middleware.RequireRole(adminRoles...), adminHandler.ChangeRole)
	}

	handlers.RegisterSwagger(r)
	r.NoRoute(middleware.NoRoute())

	return r
}

// limited prepends a per-IP sliding-window limit to handler when a limiter
// and a positive limit are configured.
func limited(deps Dependencies, name string, limit int, handler gin.HandlerFunc) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil || limit <= 0 {
		return []gin.HandlerFunc{handler}
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = 15 * time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}
	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule), handler}
}

func chain(gates []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(gates)+1)
	out = append(out, gates...)
	return append(out, handler)
}
