package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/aloskill/backend/config"
	"github.com/aloskill/backend/internal/database/repository"
	"github.com/aloskill/backend/internal/handlers"
	"github.com/aloskill/backend/internal/metrics"
	"github.com/aloskill/backend/internal/middleware"
	"github.com/aloskill/backend/internal/response"
	"github.com/aloskill/backend/internal/services"
)

// App represents the application
type App struct {
	Router       *gin.Engine
	Config       *config.Config
	DB           *sqlx.DB
	Health       handlers.HealthChecker
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
	Repositories *Repositories
	Services     *Services
	Handlers     *Handlers
	Auth         *middleware.Authenticator
}

// Repositories holds all repository instances
type Repositories struct {
	User repository.UserRepository
}

// Services holds all service instances
type Services struct {
	Token  services.TokenService
	Cookie services.CookieService
	Auth   services.AuthService
	User   services.UserService
}

// Handlers holds all handler instances
type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Course *handlers.CourseHandler
	Health *handlers.HealthHandler
}

// NewApp creates a new application instance
func NewApp(db *sqlx.DB, health handlers.HealthChecker, cfg *config.Config, logger zerolog.Logger) *App {
	app := &App{
		DB:      db,
		Health:  health,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	app.initRepositories()
	app.initServices()
	app.initHandlers()
	app.setupRouter()

	return app
}

func (a *App) initRepositories() {
	a.Repositories = &Repositories{
		User: repository.NewUserRepository(a.DB),
	}
}

func (a *App) initServices() {
	cfg := a.Config
	token := services.NewTokenService(services.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessExpiry:  cfg.AccessTokenDuration,
		RefreshExpiry: cfg.RefreshTokenDuration,
	})
	cookie := services.NewCookieService(services.NewCookieConfig(
		cfg.Environment, cfg.CookieDomain, cfg.AccessTokenDuration, cfg.RefreshTokenDuration,
	))

	a.Services = &Services{
		Token:  token,
		Cookie: cookie,
		Auth:   services.NewAuthService(a.Repositories.User, token, cfg.BcryptCost),
		User:   services.NewUserService(a.Repositories.User),
	}
	a.Auth = middleware.NewAuthenticator(token, cookie, a.Logger)
}

func (a *App) initHandlers() {
	handlers.RegisterValidators()
	a.Handlers = &Handlers{
		Auth:   handlers.NewAuthHandler(a.Services.Auth, a.Services.Token, a.Services.Cookie),
		User:   handlers.NewUserHandler(a.Services.User),
		Course: handlers.NewCourseHandler(),
		Health: handlers.NewHealthHandler(a.Health, a.Config.Version),
	}
}

func allowedOrigins(frontendURL string) []string {
	var origins []string
	for _, origin := range strings.Split(frontendURL, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// setupRouter configures the HTTP router. Logging and metrics wrap the error
// handler so they observe the rendered status.
func (a *App) setupRouter() {
	cfg := a.Config
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(a.Logger),
		a.Metrics.Middleware(),
		middleware.ErrorHandler(a.Logger, cfg.IsProduction(), a.Metrics),
		middleware.Recovery(a.Logger),
		middleware.CORS(allowedOrigins(cfg.FrontendURL)),
		middleware.SecurityHeaders(),
		middleware.RequestSizeLimiter(cfg.BodyLimit),
		middleware.RateLimiter(middleware.RateLimitOptions{
			Limit:  cfg.RateLimit,
			Window: cfg.RateLimitWindow,
			Skip:   middleware.SkipHealth,
		}),
	)
	router.NoRoute(middleware.NotFound())
	router.NoMethod(func(c *gin.Context) {
		response.Fail(c, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	router.GET("/health", a.Handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	authLimiter := middleware.RateLimiter(middleware.RateLimitOptions{
		Limit:   cfg.AuthRateLimit,
		Window:  cfg.RateLimitWindow,
		Message: "Too many authentication attempts, please try again later.",
	})

	api := router.Group("/api/v1")
	a.Handlers.Auth.RegisterRoutes(api, a.Auth, authLimiter)
	a.Handlers.User.RegisterRoutes(api, a.Auth)
	a.Handlers.Course.RegisterRoutes(api, a.Auth)

	a.Router = router
}
