package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-users/internal/config"
	"github.com/prperemyshlev/videotube-users/internal/handler"
	"github.com/prperemyshlev/videotube-users/internal/repository"
	"github.com/prperemyshlev/videotube-users/internal/service"
	"github.com/prperemyshlev/videotube-users/internal/utils"
	"github.com/prperemyshlev/videotube-users/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Mongo())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.AccessTokenSecret,
		cfg.JWT.RefreshTokenSecret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	metrics, err := service.NewMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	stager, err := handler.NewUploadStager(cfg.Upload.Dir, cfg.Upload.MaxBytes)
	if err != nil {
		return nil, err
	}

	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	userService := service.NewUserService(
		repos.User,
		jwtManager,
		infra.Media(),
		infra.Events(),
		metrics,
		logger,
		service.UserServiceOptions{
			BCryptCost: cfg.Security.BCryptCost,
			AvatarSize: cfg.Media.AvatarSize,
		},
	)
	profileService := service.NewProfileService(repos.Profile)

	userHandler := handler.NewUserHandler(userService, profileService, stager, handler.CookieSettings{
		CookieConfig: cfg.Cookie,
		AccessTTL:    cfg.JWT.AccessTokenExpiry.Duration,
		RefreshTTL:   cfg.JWT.RefreshTokenExpiry.Duration,
	}, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	router.MaxMultipartMemory = cfg.Upload.MaxBytes
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	rateLimit := handler.RateLimitMiddleware(
		rateLimiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
		logger,
	)

	setupRoutes(router, userHandler, handler.AuthMiddleware(jwtManager), rateLimit, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	userHandler *handler.UserHandler,
	auth gin.HandlerFunc,
	rateLimit gin.HandlerFunc,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/register", rateLimit, userHandler.Register)
			users.POST("/login", rateLimit, userHandler.Login)
			users.POST("/refresh-access-token", userHandler.RefreshAccessToken)

			users.POST("/logout", auth, userHandler.Logout)
			users.POST("/change-password", auth, userHandler.ChangePassword)
			users.GET("/current-user", auth, userHandler.GetCurrentUser)
			users.PATCH("/update-account", auth, userHandler.UpdateAccountDetails)
			users.PATCH("/avatar", auth, userHandler.UpdateAvatar)
			users.PATCH("/cover-image", auth, userHandler.UpdateCoverImage)
			users.GET("/c/:username", auth, userHandler.GetChannelProfile)
			users.GET("/watch-history", auth, userHandler.GetWatchHistory)
		}
	}
}

// Run binds the listener before serving so a taken port fails fast,
// then serves until ctx is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	logger := a.infra.Logger()

	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		logger.Error("Failed to bind listener", zap.String("addr", a.server.Addr), zap.Error(err))
		return errors.Join(fmt.Errorf("failed to listen on %s: %w", a.server.Addr, err), a.Shutdown())
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Users service listening",
			zap.String("addr", listener.Addr().String()),
			zap.String("env", a.config.Env),
		)
		serveErr <- a.server.Serve(listener)
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped unexpectedly", zap.Error(err))
			runErr = err
		}
	case <-ctx.Done():
		logger.Info("Shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown drains HTTP traffic first and only then releases Mongo, Redis,
// the broker and telemetry, so in-flight requests never hit closed clients.
func (a *App) Shutdown() error {
	logger := a.infra.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout.Duration)
	defer cancel()

	serverErr := a.server.Shutdown(ctx)
	if serverErr != nil {
		logger.Warn("HTTP server did not drain cleanly", zap.Error(serverErr))
	}

	if err := errors.Join(serverErr, a.infra.Shutdown(ctx)); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("Users service stopped")
	return nil
}
