package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chalosawari/chalo-sawari/internal/distance"
	"github.com/chalosawari/chalo-sawari/internal/pricing"
	"github.com/chalosawari/chalo-sawari/internal/vehicles"
	"github.com/chalosawari/chalo-sawari/migrations"
	"github.com/chalosawari/chalo-sawari/pkg/common"
	"github.com/chalosawari/chalo-sawari/pkg/config"
	"github.com/chalosawari/chalo-sawari/pkg/database"
	"github.com/chalosawari/chalo-sawari/pkg/health"
	"github.com/chalosawari/chalo-sawari/pkg/logger"
	"github.com/chalosawari/chalo-sawari/pkg/middleware"
	"github.com/chalosawari/chalo-sawari/pkg/redis"
	"github.com/chalosawari/chalo-sawari/pkg/resilience"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/timeout"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	serviceName = "pricing-service"
	maxBodySize = 1 << 20
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting pricing service",
		zap.String("environment", cfg.Server.Environment),
		zap.String("version", cfg.Server.Version),
	)

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Environment,
			Release:          serviceName + "@" + cfg.Server.Version,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
			logger.Info("Sentry error tracking enabled")
		}
	}

	db, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)
	logger.Info("Connected to database")

	if cfg.Database.RunMigrations {
		if err := database.Migrate(migrations.FS, cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Database migrations applied")
	}

	healthChecks := map[string]func() error{
		"database": health.DatabaseChecker(db),
	}

	opts := []pricing.Option{pricing.WithTaxRate(cfg.Pricing.TaxRate)}

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, pricing cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts = append(opts, pricing.WithCache(pricing.NewRedisCache(redisClient, cfg.Pricing.CacheTTL())))
			healthChecks["redis"] = health.RedisChecker(redisClient.Client)
			logger.Info("Connected to Redis, pricing cache enabled")
		}
	}

	if actor, ok := cfg.Pricing.SystemActor(); ok {
		opts = append(opts, pricing.WithSystemIdentity(pricing.StaticIdentity{ID: actor}))
		logger.Info("Default pricing synthesis enabled", zap.String("system_actor", actor.String()))
	} else {
		logger.Warn("PRICING_SYSTEM_ACTOR_ID not set, default pricing will not be synthesized")
	}

	if cfg.Maps.APIKey != "" {
		provider, err := distance.NewGoogleMatrix(cfg.Maps.APIKey, cfg.Maps.Mode)
		if err != nil {
			logger.Fatal("Failed to create distance provider", zap.Error(err))
		}
		breaker := resilience.NewCircuitBreaker(resilience.BuildSettings("google-maps",
			cfg.Maps.BreakerIntervalSeconds, cfg.Maps.BreakerTimeoutSeconds, cfg.Maps.BreakerFailureThreshold,
		), resilience.GracefulDegradation("google-maps"))
		opts = append(opts, pricing.WithDistanceService(distance.NewService(provider, breaker)))
		healthChecks["google-maps"] = health.BreakerChecker(breaker.Name(), breaker)
		logger.Info("Distance estimates enabled", zap.String("mode", cfg.Maps.Mode))
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, fare estimates by address are disabled")
	}

	vehicleRepo := vehicles.NewRepository(db)
	vehicleService := vehicles.NewService(vehicleRepo)
	vehicleHandler := vehicles.NewHandler(vehicleService)

	opts = append(opts, pricing.WithVehicleDirectory(vehicleRepo))
	pricingService := pricing.NewService(pricing.NewRepository(db), opts...)
	pricingHandler := pricing.NewHandler(pricingService)
	pricingAdminHandler := pricing.NewAdminHandler(pricingService)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	if cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.MaxBodySize(maxBodySize))

	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins())))

	router.GET("/healthz", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/live", common.HealthCheck(serviceName, cfg.Server.Version))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, cfg.Server.Version, healthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(requestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))
	{
		pricingHandler.RegisterRoutes(api)
		vehicleHandler.RegisterRoutes(api)

		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
		admin.Use(middleware.RequireAdmin())
		{
			pricingAdminHandler.RegisterRoutes(admin)
			vehicleHandler.RegisterAdminRoutes(admin)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight vehicle snapshot writes finish before the pool closes.
	pricingService.Wait()

	logger.Info("Server exited")
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowOrigins = origins
	c.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	c.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	return c
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		d = 15 * time.Second
	}
	return timeout.New(
		timeout.WithTimeout(d),
		timeout.WithResponse(func(c *gin.Context) {
			common.ErrorResponse(c, http.StatusGatewayTimeout, "request timed out")
		}),
	)
}
