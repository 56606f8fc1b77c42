package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appbilling "github.com/socialstax/backend/internal/application/billing"
	appidentity "github.com/socialstax/backend/internal/application/identity"
	"github.com/socialstax/backend/internal/domain/billing"
	"github.com/socialstax/backend/internal/infrastructure/auth"
	infrabilling "github.com/socialstax/backend/internal/infrastructure/billing"
	"github.com/socialstax/backend/internal/infrastructure/cache"
	"github.com/socialstax/backend/internal/infrastructure/config"
	"github.com/socialstax/backend/internal/infrastructure/logger"
	"github.com/socialstax/backend/internal/infrastructure/persistence"
	"github.com/socialstax/backend/internal/infrastructure/scheduler"
	"github.com/socialstax/backend/internal/interfaces/http/handler"
	"github.com/socialstax/backend/internal/interfaces/http/router"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting Social StaX backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Webhook deduplication falls back to process-local memory when Redis
	// is unavailable; Stripe retries are then only deduplicated per node.
	var dedupeStore appbilling.EventDedupeStore
	redisStore, err := cache.NewRedisDedupeStore(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory webhook deduplication", zap.Error(err))
		memStore := cache.NewInMemoryDedupeStore()
		defer memStore.Close()
		dedupeStore = memStore
	} else {
		defer func() {
			if err := redisStore.Close(); err != nil {
				log.Error("Error closing Redis connection", zap.Error(err))
			}
		}()
		dedupeStore = redisStore
	}

	userRepo := persistence.NewUserRepository(db.DB)
	usageRepo := persistence.NewUsageRepository(db.DB)
	grantRepo := persistence.NewGrantRepository(db.DB)

	jwtService := auth.NewJWTService(cfg.JWT)

	stripeCfg := infrabilling.NewStripeConfig(cfg.Stripe, cfg.App.Env)
	if stripeCfg.SecretKey != "" {
		if err := stripeCfg.Validate(); err != nil {
			log.Fatal("Invalid Stripe configuration", zap.Error(err))
		}
		stripeCfg.InitStripeClient()
		log.Info("Stripe client initialized", zap.Bool("test_mode", stripeCfg.IsTestMode))
	} else {
		log.Warn("Stripe secret key not configured, billing webhooks will reject all events")
	}

	limitTable := buildLimitTable(cfg.Quota, log)

	authService := appidentity.NewAuthService(userRepo, jwtService, log)
	quotaService := appbilling.NewQuotaService(usageRepo, grantRepo, userRepo, limitTable, log)
	usageService := appbilling.NewUsageService(usageRepo, log)
	grantService := appbilling.NewGrantService(grantRepo, userRepo, log)
	resetService := appbilling.NewResetService(usageRepo, log).WithBatchSize(cfg.Reset.BatchSize)
	webhookService := appbilling.NewStripeWebhookService(stripeCfg, userRepo, dedupeStore, log)

	if cfg.Reset.Enabled {
		resetScheduler := scheduler.NewMonthlyResetScheduler(scheduler.MonthlyResetConfig{
			Hour: cfg.Reset.Hour,
		}, resetService, log)
		if err := resetScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start reset scheduler", zap.Error(err))
		}
		defer func() {
			if err := resetScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping reset scheduler", zap.Error(err))
			}
		}()
		log.Info("Monthly reset scheduler started", zap.Int("hour_utc", cfg.Reset.Hour))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.New(router.Dependencies{
		Logger:     log,
		JWTService: jwtService,
		HTTP:       cfg.HTTP,
		System:     handler.NewSystemHandler(db, version),
		Auth:       handler.NewAuthHandler(authService),
		Quota:      handler.NewQuotaHandler(quotaService),
		Usage:      handler.NewUsageHandler(usageService, quotaService),
		Grant:      handler.NewGrantHandler(grantService),
		Reset:      handler.NewResetHandler(resetService),
		Webhook:    handler.NewStripeWebhookHandler(webhookService),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildLimitTable starts from the built-in limits and applies any per-tier
// overrides from configuration. Unknown tier or resource names are logged
// and skipped rather than silently changing another tier's ceilings.
func buildLimitTable(cfg config.QuotaConfig, log *zap.Logger) billing.LimitTable {
	base := billing.DefaultLimitTable()
	if len(cfg.Limits) == 0 {
		return base
	}

	merged := make(map[billing.PlanTier]billing.PlanLimits)
	for _, tier := range []billing.PlanTier{billing.PlanFree, billing.PlanStarter, billing.PlanPro, billing.PlanEnterprise} {
		merged[tier] = base.LimitsFor(tier)
	}

	for tierName, overrides := range cfg.Limits {
		tier := billing.PlanTier(tierName)
		if !tier.IsValid() {
			log.Warn("Ignoring quota override for unknown plan tier", zap.String("tier", tierName))
			continue
		}
		limits := merged[tier]
		for resourceName, value := range overrides {
			resource, err := billing.ParseResourceType(resourceName)
			if err != nil {
				log.Warn("Ignoring quota override for unknown resource",
					zap.String("tier", tierName),
					zap.String("resource", resourceName))
				continue
			}
			switch resource {
			case billing.ResourceContentGenerations:
				limits.ContentGenerations = value
			case billing.ResourceImageGenerations:
				limits.ImageGenerations = value
			case billing.ResourceVoiceAssistantMinutes:
				limits.VoiceAssistantMinutes = value
			case billing.ResourceAPICalls:
				limits.APICalls = value
			}
		}
		merged[tier] = limits
	}

	return billing.NewLimitTable(merged)
}
