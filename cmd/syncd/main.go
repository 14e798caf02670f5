package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omnisync/backend/internal/application/monitor"
	appsync "github.com/omnisync/backend/internal/application/sync"
	"github.com/omnisync/backend/internal/domain/alert"
	"github.com/omnisync/backend/internal/infrastructure/config"
	"github.com/omnisync/backend/internal/infrastructure/credentials"
	"github.com/omnisync/backend/internal/infrastructure/logger"
	"github.com/omnisync/backend/internal/infrastructure/notify"
	"github.com/omnisync/backend/internal/infrastructure/persistence"
	"github.com/omnisync/backend/internal/infrastructure/platform"
	"github.com/omnisync/backend/internal/infrastructure/resilience"
	"github.com/omnisync/backend/internal/infrastructure/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    "syncd",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting order sync daemon",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Redis backs credential caching and notification rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}()

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	jobRepo := persistence.NewGormJobRepository(db.DB)
	storeConfigRepo := persistence.NewGormStoreConfigRepository(db.DB)
	mappingRepo := persistence.NewGormProductMappingRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	channelProvider := persistence.NewGormChannelProvider(db.DB)

	// Credential resolution with a Redis read-through cache
	credentialStore := credentials.NewGormCredentialStore(db.DB)
	credentialResolver := credentials.NewCachingCredentialResolver(credentialStore, redisClient, 5*time.Minute, log)

	// Resilience primitives shared by all platform transports
	rateLimiter := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		MaxRequests: cfg.Resilience.RateLimitRequests,
		Window:      cfg.Resilience.RateLimitWindow,
	})
	requestQueue := resilience.NewRequestQueue(resilience.RequestQueueConfig{
		RateLimitDelay: cfg.Resilience.RateLimitDelay,
		MaxQueueDepth:  cfg.Resilience.MaxQueueDepth,
	}, rateLimiter, log)
	breakers := resilience.NewBreakerRegistry(resilience.BreakerConfig{
		FailureThreshold:  cfg.Resilience.FailureThreshold,
		RecoveryTimeout:   cfg.Resilience.RecoveryTimeout,
		HalfOpenSuccesses: cfg.Resilience.HalfOpenSuccesses,
	}, log)
	transport := platform.NewTransport(cfg.Resilience.HTTPTimeout, requestQueue, breakers, log)

	// Register the enabled platform adapters and transformers
	adapters := appsync.NewAdapterRegistry()
	transformers := appsync.NewTransformerRegistry()

	if cfg.Shopee.Enabled {
		shopeeConfig := &platform.ShopeeConfig{
			PartnerID:  cfg.Shopee.PartnerID,
			PartnerKey: cfg.Shopee.PartnerKey,
			APIBaseURL: cfg.Shopee.BaseURL,
			IsSandbox:  cfg.Shopee.Sandbox,
		}
		shopeeAdapter, err := platform.NewShopeeAdapter(shopeeConfig, transport, log)
		if err != nil {
			log.Fatal("Failed to configure Shopee adapter", zap.Error(err))
		}
		adapters.Register(shopeeAdapter)
		transformers.Register(platform.NewShopeeTransformer())
		log.Info("Shopee adapter registered", zap.Bool("sandbox", cfg.Shopee.Sandbox))
	}

	if cfg.TikTok.Enabled {
		tiktokConfig := &platform.TikTokConfig{
			AppKey:     cfg.TikTok.AppKey,
			AppSecret:  cfg.TikTok.AppSecret,
			APIBaseURL: cfg.TikTok.BaseURL,
			IsSandbox:  cfg.TikTok.Sandbox,
		}
		tiktokAdapter, err := platform.NewTikTokAdapter(tiktokConfig, transport, log)
		if err != nil {
			log.Fatal("Failed to configure TikTok adapter", zap.Error(err))
		}
		adapters.Register(tiktokAdapter)
		transformers.Register(platform.NewTikTokTransformer())
		log.Info("TikTok adapter registered", zap.Bool("sandbox", cfg.TikTok.Sandbox))
	}

	if cfg.Storefront.Enabled {
		storefrontConfig := &platform.StorefrontConfig{
			APIBaseURL: cfg.Storefront.BaseURL,
			APISecret:  cfg.Storefront.APISecret,
			TokenTTL:   cfg.Storefront.TokenTTL,
		}
		storefrontAdapter, err := platform.NewStorefrontAdapter(storefrontConfig, transport, log)
		if err != nil {
			log.Fatal("Failed to configure storefront adapter", zap.Error(err))
		}
		adapters.Register(storefrontAdapter)
		transformers.Register(platform.NewStorefrontTransformer())
		log.Info("Storefront adapter registered")
	}

	if len(adapters.List()) == 0 {
		log.Fatal("No platform adapters enabled, nothing to sync")
	}

	// Sync monitor: thresholds, alert channels and notification policy
	senders := []alert.Sender{
		notify.NewWebhookSender(cfg.Monitor.NotifyTimeout, log),
		notify.NewSlackSender(cfg.Monitor.NotifyTimeout, log),
		notify.NewTeamsSender(cfg.Monitor.NotifyTimeout, log),
		notify.NewEmailSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, log),
	}
	notifyLimiter := notify.NewRedisNotificationLimiter(redisClient, notify.LimiterConfig{
		MaxPerTypePerHour: cfg.Monitor.MaxNotifyPerTypeHour,
		CriticalCooldown:  cfg.Monitor.CriticalCooldown,
	}, log)

	thresholds := monitor.StaticThresholds{T: monitor.Thresholds{
		MaxErrorRate:           cfg.Monitor.MaxErrorRate,
		MaxSyncDelay:           cfg.Monitor.MaxSyncDelay,
		MinOrdersExpected:      cfg.Monitor.MinOrdersExpected,
		MaxConsecutiveFailures: cfg.Monitor.MaxConsecutiveFailures,
		SyncTimeout:            cfg.Monitor.SyncTimeout,
	}}
	if err := thresholds.T.Validate(); err != nil {
		log.Fatal("Invalid monitor thresholds", zap.Error(err))
	}

	syncMonitor := monitor.NewOrderSyncMonitor(
		monitor.Config{
			EscalationDelay: cfg.Monitor.EscalationDelay,
			NotifyTimeout:   cfg.Monitor.NotifyTimeout,
		},
		thresholds,
		alertRepo,
		jobRepo,
		channelProvider,
		senders,
		notifyLimiter,
		monitor.NewEscalator(log),
		log,
	)

	// Sync engine with the monitor as its completion hook
	engineConfig := appsync.DefaultEngineConfig()
	engineConfig.FetchRetry = resilience.RetryConfig{
		MaxAttempts: cfg.Resilience.RetryMaxAttempts,
		BaseDelay:   cfg.Resilience.RetryBaseDelay,
		MaxDelay:    cfg.Resilience.RetryMaxDelay,
		Jitter:      true,
	}
	engine := appsync.NewEngine(
		engineConfig,
		adapters,
		appsync.NewNormalizer(transformers, log),
		orderRepo,
		mappingRepo,
		credentialResolver,
		resilience.NewRetryManager(log),
		syncMonitor,
		log,
	)

	// Scheduler: worker pool, periodic trigger and stuck-job scans
	schedulerConfig := scheduler.Config{
		Enabled:            cfg.Scheduler.Enabled,
		MaxConcurrentSyncs: cfg.Scheduler.MaxConcurrentSyncs,
		QueueSize:          cfg.Scheduler.QueueSize,
		JobTimeout:         cfg.Monitor.SyncTimeout,
		TriggerInterval:    cfg.Scheduler.TriggerInterval,
		StuckJobInterval:   cfg.Scheduler.StuckJobInterval,
		JobMaxRetries:      cfg.Scheduler.JobMaxRetries,
		RetryBaseDelay:     cfg.Scheduler.RetryBaseDelay,
		RetryMaxDelay:      cfg.Scheduler.RetryMaxDelay,
	}
	syncScheduler, err := scheduler.NewSyncScheduler(schedulerConfig, engine, jobRepo, storeConfigRepo, syncMonitor, log)
	if err != nil {
		log.Fatal("Invalid scheduler configuration", zap.Error(err))
	}
	if err := syncScheduler.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}
	log.Info("Sync scheduler started",
		zap.Int("max_concurrent_syncs", cfg.Scheduler.MaxConcurrentSyncs),
		zap.Duration("trigger_interval", cfg.Scheduler.TriggerInterval),
		zap.Bool("periodic_trigger", cfg.Scheduler.Enabled),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down sync daemon...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := syncScheduler.Stop(ctx); err != nil {
		log.Error("Scheduler forced to stop", zap.Error(err))
	}

	log.Info("Sync daemon exited gracefully")
}
