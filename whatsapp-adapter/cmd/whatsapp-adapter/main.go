package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/internal/jobs"
	"github.com/Checker-Finance/commerce-adapters/internal/publisher"
	"github.com/Checker-Finance/commerce-adapters/internal/rate"
	internalsecrets "github.com/Checker-Finance/commerce-adapters/internal/secrets"
	"github.com/Checker-Finance/commerce-adapters/internal/store"
	"github.com/Checker-Finance/commerce-adapters/pkg/logger"
	"github.com/Checker-Finance/commerce-adapters/pkg/model"
	"github.com/Checker-Finance/commerce-adapters/pkg/secrets"
	"github.com/Checker-Finance/commerce-adapters/pkg/utils"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/api"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/metrics"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/internal/whatsapp"
	"github.com/Checker-Finance/commerce-adapters/whatsapp-adapter/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)
	logg.Infow("graph credentials",
		"access_token", utils.MaskSecret(cfg.AccessToken),
		"phone_number_id_set", cfg.PhoneNumberID != "",
		"catalog_id_set", cfg.CatalogID != "",
		"secret_name", cfg.GraphSecretName)

	observer := metrics.NewObserver(logger.Component("whatsapp"))

	// --- Graph credentials (env, optionally overlaid by Secrets Manager) ---
	envCreds := whatsapp.Credentials{
		AccessToken:   cfg.AccessToken,
		PhoneNumberID: cfg.PhoneNumberID,
		CatalogID:     cfg.CatalogID,
	}
	var creds whatsapp.CredentialSource = whatsapp.StaticCredentials(envCreds)
	credentialSource := "env"

	stopCleaner := make(chan struct{})
	if cfg.GraphSecretName != "" {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		credCache := secrets.NewCache[whatsapp.Credentials](cfg.CacheTTL)
		go credCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

		resolver := internalsecrets.NewResolver(
			logger.L(),
			cfg.Env,
			cfg.GraphSecretName,
			awsProvider,
			credCache,
			whatsapp.ParseCredentials(envCreds),
		)
		creds = whatsapp.ResolvedCredentials{Resolve: resolver.Resolve, Bust: resolver.Bust}
		credentialSource = "secrets_manager"
		logg.Infow("graph credentials resolved from Secrets Manager", "secret", resolver.SecretName())
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.GraphRPS,
		Burst:             cfg.GraphBurst,
	})

	// --- Graph client + catalog service ---
	mapper := whatsapp.NewMapper(whatsapp.NewImageResolver(cfg.PlaceholderImageURL), cfg.StorefrontBaseURL)
	client, err := whatsapp.NewClient(logger.Component("graph"), whatsapp.ClientConfig{
		BaseURL:     cfg.GraphBaseURL,
		APIVersion:  cfg.GraphAPIVersion,
		Timeout:     cfg.GraphClientTimeout,
		ReadRetries: cfg.GraphReadRetries,
		MaxPages:    cfg.CatalogMaxPages,
	}, creds, mapper, rateMgr)
	if err != nil {
		logg.Fatalw("failed to init graph client", "error", err)
	}

	// --- Store (Redis dedup + Postgres merchant catalog), both optional ---
	var st *store.HybridStore
	if cfg.RedisAddr != "" || cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
		st, err = store.NewHybrid(ctx, store.Options{
			RedisAddr: cfg.RedisAddr,
			RedisDB:   cfg.RedisDB,
			RedisPass: cfg.RedisPass,
			PGURL:     cfg.DatabaseURL,
			PGPool: store.PGPoolConfig{
				MaxConns:          int32(cfg.PGMaxConns),
				MinConns:          int32(cfg.PGMinConns),
				MaxConnLifetime:   cfg.PGMaxConnLifetime,
				MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
				HealthCheckPeriod: cfg.PGHealthCheckPeriod,
			},
			DedupTTL: cfg.WebhookDedupTTL,
		}, logger.Component("store"))
		if err != nil {
			logg.Fatalw("failed to init store", "error", err)
		}
	}

	var merchant whatsapp.MerchantCatalog
	if st.HasCatalog() {
		merchant = st
	} else {
		logg.Warn("DATABASE_URL not configured; sync_all disabled")
	}

	var dedup whatsapp.Deduplicator
	var memDedup *store.MemoryDedup
	if st.HasRedis() {
		dedup = st
	} else {
		memDedup = store.NewMemoryDedup(cfg.WebhookDedupTTL)
		dedup = memDedup
		logg.Warn("REDIS_ADDR not configured; webhook dedup is per-process")
	}

	svc := whatsapp.NewService(client, mapper, merchant, observer)

	// --- Event sink ---
	sink, err := newSink(cfg, logger.Component("publisher"))
	if err != nil {
		logg.Fatalw("failed to init event sink", "sink", cfg.EventSink, "error", err)
	}

	// --- Scheduled catalog sync ---
	if cfg.CatalogSyncInterval > 0 {
		if merchant == nil {
			logg.Warn("CATALOG_SYNC_INTERVAL set without DATABASE_URL; scheduled sync disabled")
		} else {
			syncJob := jobs.NewPeriodic(logger.Component("jobs"), sink, jobs.Options{
				Name:      "catalog_sync",
				Topic:     whatsapp.TopicCatalogSynced,
				EventType: model.EventCatalogSynced,
				Interval:  cfg.CatalogSyncInterval,
			}, func(ctx context.Context) (any, error) {
				return svc.SyncAll(ctx, "")
			})
			go syncJob.Start(ctx)
		}
	}

	// --- Webhook ---
	if cfg.WebhookVerifyToken == "" {
		logg.Warn("WEBHOOK_VERIFY_TOKEN not configured; every verification handshake will be rejected")
	}
	eventHandler := whatsapp.NewEventHandler(sink, svc, cfg.AutoReplyCatalog, observer)
	router := whatsapp.NewRouter(eventHandler, dedup, observer)
	webhookHandler := whatsapp.NewWebhookHandler(whatsapp.NewVerifier(cfg.WebhookVerifyToken), router, observer)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	handler := api.NewHandler(logger.Component("api"), svc, creds, api.Diagnostics{
		CredentialSource:   credentialSource,
		WebhookVerifyToken: cfg.WebhookVerifyToken,
		MetaAppID:          cfg.MetaAppID,
		MetaAppSecret:      cfg.MetaAppSecret,
	}, cfg.DebugResponses)

	var health api.HealthChecker
	if st != nil {
		health = st
	}
	api.RegisterRoutes(app, handler, webhookHandler, sink, health)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow(fmt.Sprintf("[%s] running", cfg.ServiceName),
		"env", cfg.Env,
		"graph_version", cfg.GraphAPIVersion,
		"event_sink", cfg.EventSink,
		"debug_responses", cfg.DebugResponses)

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	close(stopCleaner)
	if memDedup != nil {
		memDedup.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := sink.Close(); err != nil {
		logg.Warnw("publisher.close_failed", "error", err)
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}

// newSink connects the event sink selected by EVENT_SINK.
func newSink(cfg *config.Config, log *zap.Logger) (publisher.Sink, error) {
	switch cfg.EventSink {
	case publisher.SinkNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		pub, err := publisher.NewNATS(nc, publisher.StreamConfig{
			Name:     cfg.NATSStream,
			Subjects: []string{"evt.whatsapp.>"},
		}, cfg.ServiceName, log)
		if err != nil {
			nc.Close()
			return nil, err
		}
		return pub, nil
	case publisher.SinkAMQP:
		return publisher.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName, log)
	case publisher.SinkNone, "":
		return publisher.Nop{Logger: log}, nil
	default:
		return nil, fmt.Errorf("unknown EVENT_SINK %q", cfg.EventSink)
	}
}
