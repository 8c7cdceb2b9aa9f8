package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Checker-Finance/etims-adapter/internal/api"
	"github.com/Checker-Finance/etims-adapter/internal/config"
	"github.com/Checker-Finance/etims-adapter/internal/publisher"
	"github.com/Checker-Finance/etims-adapter/internal/rate"
	internalsecrets "github.com/Checker-Finance/etims-adapter/internal/secrets"
	"github.com/Checker-Finance/etims-adapter/internal/store"
	"github.com/Checker-Finance/etims-adapter/pkg/etims"
	"github.com/Checker-Finance/etims-adapter/pkg/logger"
	"github.com/Checker-Finance/etims-adapter/pkg/secrets"
	"github.com/Checker-Finance/etims-adapter/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel, cfg.LogDir)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)
	logg.Infow("eTims API", "base_url", cfg.BaseURL(), "username", cfg.APIUsername,
		"password", utils.MaskSecret(cfg.APIPassword))

	clientOpts := []etims.Option{etims.WithLogger(logg.Desugar())}
	if cfg.TokenSingleFlight {
		clientOpts = append(clientOpts, etims.WithSingleFlight())
	}
	serviceOpts := []etims.ServiceOption{
		etims.WithServiceLogger(logg.Desugar()),
		etims.WithSource(cfg.ServiceName),
	}
	registryOpts := []etims.RegistryOption{etims.WithRegistryLogger(logg.Desugar())}
	checks := map[string]api.HealthCheck{}

	// --- Per-taxpayer credentials (AWS Secrets Manager) ---
	if cfg.SecretsEnabled {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		credCache := secrets.NewCache[etims.Credentials](cfg.CacheTTL)
		go credCache.StartCleaner(ctx, cfg.CleanupFreq)

		resolver := internalsecrets.NewCredentialResolver(logg.Desugar(), cfg.Env, awsProvider, credCache)
		tenants, err := resolver.DiscoverTenants(ctx)
		if err != nil {
			logg.Warnw("failed to discover taxpayers from AWS Secrets Manager", "error", err)
		} else {
			logg.Infow("discovered taxpayers", "count", len(tenants), "tins", tenants)
		}
		registryOpts = append(registryOpts, etims.WithCredentialResolver(resolver))
	}

	// --- Lookup cache (Redis) ---
	var st *store.RedisStore
	if cfg.RedisAddr != "" {
		var err error
		st, err = store.NewRedis(store.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPass,
			TTL:      cfg.LookupCacheTTL,
		}, logg.Desugar())
		if err != nil {
			logg.Fatalw("failed to init lookup cache", "error", err, "addr", utils.MaskURL(cfg.RedisAddr))
		}
		serviceOpts = append(serviceOpts, etims.WithLookupCache(st))
		checks["store"] = st.HealthCheck
	}

	// --- Event publisher ---
	pub := newPublisher(cfg, logg.Desugar())
	if natsPub, ok := pub.(*publisher.NATSPublisher); ok {
		checks["nats"] = natsPub.HealthCheck
	}
	serviceOpts = append(serviceOpts, etims.WithEventSink(pub))

	// --- eTims clients ---
	registryOpts = append(registryOpts,
		etims.WithClientOptions(clientOpts...),
		etims.WithServiceOptions(serviceOpts...))
	registry := etims.NewRegistry(cfg.BaseURL(), cfg.Credentials(), registryOpts...)

	// --- Inbound rate limiter ---
	var rateMgr *rate.Manager
	rateCfg := rate.Config{RequestsPerSecond: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst}
	if rateCfg.Enabled() {
		rateMgr = rate.NewManager(rateCfg)
		rateMgr.StartSweeper(ctx, time.Minute, 10*time.Minute)
	}

	// --- Fiber HTTP Server ---
	app := api.NewApp(cfg, logg.Desugar())
	app.Use(api.RequestID(), api.RequestLogger(logg.Desugar()), api.CORS(cfg.CORS))
	api.RegisterRoutes(app, api.NewHandler(logg.Desugar(), registry), rateMgr, checks)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow(fmt.Sprintf("[%s] running", cfg.ServiceName),
		"env", cfg.Env,
		"event_sink", cfg.EventSink,
		"secrets", cfg.SecretsEnabled,
		"lookup_cache", st != nil)

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := pub.Close(); err != nil {
		logg.Warnw("publisher.close_failed", "error", err)
	}
	if st != nil {
		if err := st.Close(); err != nil {
			logg.Warnw("store.close_failed", "error", err)
		}
	}
}

// newPublisher connects the configured event sink, falling back to Nop.
func newPublisher(cfg *config.Config, logger *zap.Logger) publisher.Sink {
	switch cfg.EventSink {
	case config.SinkNATS:
		pub, err := publisher.NewNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.ServiceName, logger)
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.String("url", utils.MaskURL(cfg.NATSURL)), zap.Error(err))
		}
		return pub
	case config.SinkAMQP:
		pub, err := publisher.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName, logger)
		if err != nil {
			logger.Fatal("failed to connect to RabbitMQ", zap.String("url", utils.MaskURL(cfg.AMQPURL)), zap.Error(err))
		}
		return pub
	case config.SinkNone, "":
		return publisher.Nop{}
	default:
		logger.Warn("unknown EVENT_SINK, events disabled", zap.String("event_sink", cfg.EventSink))
		return publisher.Nop{}
	}
}
