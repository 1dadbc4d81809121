package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dustinel/risk-engine/internal/alerts"
	"github.com/dustinel/risk-engine/internal/api"
	"github.com/dustinel/risk-engine/internal/cache"
	"github.com/dustinel/risk-engine/internal/config"
	"github.com/dustinel/risk-engine/internal/engine"
	"github.com/dustinel/risk-engine/internal/events"
	"github.com/dustinel/risk-engine/internal/metrics"
	"github.com/dustinel/risk-engine/internal/models"
	"github.com/dustinel/risk-engine/internal/notify"
	"github.com/dustinel/risk-engine/internal/repo"
	"github.com/dustinel/risk-engine/internal/services"
	"github.com/dustinel/risk-engine/internal/utils"
)

// documentStore is satisfied by both the Postgres and in-memory stores.
type documentStore interface {
	services.Store
	alerts.Store
	Ping(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting risk-engine", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readiness := map[string]api.ReadinessCheck{}

	var cacheProvider cache.Provider = cache.NewMemoryProvider()
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable, throttling is local to this replica", slog.Any("error", err))
		} else {
			cacheProvider = provider
			readiness["cache"] = provider.Ping
		}
	}
	defer cacheProvider.Close()

	store, closeStore, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open document store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()
	readiness["store"] = store.Ping

	rules := engine.NewRuleScorer(cfg.Scoring.Deductions, cfg.Scoring.MandatoryPPE)
	ensemble := engine.NewEnsembleScorer(rules, cfg.Scoring.Ensemble)
	var remote engine.RemoteScorer
	if client := repo.NewModelClient(cfg.RemoteModel.Endpoint, cfg.RemoteModel.APIKey, cfg.RemoteModel.Timeout); client != nil {
		remote = client
	} else {
		logger.Info("remote model not configured, scoring locally")
	}
	scorer := engine.NewOrchestrator(logger, rules, ensemble, remote, cfg.RemoteModel.Timeout)

	recommender, err := engine.NewRecommendationEngine(cfg.Recommendations.Path, logger)
	if err != nil {
		logger.Error("failed to load recommendation pack", slog.Any("error", err))
		os.Exit(1)
	}

	manager := alerts.NewManager(store, cacheProvider, cfg.Alerts.Cooldown, logger)

	senders, closeSenders := buildSenders(cfg.Notifications, logger)
	defer closeSenders()
	dispatcher := notify.NewDispatcher(senders, cfg.Notifications.AdminEmails, cfg.Notifications.ChannelTimeout, logger)

	publisher, err := events.NewPublisher(events.Config{
		Enabled:      cfg.Events.Kafka.Enabled,
		Brokers:      cfg.Events.Kafka.Brokers,
		Topic:        cfg.Events.Kafka.Topic,
		Acks:         cfg.Events.Kafka.Acks,
		WriteTimeout: cfg.Events.Kafka.WriteTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to create alert event publisher", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("alert event publisher close", slog.Any("error", err))
		}
	}()

	checkins := services.NewCheckinService(logger, services.CheckinDeps{
		Store:       store,
		Scorer:      scorer,
		Recommender: recommender,
		Alerts:      manager,
		Notifier:    dispatcher,
		Events:      publisher,
	})
	riskService := services.NewRiskService(logger, checkins, scorer, manager, dispatcher)

	server, err := api.NewServer(cfg.Server, riskService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var opsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		opsServer = &http.Server{
			Addr:              cfg.Server.MetricsAddress,
			Handler:           api.NewOpsRouter(readiness),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
		}
		go func() {
			logger.Info("ops server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if opsServer != nil {
		opsCtx, cancelOps := context.WithTimeout(context.Background(), 5*time.Second)
		if err := opsServer.Shutdown(opsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("ops server shutdown", slog.Any("error", err))
		}
		cancelOps()
	}
	logger.Info("risk-engine stopped")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (documentStore, func(), error) {
	if cfg.URL == "" {
		var workers []models.Worker
		if cfg.SeedPath != "" {
			seeded, err := repo.LoadWorkers(cfg.SeedPath)
			if err != nil {
				return nil, nil, err
			}
			workers = seeded
		}
		logger.Warn("database url not set, using in-memory store", slog.Int("seeded_workers", len(workers)))
		return repo.NewMemoryStore(workers...), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := repo.Connect(connectCtx, cfg.URL, cfg.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := store.Migrate(connectCtx); err != nil {
			store.Close()
			return nil, nil, err
		}
		logger.Info("database migrations applied")
	}
	return store, store.Close, nil
}

func buildSenders(cfg config.NotificationsConfig, logger *slog.Logger) (notify.Senders, func()) {
	var senders notify.Senders
	closeFn := func() {}

	if cfg.MQTT.Enabled {
		push, err := notify.NewMQTTPush(notify.MQTTConfig{
			Broker:        cfg.MQTT.Broker,
			ClientID:      cfg.MQTT.ClientID,
			Username:      cfg.MQTT.Username,
			Password:      cfg.MQTT.Password,
			TopicTemplate: cfg.MQTT.TopicTemplate,
			QoS:           byte(cfg.MQTT.QoS),
		}, logger)
		if err != nil {
			logger.Warn("mqtt push unavailable", slog.Any("error", err))
		} else {
			senders.Push = push
			closeFn = push.Close
		}
	}

	gateway := notify.NewGatewayClient(notify.GatewayConfig{
		BaseURL:   cfg.Gateway.BaseURL,
		APIKey:    cfg.Gateway.APIKey,
		SMSPath:   cfg.Gateway.SMSPath,
		EmailPath: cfg.Gateway.EmailPath,
		From:      cfg.Gateway.From,
		Timeout:   cfg.ChannelTimeout,
	})
	if gateway != nil {
		senders.SMS = gateway
		senders.Email = gateway
	} else {
		logger.Info("communications gateway not configured, sms and email disabled")
	}
	return senders, closeFn
}
