package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/cache"
	grpcAdapter "github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/mqtt"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/rest"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/adapters/sqlstore"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/config"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/domain"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/executor"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/ports"
	"github.com/quentinrf/plant-monitor/services/statemon/internal/service"
	"github.com/quentinrf/plant-monitor/services/statemon/pkg/tlsconfig"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Console logger until LOG_LEVEL/LOG_FORMAT are known; only config
	// errors are written through it
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Read configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogger(cfg)

	log.Info().Str("store_driver", cfg.StoreDriver).Msg("starting statemon")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bounded worker pool for blocking store calls
	workers := executor.NewPool(cfg.Workers)

	// Initialize repository
	repo, db := openStore(ctx, cfg, workers)

	if cfg.CacheEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable; cache will fall through to the store")
		}
		pingCancel()

		repo = cache.NewReadingRepository(repo, rdb, cfg.CacheTTL)
		log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("enabled redis cache")
	}

	svc := service.NewSensorDataService(repo)

	// Configure TLS if certificates are provided
	var serverTLS *tls.Config
	if cfg.TLSEnabled() {
		serverTLS, err = tlsconfig.LoadServerTLS(cfg.TLSCert, cfg.TLSKey, cfg.TLSCA)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		log.Info().Bool("mtls", cfg.TLSCA != "").Msg("TLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, starting without TLS (dev mode only)")
	}

	// Start HTTP server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           rest.NewRouter(svc),
		TLSConfig:         serverTLS,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("HTTP server listening")
		var err error
		if serverTLS != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to serve HTTP")
		}
	}()

	// Start gRPC health server
	var grpcOpts []grpc.ServerOption
	if serverTLS != nil {
		grpcOpts = append(grpcOpts, grpc.Creds(credentials.NewTLS(serverTLS)))
	}
	pinger, ok := repo.(domain.Pinger)
	if !ok {
		log.Fatal().Msg("repository cannot report health")
	}
	checker := grpcAdapter.NewHealthChecker(pinger, cfg.HealthInterval)
	grpcServer := grpcAdapter.NewServer(checker, grpcOpts...)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen")
	}
	go func() {
		log.Info().Str("port", cfg.GRPCPort).Msg("gRPC health server listening")
		if err := grpcServer.Serve(listener); err != nil {
			log.Fatal().Err(err).Msg("failed to serve gRPC")
		}
	}()
	go checker.Start(ctx)

	// Start MQTT ingestion
	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled {
		subscriber = startSubscriber(ctx, cfg, svc)
	}

	// Start background recorder
	if cfg.SimulateSensorID > 0 {
		sensor := mock.NewFakeSensor(21.5, 1.5, "C") // 21.5±1.5 C (room temperature)
		defer sensor.Close()
		recorder := ports.NewRecorder(cfg.SimulateSensorID, sensor, svc, cfg.RecordInterval)
		go recorder.Start(ctx)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	cancel() // Stop recorder and health checker
	if subscriber != nil {
		subscriber.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	grpcServer.GracefulStop()

	workers.Close()
	if db != nil {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}

	log.Info().Msg("server stopped")
}

// setupLogger applies LOG_LEVEL and LOG_FORMAT
func setupLogger(cfg *config.Config) {
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// openStore builds the configured repository. db is nil for the memory store.
func openStore(ctx context.Context, cfg *config.Config, workers *executor.Pool) (domain.ReadingRepository, *sql.DB) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Info().Msg("initialized in-memory repository")
		return memory.NewReadingRepository(), nil
	}

	dialect, err := sqlstore.DialectFor(cfg.StoreDriver)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported store driver")
	}

	openCtx, openCancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer openCancel()
	db, err := sqlstore.Open(openCtx, dialect, cfg.DatabaseURL, sqlstore.PoolOptions{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", dialect.Driver).Msg("failed to open database")
	}

	log.Info().
		Str("driver", dialect.Driver).
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("workers", cfg.Workers).
		Msg("initialized SQL repository")

	return sqlstore.NewReadingRepository(db, dialect, workers,
		sqlstore.WithAcquireTimeout(cfg.AcquireTimeout),
		sqlstore.WithQueryTimeout(cfg.QueryTimeout),
	), db
}

func startSubscriber(ctx context.Context, cfg *config.Config, svc domain.ReadingService) *mqtt.Subscriber {
	opts := mqtt.Options{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
		Topic:    cfg.MQTTTopic,
		QoS:      cfg.MQTTQoS,
	}
	if cfg.TLSCA != "" {
		tlsCfg, err := tlsconfig.LoadClientTLS(cfg.TLSCert, cfg.TLSKey, cfg.TLSCA)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load MQTT TLS config")
		}
		opts.TLS = tlsCfg
	}

	subscriber, err := mqtt.NewSubscriber(opts, svc)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid MQTT settings")
	}
	if err := subscriber.Start(ctx); err != nil {
		log.Fatal().Err(err).Str("broker", cfg.MQTTBroker).Msg("failed to start MQTT subscriber")
	}
	log.Info().Str("broker", cfg.MQTTBroker).Str("topic", cfg.MQTTTopic).Msg("MQTT ingestion enabled")
	return subscriber
}
