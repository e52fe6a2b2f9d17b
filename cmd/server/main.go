package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"

	"github.com/example/order-notify/internal/api"
	"github.com/example/order-notify/internal/common"
	"github.com/example/order-notify/internal/notify"
	"github.com/example/order-notify/internal/push"
	"github.com/example/order-notify/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("order-notify")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort)
	defer metricsSrv.Shutdown(context.Background())

	// Serving without the credential bundle would accept traffic it can
	// never deliver, so its absence is fatal.
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CredentialsFile).Msg("service account credentials missing")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID},
		option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise firebase app")
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise messaging client")
	}
	pushClient := push.NewFCMClient(messagingClient)

	var notificationStore store.Store
	switch cfg.StoreBackend {
	case common.StoreBackendPostgres:
		if cfg.DatabaseURL == "" {
			logger.Fatal().Msg("DATABASE_URL must be provided for the postgres backend")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		notificationStore, err = store.NewPostgresStore(pool)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise postgres store")
		}
	case common.StoreBackendFirestore:
		fs, err := app.Firestore(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise firestore client")
		}
		defer fs.Close()
		notificationStore = store.NewFirestoreStore(fs)
	default:
		logger.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
	}

	dispatcher := &notify.Dispatcher{
		Push:        pushClient,
		Store:       notificationStore,
		Logger:      logger,
		FanOutLimit: cfg.FanOutLimit,
	}

	handler := api.NewHandler(dispatcher, cfg, logger)

	srv := &http.Server{
		Addr:    formatAddr(cfg.HTTPPort),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Msg("order-notify listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func formatAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
