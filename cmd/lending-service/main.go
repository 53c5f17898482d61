// The lending-service command wires the Postgres lending store, the feature
// handlers, the notification sink, and the HTTP API into one process.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/bookhive/lending-service-go/config"
	"github.com/bookhive/lending-service-go/features/command/borrowbook"
	"github.com/bookhive/lending-service-go/features/command/returnbook"
	"github.com/bookhive/lending-service-go/features/query/listborrowings"
	"github.com/bookhive/lending-service-go/httpapi"
	"github.com/bookhive/lending-service-go/lending/oteladapters"
	"github.com/bookhive/lending-service-go/lending/postgresengine"
	"github.com/bookhive/lending-service-go/notifications"
)

const (
	envListenAddr     = "LISTEN_ADDR"
	defaultListenAddr = ":8080"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	flagMigrate       = "-migrate"
	meterName         = "lending-store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, poolErr := pgxpool.NewWithConfig(ctx, config.PostgresPGXPoolConfig())
	if poolErr != nil {
		logger.Error("failed to create database pool", "error", poolErr.Error())
		os.Exit(1)
	}
	defer pool.Close()

	if len(os.Args) > 1 && os.Args[1] == flagMigrate {
		if _, migrateErr := pool.Exec(ctx, postgresengine.DefaultSchema()); migrateErr != nil {
			logger.Error("failed to apply schema", "error", migrateErr.Error())
			os.Exit(1)
		}

		logger.Info("schema applied")
		return
	}

	store, storeErr := postgresengine.NewLendingStoreFromPGXPool(
		pool,
		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(logger.Handler())),
		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.GetMeterProvider().Meter(meterName))),
	)
	if storeErr != nil {
		logger.Error("failed to create lending store", "error", storeErr.Error())
		os.Exit(1)
	}

	notifier := buildNotifier(logger)

	borrowHandler := borrowbook.NewCommandHandler(store, notifier, borrowbook.WithLogger(logger))
	returnHandler := returnbook.NewCommandHandler(store)
	listHandler := listborrowings.NewQueryHandler(store)

	server := httpapi.NewServer(store, borrowHandler, returnHandler, listHandler, logger)

	httpServer := &http.Server{
		Addr:              listenAddr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("lending service listening", "addr", httpServer.Addr)

		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("http server failed", "error", serveErr.Error())
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("graceful shutdown failed", "error", shutdownErr.Error())
	}
}

// buildNotifier picks the Telegram sink when credentials are configured and
// falls back to logging otherwise.
func buildNotifier(logger *slog.Logger) borrowbook.Notifier {
	telegramCfg := config.TelegramFromEnv()

	if telegramCfg.IsConfigured() {
		notifier, err := notifications.NewTelegramNotifier(telegramCfg.BotToken, telegramCfg.ChatID)
		if err != nil {
			logger.Error("failed to create telegram notifier, falling back to log notifier", "error", err.Error())
			return notifications.NewLogNotifier(logger)
		}

		return notifier
	}

	return notifications.NewLogNotifier(logger)
}

func listenAddr() string {
	if addr := os.Getenv(envListenAddr); addr != "" {
		return addr
	}

	return defaultListenAddr
}
