/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load .env (if present) and parse flags
  2. Build the store: PostgreSQL when DATABASE_URL is set, SQLite otherwise
  3. Wire optional collaborators: directory client, kafka publisher,
     Prometheus metrics
  4. Start the HTTP server and the archive sweeper
  5. On SIGINT/SIGTERM: stop the sweeper, drain requests, close the store

FLAGS:
  -port      HTTP server port (default: 8080)
  -db        SQLite database path (default: wallet.db, ":memory:" works)
  -sweep     archive sweep interval (default: 1h)

ENVIRONMENT:
  DATABASE_URL   PostgreSQL connection string (overrides -db)
  DIRECTORY_URL  user-directory base URL (history enrichment, email transfers)
  KAFKA_BROKERS  comma-separated broker list for operation events
  KAFKA_TOPIC    topic for operation events (default: wallet.operations)
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/NomcciDubs/nomcci-wallet/api"
	"github.com/NomcciDubs/nomcci-wallet/directory"
	eventskafka "github.com/NomcciDubs/nomcci-wallet/events/kafka"
	walletprom "github.com/NomcciDubs/nomcci-wallet/metrics/prometheus"
	"github.com/NomcciDubs/nomcci-wallet/store/postgres"
	"github.com/NomcciDubs/nomcci-wallet/store/sqlite"
	"github.com/NomcciDubs/nomcci-wallet/wallet"
)

func main() {
	_ = godotenv.Load()

	port := flag.String("port", "8080", "HTTP server port")
	dbPath := flag.String("db", "wallet.db", "SQLite database path")
	sweep := flag.Duration("sweep", time.Hour, "archive sweep interval")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Store: postgres when configured, sqlite otherwise.
	var (
		store  wallet.TxStore
		closer interface{ Close() error }
	)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		pg, err := postgres.New(dsn)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		store, closer = pg, pg
		logger.Info("using postgres store")
	} else {
		sq, err := sqlite.New(*dbPath)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		store, closer = sq, sq
		logger.Info("using sqlite store", zap.String("path", *dbPath))
	}
	defer closer.Close()

	opts := []wallet.Option{
		wallet.WithLogger(logger),
		wallet.WithMetrics(walletprom.NewCollector(promclient.DefaultRegisterer)),
	}

	if dirURL := os.Getenv("DIRECTORY_URL"); dirURL != "" {
		opts = append(opts, wallet.WithDirectory(directory.NewClient(dirURL, directory.WithLogger(logger))))
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		pub := eventskafka.NewPublisher(strings.Split(brokers, ","), os.Getenv("KAFKA_TOPIC"))
		defer pub.Close()
		opts = append(opts, wallet.WithPublisher(pub))
	}

	svc := wallet.NewService(store, opts...)

	sweeper := api.NewArchiveSweeper(svc, logger)
	sweeper.CheckInterval = *sweep
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.NewHandler(svc, logger)
	srv := &http.Server{
		Addr:    ":" + *port,
		Handler: api.NewRouter(handler, promhttp.Handler()),
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
