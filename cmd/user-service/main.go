// The user-service binary runs the User Directory leaf service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/booklend/library-services-go/config"
	"github.com/booklend/library-services-go/observability"
	"github.com/booklend/library-services-go/oteladapters"
	"github.com/booklend/library-services-go/userservice/httpapi"
	"github.com/booklend/library-services-go/userservice/postgres"
)

const (
	serviceName    = "user-service"
	serviceVersion = "1.0.0"

	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := config.NewObservabilityProviders(ctx, serviceName, serviceVersion)
	if err != nil {
		log.Fatalf("observability setup failed: %v", err)
	}
	defer func() {
		if shutdownErr := providers.Shutdown(); shutdownErr != nil {
			log.Printf("observability shutdown failed: %v", shutdownErr)
		}
	}()

	logger := oteladapters.NewSlogBridgeLogger(serviceName)

	poolConfig, err := config.PostgresPGXPoolConfig(config.PostgresDSN())
	if err != nil {
		log.Fatalf("postgres config failed: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("postgres pool setup failed: %v", err)
	}
	defer pool.Close()

	borrowerStore, err := postgres.NewBorrowerStoreFromPGXPool(pool, postgres.WithContextualLogger(logger))
	if err != nil {
		log.Fatalf("borrower store setup failed: %v", err)
	}

	api := httpapi.NewAPI(borrowerStore, httpapi.WithContextualLogger(logger))

	runServer(ctx, logger, config.UserServiceListenAddr(), api.Router())
}

func runServer(ctx context.Context, logger observability.ContextualLogger, addr string, handler http.Handler) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.InfoContext(ctx, "listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "server shutdown failed", "error", err)
		}
	}
}
