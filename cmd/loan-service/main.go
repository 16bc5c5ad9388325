// The loan-service binary runs the loan orchestrator: issue, return, and
// extend workflows plus the cross-service read views.
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
	"go.opentelemetry.io/otel"

	"github.com/booklend/library-services-go/config"
	"github.com/booklend/library-services-go/loanservice/features/command/extendloan"
	"github.com/booklend/library-services-go/loanservice/features/command/issueloan"
	"github.com/booklend/library-services-go/loanservice/features/command/returnloan"
	"github.com/booklend/library-services-go/loanservice/features/query/loandetails"
	"github.com/booklend/library-services-go/loanservice/features/query/loanhistory"
	"github.com/booklend/library-services-go/loanservice/features/query/loanstats"
	"github.com/booklend/library-services-go/loanservice/features/query/overdueloans"
	"github.com/booklend/library-services-go/loanservice/httpapi"
	"github.com/booklend/library-services-go/loanservice/postgres"
	"github.com/booklend/library-services-go/loanservice/shell"
	"github.com/booklend/library-services-go/loanservice/shell/remote"
	"github.com/booklend/library-services-go/oteladapters"
)

const (
	serviceName    = "loan-service"
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
	metrics := oteladapters.NewMetricsCollector(otel.Meter(serviceName))
	tracing := oteladapters.NewTracingCollector(otel.Tracer(serviceName))

	poolConfig, err := config.PostgresPGXPoolConfig(config.PostgresDSN())
	if err != nil {
		log.Fatalf("postgres config failed: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatalf("postgres pool setup failed: %v", err)
	}
	defer pool.Close()

	loanStore, err := postgres.NewLoanStoreFromPGXPool(pool, postgres.WithContextualLogger(logger))
	if err != nil {
		log.Fatalf("loan store setup failed: %v", err)
	}

	retryOptions := []shell.RetryOption{
		shell.WithRetryMetrics(metrics, "remote_call"),
	}

	directory := remote.NewBorrowerDirectory(
		config.UserServiceBaseURL(),
		remote.WithRetryOptions(retryOptions...),
		remote.WithTracingCollector(tracing),
		remote.WithMetricsCollector(metrics),
	)

	catalog := remote.NewCatalog(
		config.BookServiceBaseURL(),
		remote.WithRetryOptions(retryOptions...),
		remote.WithTracingCollector(tracing),
		remote.WithMetricsCollector(metrics),
	)

	api := httpapi.NewAPI(
		httpapi.Handlers{
			IssueLoan:    issueloan.NewCommandHandler(directory, catalog, loanStore, issueloan.WithContextualLogger(logger)),
			ReturnLoan:   returnloan.NewCommandHandler(catalog, loanStore, returnloan.WithContextualLogger(logger)),
			ExtendLoan:   extendloan.NewCommandHandler(loanStore),
			LoanDetails:  loandetails.NewQueryHandler(loanStore, directory, catalog),
			LoanHistory:  loanhistory.NewQueryHandler(loanStore, catalog),
			OverdueLoans: overdueloans.NewQueryHandler(loanStore, directory, catalog),
			LoanStats:    loanstats.NewQueryHandler(loanStore),
		},
		httpapi.WithContextualLogger(logger),
	)

	runServer(ctx, logger, config.LoanServiceListenAddr(), api.Router())
}

func runServer(ctx context.Context, logger shell.ContextualLogger, addr string, handler http.Handler) {
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
