package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/bodycount/backend/internal/archive"
	"github.com/bodycount/backend/internal/auth"
	"github.com/bodycount/backend/internal/billing"
	"github.com/bodycount/backend/internal/config"
	"github.com/bodycount/backend/internal/insight"
	"github.com/bodycount/backend/internal/journal"
	"github.com/bodycount/backend/internal/ledger"
	"github.com/bodycount/backend/internal/llm"
	"github.com/bodycount/backend/internal/migrations"
	"github.com/bodycount/backend/internal/router"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := runMigrations(cfg.Database.URL); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema migrations applied")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Ledger
	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, cfg.Ledger.DailyBonus)
	ledgerHandler := ledger.NewHandler(ledgerSvc, logger)

	// Billing: insert func is set after River client is created (breaks init cycle)
	var insertMu sync.Mutex
	var insertFn billing.InsertCreditJobTxFunc
	insertCreditJob := func(ctx context.Context, tx pgx.Tx, args billing.CreditPurchaseJobArgs) error {
		insertMu.Lock()
		fn := insertFn
		insertMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	billingRepo := billing.NewRepository(pool)
	billingSvc := billing.NewService(billingRepo, insertCreditJob, logger)
	billingHandler := billing.NewHandler(billingSvc, cfg.Billing.WebhookSecret, logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, billing.NewCreditPurchaseWorker(billingRepo, ledgerRepo))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	insertMu.Lock()
	insertFn = func(ctx context.Context, tx pgx.Tx, args billing.CreditPurchaseJobArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	insertMu.Unlock()

	// Auth
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.Auth, cfg.Ledger.StartingCredits)
	authHandler := auth.NewHandler(authSvc, ledgerSvc, authRepo, logger)

	// Journal
	journalRepo := journal.NewRepository(pool)
	journalHandler := journal.NewHandler(journalRepo, logger)

	// Archive
	archiveRepo := archive.NewRepository(pool)
	archiveSvc := archive.NewService(archiveRepo)
	archiveHandler := archive.NewHandler(archiveSvc, logger)

	// Insight generation
	llmClient := llm.NewOpenAIClient(cfg.OpenAI)
	insightSvc := insight.NewService(ledgerSvc, llmClient, archiveSvc, cfg.Ledger.InsightPrice, logger)
	insightHandler := insight.NewHandler(insightSvc, logger)

	apiRouter := router.New(router.Deps{
		Auth:           authHandler,
		Ledger:         ledgerHandler,
		Journal:        journalHandler,
		Insight:        insightHandler,
		Archive:        archiveHandler,
		Billing:        billingHandler,
		TokenValidator: authSvc,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Signature"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (processes purchase crediting jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Server.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}

// runMigrations applies the embedded goose migrations over database/sql;
// the pgx pool itself never sees goose.
func runMigrations(dbURL string) error {
	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
