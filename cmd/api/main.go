package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/agentwiki/backend/internal/config"
	"github.com/agentwiki/backend/internal/events"
	"github.com/agentwiki/backend/internal/handlers"
	"github.com/agentwiki/backend/internal/middleware"
	"github.com/agentwiki/backend/internal/repository"
	"github.com/agentwiki/backend/internal/router"
	"github.com/agentwiki/backend/internal/services"
	"github.com/agentwiki/backend/internal/solana"
	"github.com/agentwiki/backend/internal/treasury"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

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

	// Repositories
	agentRepo := repository.NewAgentRepo(pool)
	articleRepo := repository.NewArticleRepo(pool)
	depositRepo := repository.NewDepositRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	editRepo := repository.NewEditProposalRepo(pool)
	governanceRepo := repository.NewGovernanceRepo(pool)
	slashRepo := repository.NewSlashRepo(pool)
	contributionRepo := repository.NewContributionRepo(pool)
	discussionRepo := repository.NewDiscussionRepo(pool)
	treasuryRepo := repository.NewTreasuryRepo(pool)

	// Services
	hub := events.NewHub()
	chain := solana.NewClient(cfg.SolanaRPCURL)
	verifier := services.NewVerifier(chain)
	contribSvc := services.NewContributionService(contributionRepo, agentRepo)
	depositSvc := services.NewDepositService(pool, depositRepo, agentRepo, verifier, hub, cfg.TreasuryWallet, logger)
	paymentSvc := services.NewPaymentService(paymentRepo, agentRepo, verifier, hub, logger)
	votingSvc := services.NewVotingService(pool, editRepo, governanceRepo, slashRepo, articleRepo, agentRepo, contribSvc, hub, logger)

	// Treasury snapshot worker
	workers := river.NewWorkers()
	river.AddWorker(workers, treasury.NewSnapshotWorker(verifier, treasuryRepo, cfg.TreasuryWallet, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(10*time.Minute),
				func() (river.JobArgs, *river.InsertOpts) {
					return treasury.SnapshotJobArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Handlers
	h := router.Handlers{
		Agents: &handlers.AgentHandler{
			Agents:   agentRepo,
			Deposits: depositRepo,
			Recorder: depositSvc,
			Logger:   logger,
		},
		Articles: &handlers.ArticleHandler{
			Pool:     pool,
			Articles: articleRepo,
			Contrib:  contribSvc,
			Events:   hub,
			Logger:   logger,
		},
		Proposals: &handlers.ProposalHandler{
			Pool:      pool,
			Proposals: editRepo,
			Articles:  articleRepo,
			Voting:    votingSvc,
			Contrib:   contribSvc,
			Events:    hub,
			Logger:    logger,
		},
		Governance: &handlers.GovernanceHandler{
			Proposals:       governanceRepo,
			Voting:          votingSvc,
			Balance:         verifier,
			Snapshots:       treasuryRepo,
			Deposits:        depositRepo,
			TreasuryAddress: cfg.TreasuryWallet,
			Events:          hub,
			Logger:          logger,
		},
		Slash: &handlers.SlashHandler{
			Proposals: slashRepo,
			Agents:    agentRepo,
			Articles:  articleRepo,
			Voting:    votingSvc,
			Events:    hub,
			Logger:    logger,
		},
		Payments: &handlers.PaymentHandler{
			Payments: paymentRepo,
			Recorder: paymentSvc,
			Logger:   logger,
		},
		Discussions: &handlers.DiscussionHandler{
			Pool:        pool,
			Discussions: discussionRepo,
			Contrib:     contribSvc,
			Events:      hub,
			Logger:      logger,
		},
		Events: &handlers.EventsHandler{
			Hub:    hub,
			Logger: logger,
		},
	}

	auth := middleware.APIKeyAuth(agentRepo)
	gate := middleware.DepositGate(cfg.MinDepositSOL)
	apiRouter := router.New(h, auth, gate)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (runs the periodic treasury snapshot)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
