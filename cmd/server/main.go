// Command server runs the boost governance engine HTTP API.
//
// Startup order matters: configuration and logging first, then storage,
// then the background loops (oracle refresher, load monitor, lifecycle
// sweeper), and finally the HTTP listener. Shutdown happens in reverse so
// in-flight requests drain before the loops and the database go away.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/oxum-market/go-boost-backend/docs"
	"github.com/oxum-market/go-boost-backend/internal/config"
	"github.com/oxum-market/go-boost-backend/internal/domain"
	httpapi "github.com/oxum-market/go-boost-backend/internal/http"
	"github.com/oxum-market/go-boost-backend/internal/ledger"
	"github.com/oxum-market/go-boost-backend/internal/load"
	"github.com/oxum-market/go-boost-backend/internal/observability"
	"github.com/oxum-market/go-boost-backend/internal/oracle"
	"github.com/oxum-market/go-boost-backend/internal/repo"
	"github.com/oxum-market/go-boost-backend/internal/services"
	"github.com/oxum-market/go-boost-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// sweeperRepo adapts the repo free functions to the sweeper's contract.
type sweeperRepo struct{}

func (sweeperRepo) ListBoostsInStates(ctx context.Context, db *gorm.DB, states ...domain.BoostState) ([]domain.BoostRecord, error) {
	return repo.ListBoostsInStates(ctx, db, states...)
}

func (sweeperRepo) TransitionBoost(ctx context.Context, db *gorm.DB, id string, from, to domain.BoostState, version int64) error {
	return repo.TransitionBoost(ctx, db, id, from, to, version)
}

// @title       Boost Governance Engine API
// @version     1.0
// @description Validates paid visibility boosts against the global pricing invariant and computes fair, load-aware listing rankings.
// @BasePath    /api/v1
func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.BasePath = cfg.APIBasePath

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing (no-op when disabled).
	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	// Storage.
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Fatal().Err(err).Msg("database tracing setup failed")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	// Price oracle + background cache refresh.
	oracleClient, err := oracle.NewClient(oracle.Options{
		Endpoint:       cfg.Oracle.Endpoint,
		APIKey:         cfg.Oracle.APIKey,
		Tolerance:      domain.Money(cfg.Engine.Tolerance),
		MaxAttempts:    cfg.Oracle.MaxAttempts,
		AttemptTimeout: cfg.Oracle.AttemptTimeout,
		BackoffBase:    cfg.Oracle.BackoffBase,
		StaleAfter:     cfg.Oracle.StaleAfter,
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("oracle client setup failed")
	}
	refresher := oracle.NewRefresher(oracleClient, cfg.Oracle.RefreshEvery, log.Logger)
	if err := refresher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("oracle refresher start failed")
	}

	// System load sampling (feeds ranking dampening).
	monitor := load.NewMonitor(nil, cfg.Engine.LoadSampleEvery, log.Logger)
	if err := monitor.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("load monitor start failed")
	}

	// External ledger gateway.
	ledgerClient, err := ledger.NewHTTPClient(
		&http.Client{Timeout: cfg.Ledger.Timeout},
		cfg.Ledger.Endpoint,
		cfg.Ledger.APIKey,
		log.Logger,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("ledger client setup failed")
	}

	// Boost lifecycle sweeper (active → expiring → expired).
	sweeper := &services.Sweeper{
		DB:       db,
		Repo:     sweeperRepo{},
		Interval: cfg.Engine.SweepInterval,
		Log:      log.Logger,
	}
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("sweeper start failed")
	}

	// HTTP transport.
	r := gin.New()
	httpapi.RegisterRoutes(r, db, oracleClient, ledgerClient, monitor, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	// Reverse order: drain HTTP, stop loops, flush traces, close storage.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("sweeper stop failed")
	}
	if err := monitor.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("load monitor stop failed")
	}
	if err := refresher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("oracle refresher stop failed")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("server stopped")
}
