package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/experian"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/httpapi"
	memcacherepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/memory/cacherepo"
	memdonorrepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/memory/donorrepo"
	memhistoryrepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/memory/historyrepo"
	postgres "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres"
	pgcacherepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres/cacherepo"
	pgdonorrepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres/donorrepo"
	pghistoryrepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres/historyrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/app/search"
	platformclock "github.com/Damoxy/Experian-ProspectIQ-Search/internal/platform/clock"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/platform/config"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/reaper"
)

func main() {
	// Local workflows keep credentials in .env; absence is fine.
	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	clk := platformclock.NewSystemClock()

	var (
		cacheRepo   cacherepoport.Repository
		donorRepo   donorrepoport.Repository
		historyRepo historyrepoport.Repository
		cleanup     func()
	)

	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		cleanup = pool.Close

		cacheRepo = pgcacherepo.NewRepo(pool, clk)
		donorRepo = pgdonorrepo.NewRepo(pool)
		historyRepo = pghistoryrepo.NewRepo(pool)
	default:
		cacheRepo = memcacherepo.NewRepo(clk)
		donorRepo = memdonorrepo.NewRepo(nil, nil)
		historyRepo = memhistoryrepo.NewRepo()
	}

	if cleanup != nil {
		defer cleanup()
	}

	svc := search.NewService(donorRepo, historyRepo, cacheRepo, search.Sources{
		Records: experian.NewRecordsClient(cfg.Records),
		Phone:   experian.NewPhoneClient(cfg.Phone),
		Email:   experian.NewEmailClient(cfg.Email),
	}, clk, log)
	svc.SourceTimeout = cfg.SourceTimeout

	sweeper := reaper.New(cacheRepo, clk, log)

	var authMW func(http.Handler) http.Handler
	switch cfg.AuthMode {
	case "dev":
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	default:
		authMW = httpapi.NewTokenAuthMiddleware(cfg.APIToken)
	}

	api := httpapi.NewServer(svc, cacheRepo, sweeper, log)
	handler := httpapi.NewRouter(api, authMW)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweeper.Run(ctx)

	go func() {
		log.Info("api listening", "port", cfg.Port, "storage", cfg.StorageBackend, "auth_mode", cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
