// cachectl is an operator CLI for the response cache: inspect statistics and
// trigger an expiry sweep without going through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	postgres "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres"
	pgcacherepo "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres/cacherepo"
	platformclock "github.com/Damoxy/Experian-ProspectIQ-Search/internal/platform/clock"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/reaper"
)

func main() {
	stats := flag.Bool("stats", false, "print cache statistics")
	cleanup := flag.Bool("cleanup", false, "delete expired cache entries")
	dryRun := flag.Bool("dry-run", false, "with -cleanup, count instead of deleting")
	flag.Parse()

	if !*stats && !*cleanup {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres connection failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	clk := platformclock.NewSystemClock()
	store := pgcacherepo.NewRepo(pool, clk)

	if *stats {
		s, err := store.Statistics(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stats failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("total entries:   %d\n", s.Total)
		fmt.Printf("active entries:  %d\n", s.Active)
		fmt.Printf("expired entries: %d\n", s.Expired)
		fmt.Printf("total hits:      %d\n", s.TotalHits)
		if s.Oldest != nil {
			fmt.Printf("oldest entry:    %s\n", s.Oldest.Format(time.RFC3339))
		}
		if s.Newest != nil {
			fmt.Printf("newest entry:    %s\n", s.Newest.Format(time.RFC3339))
		}
	}

	if *cleanup {
		log := slog.New(slog.NewTextHandler(os.Stderr, nil))
		removed, err := reaper.New(store, clk, log).RunOnce(ctx, *dryRun)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cleanup failed: %v\n", err)
			os.Exit(1)
		}
		verb := "removed"
		if *dryRun {
			verb = "would remove"
		}
		fmt.Printf("%s %d expired entries\n", verb, removed)
	}
}
