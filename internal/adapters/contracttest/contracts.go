package contracttest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
)

type CleanupFunc = func()

// AdvanceFunc moves the repository's notion of time forward, so TTL behavior
// is testable without waiting 90 days.
type AdvanceFunc = func(d time.Duration)

type CacheRepoFactory func(t *testing.T) (cacherepoport.Repository, AdvanceFunc, CleanupFunc)
type HistoryRepoFactory func(t *testing.T) (historyrepoport.Repository, CleanupFunc)

// RunCacheRepo exercises the response cache contract against any implementation.
func RunCacheRepo(t *testing.T, newRepo CacheRepoFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("save then find is a hit with counter bump", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		attrs := domain.QueryAttributes{FirstName: "Jane", LastName: "Doe", Zip: "10001"}
		payloads := cacherepoport.PayloadSet{Search: json.RawMessage(`{"records":1}`)}
		if err := repo.Save(ctx, attrs, payloads, "experian", false, nil); err != nil {
			t.Fatalf("Save: %v", err)
		}

		var last time.Time
		for i := 0; i < 3; i++ {
			e, ok, err := repo.Find(ctx, attrs)
			if err != nil {
				t.Fatalf("Find %d: %v", i, err)
			}
			if !ok {
				t.Fatalf("Find %d: expected hit", i)
			}
			if want := int64(i + 2); e.AccessCount != want {
				t.Fatalf("Find %d: access count = %d, want %d", i, e.AccessCount, want)
			}
			if e.LastAccessedAt.Before(last) {
				t.Fatalf("Find %d: last accessed went backwards: %v < %v", i, e.LastAccessedAt, last)
			}
			last = e.LastAccessedAt
			if string(e.Payloads.Search) != `{"records":1}` {
				t.Fatalf("Find %d: unexpected payload %s", i, e.Payloads.Search)
			}
		}
	})

	t.Run("find normalizes case and whitespace", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		saved := domain.QueryAttributes{FirstName: " Jane ", LastName: "Doe", Zip: "10001"}
		queried := domain.QueryAttributes{FirstName: "jane", LastName: "DOE", Zip: "10001"}
		if err := repo.Save(ctx, saved, cacherepoport.PayloadSet{Search: json.RawMessage(`{}`)}, "experian", false, nil); err != nil {
			t.Fatalf("Save: %v", err)
		}
		_, ok, err := repo.Find(ctx, queried)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if !ok {
			t.Fatalf("expected hit for normalized-equal attributes")
		}
	})

	t.Run("duplicate save reports already exists and keeps one row", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		attrs := domain.QueryAttributes{LastName: "Smith", Zip: "54911"}
		set := cacherepoport.PayloadSet{Search: json.RawMessage(`{"v":1}`)}
		if err := repo.Save(ctx, attrs, set, "experian", false, nil); err != nil {
			t.Fatalf("first Save: %v", err)
		}
		err := repo.Save(ctx, attrs, cacherepoport.PayloadSet{Search: json.RawMessage(`{"v":2}`)}, "experian", false, nil)
		if !errors.Is(err, cacherepoport.ErrAlreadyExists) {
			t.Fatalf("second Save: got %v, want ErrAlreadyExists", err)
		}

		// The first writer's payload survives.
		e, ok, err := repo.Find(ctx, attrs)
		if err != nil || !ok {
			t.Fatalf("Find: ok=%v err=%v", ok, err)
		}
		if string(e.Payloads.Search) != `{"v":1}` {
			t.Fatalf("payload overwritten: %s", e.Payloads.Search)
		}

		stats, err := repo.Statistics(ctx)
		if err != nil {
			t.Fatalf("Statistics: %v", err)
		}
		if stats.Total != 1 {
			t.Fatalf("total = %d, want 1", stats.Total)
		}
	})

	t.Run("conflicting save fills absent slots only", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		attrs := domain.QueryAttributes{LastName: "Lopez", Zip: "10001"}
		if err := repo.Save(ctx, attrs, cacherepoport.PayloadSet{Search: json.RawMessage(`{"s":1}`)}, "experian", false, nil); err != nil {
			t.Fatalf("Save search slot: %v", err)
		}
		err := repo.Save(ctx, attrs, cacherepoport.PayloadSet{
			Search:          json.RawMessage(`{"s":2}`),
			PhoneValidation: json.RawMessage(`{"phones":[]}`),
		}, "aperture-phone", false, nil)
		if !errors.Is(err, cacherepoport.ErrAlreadyExists) {
			t.Fatalf("slot-filling Save: got %v, want ErrAlreadyExists", err)
		}

		e, ok, err := repo.Find(ctx, attrs)
		if err != nil || !ok {
			t.Fatalf("Find: ok=%v err=%v", ok, err)
		}
		if string(e.Payloads.Search) != `{"s":1}` {
			t.Fatalf("existing slot overwritten: %s", e.Payloads.Search)
		}
		if string(e.Payloads.PhoneValidation) != `{"phones":[]}` {
			t.Fatalf("absent slot not filled: %s", e.Payloads.PhoneValidation)
		}
	})

	t.Run("concurrent saves keep at most one row", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		attrs := domain.QueryAttributes{FirstName: "Race", LastName: "Condition", Zip: "00001"}
		const n = 16
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = repo.Save(ctx, attrs, cacherepoport.PayloadSet{Search: json.RawMessage(fmt.Sprintf(`{"writer":%d}`, i))}, "experian", false, nil)
			}(i)
		}
		wg.Wait()

		var stored, dup int
		for i, err := range errs {
			switch {
			case err == nil:
				stored++
			case errors.Is(err, cacherepoport.ErrAlreadyExists):
				dup++
			default:
				t.Fatalf("writer %d: unexpected error %v", i, err)
			}
		}
		if stored != 1 || dup != n-1 {
			t.Fatalf("stored=%d dup=%d, want 1 and %d", stored, dup, n-1)
		}

		if _, ok, err := repo.Find(ctx, attrs); err != nil || !ok {
			t.Fatalf("Find after race: ok=%v err=%v", ok, err)
		}
	})

	t.Run("expired row is a miss before cleanup and removed by cleanup", func(t *testing.T) {
		repo, advance, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		live := domain.QueryAttributes{LastName: "Fresh", Zip: "11111"}
		stale := domain.QueryAttributes{LastName: "Stale", Zip: "22222"}
		if err := repo.Save(ctx, stale, cacherepoport.PayloadSet{Search: json.RawMessage(`{}`)}, "experian", false, nil); err != nil {
			t.Fatalf("Save stale: %v", err)
		}

		advance(cacherepoport.TTL + time.Hour)

		if err := repo.Save(ctx, live, cacherepoport.PayloadSet{Search: json.RawMessage(`{}`)}, "experian", false, nil); err != nil {
			t.Fatalf("Save live: %v", err)
		}

		if _, ok, err := repo.Find(ctx, stale); err != nil {
			t.Fatalf("Find stale: %v", err)
		} else if ok {
			t.Fatalf("expired row must be a miss even before reaping")
		}

		stats, err := repo.Statistics(ctx)
		if err != nil {
			t.Fatalf("Statistics: %v", err)
		}
		if stats.Total != 2 || stats.Active != 1 || stats.Expired != 1 {
			t.Fatalf("stats before cleanup = %+v", stats)
		}

		count, err := repo.CleanupExpired(ctx, true)
		if err != nil {
			t.Fatalf("CleanupExpired dry run: %v", err)
		}
		if count != 1 {
			t.Fatalf("dry run count = %d, want 1", count)
		}
		if stats, err = repo.Statistics(ctx); err != nil || stats.Total != 2 {
			t.Fatalf("dry run must not delete: stats=%+v err=%v", stats, err)
		}

		count, err = repo.CleanupExpired(ctx, false)
		if err != nil {
			t.Fatalf("CleanupExpired: %v", err)
		}
		if count != 1 {
			t.Fatalf("cleanup count = %d, want 1", count)
		}
		stats, err = repo.Statistics(ctx)
		if err != nil {
			t.Fatalf("Statistics after cleanup: %v", err)
		}
		if stats.Total != 1 || stats.Expired != 0 {
			t.Fatalf("stats after cleanup = %+v", stats)
		}

		if _, ok, err := repo.Find(ctx, live); err != nil || !ok {
			t.Fatalf("live row must survive cleanup: ok=%v err=%v", ok, err)
		}
	})

	t.Run("partial entries round-trip the error note", func(t *testing.T) {
		repo, _, cleanup := newRepo(t)
		if cleanup != nil {
			t.Cleanup(cleanup)
		}

		attrs := domain.QueryAttributes{LastName: "Partial", Zip: "33333"}
		note := "upstream returned 502 for address block"
		if err := repo.Save(ctx, attrs, cacherepoport.PayloadSet{Search: json.RawMessage(`{"partial":true}`)}, "experian", true, &note); err != nil {
			t.Fatalf("Save: %v", err)
		}
		e, ok, err := repo.Find(ctx, attrs)
		if err != nil || !ok {
			t.Fatalf("Find: ok=%v err=%v", ok, err)
		}
		if !e.Partial || e.ErrorNote == nil || *e.ErrorNote != note {
			t.Fatalf("partial metadata lost: %+v", e)
		}
	})
}

// RunHistoryRepo exercises the search history contract.
func RunHistoryRepo(t *testing.T, newRepo HistoryRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	alice := domain.SubjectID("sub-alice")
	bob := domain.SubjectID("sub-bob")
	base := time.Unix(1_700_000_000, 0).UTC()

	// Over-fill alice's history; only the newest KeepCount survive.
	total := historyrepoport.KeepCount + 5
	for i := 0; i < total; i++ {
		attrs := domain.QueryAttributes{LastName: fmt.Sprintf("query-%03d", i), Zip: "10001"}
		if err := repo.Add(ctx, alice, attrs, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	if err := repo.Add(ctx, bob, domain.QueryAttributes{LastName: "bob-only"}, base); err != nil {
		t.Fatalf("Add bob: %v", err)
	}

	recs, err := repo.ListRecent(ctx, alice, historyrepoport.KeepCount+10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(recs) != historyrepoport.KeepCount {
		t.Fatalf("history not trimmed: got %d, want %d", len(recs), historyrepoport.KeepCount)
	}
	if recs[0].Query.LastName != fmt.Sprintf("query-%03d", total-1) {
		t.Fatalf("newest first expected, got %q", recs[0].Query.LastName)
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].SearchedAt.After(recs[i-1].SearchedAt) {
			t.Fatalf("ordering violated at %d", i)
		}
	}

	// Limit applies.
	few, err := repo.ListRecent(ctx, alice, 5)
	if err != nil {
		t.Fatalf("ListRecent limit: %v", err)
	}
	if len(few) != 5 {
		t.Fatalf("limit ignored: got %d", len(few))
	}

	// Per-subject isolation.
	bobRecs, err := repo.ListRecent(ctx, bob, 10)
	if err != nil {
		t.Fatalf("ListRecent bob: %v", err)
	}
	if len(bobRecs) != 1 || bobRecs[0].Query.LastName != "bob-only" {
		t.Fatalf("unexpected bob history: %#v", bobRecs)
	}
}
