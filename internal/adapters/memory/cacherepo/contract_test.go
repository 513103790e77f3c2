package cacherepo

import (
	"testing"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/contracttest"
	platformclock "github.com/Damoxy/Experian-ProspectIQ-Search/internal/platform/clock"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
)

func TestContract_MemoryCacheRepo(t *testing.T) {
	contracttest.RunCacheRepo(t, func(t *testing.T) (cacherepoport.Repository, contracttest.AdvanceFunc, contracttest.CleanupFunc) {
		t.Helper()
		clk := platformclock.NewManualClock(time.Unix(1_700_000_000, 0))
		return NewRepo(clk), clk.Advance, nil
	})
}
