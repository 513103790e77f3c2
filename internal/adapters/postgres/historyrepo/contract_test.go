package historyrepo

import (
	"testing"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/contracttest"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/postgres/testutil"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
)

func TestContract_PostgresHistoryRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunHistoryRepo(t, func(t *testing.T) (historyrepoport.Repository, contracttest.CleanupFunc) {
		t.Helper()
		testutil.TruncateHistory(t, pool)
		return NewRepo(pool), nil
	})
}
