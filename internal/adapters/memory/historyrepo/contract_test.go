package historyrepo

import (
	"testing"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/contracttest"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
)

func TestContract_MemoryHistoryRepo(t *testing.T) {
	contracttest.RunHistoryRepo(t, func(t *testing.T) (historyrepoport.Repository, contracttest.CleanupFunc) {
		t.Helper()
		return NewRepo(), nil
	})
}
