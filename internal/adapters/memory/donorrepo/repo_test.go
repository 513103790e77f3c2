package donorrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
)

func seedRepo() *Repo {
	donors := []donorrepoport.Donor{
		{ConstituentID: "C-2", FirstName: "Jane", LastName: "Doe", Street: "123 Main Street", City: "Appleton", State: "WI", Zip: "54911-1247", TotalGiving: 1200, GiftCount: 3},
		{ConstituentID: "C-1", FirstName: "Alan", LastName: "Doe", Street: "9 Oak Drive", City: "Appleton", State: "WI", Zip: "54911", TotalGiving: 50, GiftCount: 1},
		{ConstituentID: "C-3", FirstName: "Jane", LastName: "Smith", Street: "77 Elm Ave", City: "Neenah", State: "WI", Zip: "54956", TotalGiving: 10, GiftCount: 1},
	}
	txs := map[domain.ConstituentID][]donorrepoport.Transaction{
		"C-2": {
			{GiftDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), GiftAmount: 200, GiftType: "Cash"},
			{GiftDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), GiftAmount: 1000, GiftType: "Pledge", PledgeBalance: 250},
		},
	}
	return NewRepo(donors, txs)
}

func TestSearchDonors(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo()

	t.Run("last name and zip", func(t *testing.T) {
		got, err := repo.SearchDonors(ctx, domain.QueryAttributes{LastName: "doe", Zip: "54911"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Deterministic ordering: last, first, id.
		assert.Equal(t, domain.ConstituentID("C-1"), got[0].ConstituentID)
		assert.Equal(t, domain.ConstituentID("C-2"), got[1].ConstituentID)
	})

	t.Run("zip plus four matches five digit query", func(t *testing.T) {
		got, err := repo.SearchDonors(ctx, domain.QueryAttributes{FirstName: "Jane", LastName: "Doe", Zip: "54911"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.ConstituentID("C-2"), got[0].ConstituentID)
	})

	t.Run("street suffix abbreviation matches", func(t *testing.T) {
		got, err := repo.SearchDonors(ctx, domain.QueryAttributes{LastName: "Doe", Street: "123 MAIN ST"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.ConstituentID("C-2"), got[0].ConstituentID)
	})

	t.Run("no criteria returns nothing", func(t *testing.T) {
		got, err := repo.SearchDonors(ctx, domain.QueryAttributes{FirstName: "Jane"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo()

	txs, err := repo.ListTransactions(ctx, "C-2")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].GiftDate.After(txs[1].GiftDate), "newest first")

	_, err = repo.ListTransactions(ctx, "C-404")
	assert.ErrorIs(t, err, donorrepoport.ErrNotFound)
}
