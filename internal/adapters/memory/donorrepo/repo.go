package donorrepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
)

// Repo is an in-memory implementation of donorrepo.Repository, used for tests
// and local development. Seed it with fixture donors at construction.
type Repo struct {
	mu           sync.RWMutex
	donors       []donorrepoport.Donor
	transactions map[domain.ConstituentID][]donorrepoport.Transaction
}

func NewRepo(donors []donorrepoport.Donor, transactions map[domain.ConstituentID][]donorrepoport.Transaction) *Repo {
	if transactions == nil {
		transactions = make(map[domain.ConstituentID][]donorrepoport.Transaction)
	}
	return &Repo{donors: donors, transactions: transactions}
}

func (r *Repo) SearchDonors(ctx context.Context, attrs domain.QueryAttributes) ([]donorrepoport.Donor, error) {
	_ = ctx
	n := attrs.Normalized()
	if n.LastName == "" && n.Zip == "" {
		return nil, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]donorrepoport.Donor, 0)
	for _, d := range r.donors {
		if n.LastName != "" && !strings.EqualFold(d.LastName, n.LastName) {
			continue
		}
		if n.Zip != "" && domain.NormalizeZip(d.Zip) != domain.NormalizeZip(n.Zip) {
			continue
		}
		if n.FirstName != "" && !strings.EqualFold(d.FirstName, n.FirstName) {
			continue
		}
		if n.Street != "" && domain.NormalizeStreet(d.Street) != domain.NormalizeStreet(n.Street) {
			continue
		}
		if n.City != "" && !strings.EqualFold(d.City, n.City) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !strings.EqualFold(a.LastName, b.LastName) {
			return strings.ToLower(a.LastName) < strings.ToLower(b.LastName)
		}
		if !strings.EqualFold(a.FirstName, b.FirstName) {
			return strings.ToLower(a.FirstName) < strings.ToLower(b.FirstName)
		}
		return a.ConstituentID < b.ConstituentID
	})
	return out, nil
}

func (r *Repo) ListTransactions(ctx context.Context, id domain.ConstituentID) ([]donorrepoport.Transaction, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	txs, ok := r.transactions[id]
	if !ok {
		for _, d := range r.donors {
			if d.ConstituentID == id {
				return []donorrepoport.Transaction{}, nil
			}
		}
		return nil, donorrepoport.ErrNotFound
	}
	out := make([]donorrepoport.Transaction, len(txs))
	copy(out, txs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].GiftDate.After(out[j].GiftDate)
	})
	return out, nil
}
