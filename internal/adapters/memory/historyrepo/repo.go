package historyrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
)

// Repo is an in-memory implementation of historyrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.Mutex
	m  map[domain.SubjectID][]historyrepoport.SearchRecord
}

func NewRepo() *Repo {
	return &Repo{m: make(map[domain.SubjectID][]historyrepoport.SearchRecord)}
}

func (r *Repo) Add(ctx context.Context, subject domain.SubjectID, attrs domain.QueryAttributes, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := append(r.m[subject], historyrepoport.SearchRecord{
		ID:         uuid.NewString(),
		Subject:    subject,
		Query:      attrs,
		SearchedAt: at.UTC(),
	})
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].SearchedAt.After(recs[j].SearchedAt)
	})
	if len(recs) > historyrepoport.KeepCount {
		recs = recs[:historyrepoport.KeepCount]
	}
	r.m[subject] = recs
	return nil
}

func (r *Repo) ListRecent(ctx context.Context, subject domain.SubjectID, limit int) ([]historyrepoport.SearchRecord, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	recs := r.m[subject]
	if limit <= 0 || limit > len(recs) {
		limit = len(recs)
	}
	out := make([]historyrepoport.SearchRecord, limit)
	copy(out, recs[:limit])
	return out, nil
}
