package cacherepo

import (
	"context"
	"sync"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	clockport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/clock"
)

// Repo is an in-memory implementation of cacherepo.Repository.
// It is safe for concurrent use and mirrors the Postgres adapter's conflict
// semantics so the contract suite can run against both.
type Repo struct {
	clk clockport.Clock

	mu sync.Mutex
	m  map[domain.Fingerprint]*cacherepoport.Entry
}

func NewRepo(clk clockport.Clock) *Repo {
	return &Repo{
		clk: clk,
		m:   make(map[domain.Fingerprint]*cacherepoport.Entry),
	}
}

func (r *Repo) Find(ctx context.Context, attrs domain.QueryAttributes) (cacherepoport.Entry, bool, error) {
	_ = ctx
	fp := domain.ComputeFingerprint(attrs)
	now := r.clk.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.m[fp]
	if !ok {
		return cacherepoport.Entry{}, false, nil
	}
	if !e.ExpiresAt.After(now) {
		// Expired rows stay until the reaper deletes them, but they are a miss.
		return cacherepoport.Entry{}, false, nil
	}

	e.AccessCount++
	e.LastAccessedAt = now
	return cloneEntry(e), true, nil
}

func (r *Repo) Save(ctx context.Context, attrs domain.QueryAttributes, payloads cacherepoport.PayloadSet, source string, partial bool, errorNote *string) error {
	_ = ctx
	fp := domain.ComputeFingerprint(attrs)
	now := r.clk.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.m[fp]; ok {
		if existing.ExpiresAt.After(now) {
			fillAbsentSlots(&existing.Payloads, payloads)
		}
		return cacherepoport.ErrAlreadyExists
	}

	note := cloneStringPtr(errorNote)
	r.m[fp] = &cacherepoport.Entry{
		Fingerprint:    fp,
		Query:          attrs,
		Payloads:       clonePayloads(payloads),
		Source:         source,
		Partial:        partial,
		ErrorNote:      note,
		CreatedAt:      now,
		ExpiresAt:      now.Add(cacherepoport.TTL),
		LastAccessedAt: now,
		AccessCount:    1,
	}
	return nil
}

func (r *Repo) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	_ = ctx
	now := r.clk.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for fp, e := range r.m {
		if e.ExpiresAt.After(now) {
			continue
		}
		count++
		if !dryRun {
			delete(r.m, fp)
		}
	}
	return count, nil
}

func (r *Repo) Statistics(ctx context.Context) (cacherepoport.Stats, error) {
	_ = ctx
	now := r.clk.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var s cacherepoport.Stats
	var oldest, newest time.Time
	for _, e := range r.m {
		s.Total++
		s.TotalHits += e.AccessCount
		if e.ExpiresAt.After(now) {
			s.Active++
		} else {
			s.Expired++
		}
		if oldest.IsZero() || e.CreatedAt.Before(oldest) {
			oldest = e.CreatedAt
		}
		if newest.IsZero() || e.CreatedAt.After(newest) {
			newest = e.CreatedAt
		}
	}
	if !oldest.IsZero() {
		o := oldest
		s.Oldest = &o
	}
	if !newest.IsZero() {
		n := newest
		s.Newest = &n
	}
	return s, nil
}

func fillAbsentSlots(dst *cacherepoport.PayloadSet, src cacherepoport.PayloadSet) {
	if dst.Search == nil && src.Search != nil {
		dst.Search = cloneRaw(src.Search)
	}
	if dst.PhoneValidation == nil && src.PhoneValidation != nil {
		dst.PhoneValidation = cloneRaw(src.PhoneValidation)
	}
	if dst.EmailValidation == nil && src.EmailValidation != nil {
		dst.EmailValidation = cloneRaw(src.EmailValidation)
	}
}

func clonePayloads(p cacherepoport.PayloadSet) cacherepoport.PayloadSet {
	return cacherepoport.PayloadSet{
		Search:          cloneRaw(p.Search),
		PhoneValidation: cloneRaw(p.PhoneValidation),
		EmailValidation: cloneRaw(p.EmailValidation),
	}
}

func cloneEntry(e *cacherepoport.Entry) cacherepoport.Entry {
	out := *e
	out.Payloads = clonePayloads(e.Payloads)
	out.ErrorNote = cloneStringPtr(e.ErrorNote)
	return out
}

func cloneRaw(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
