package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	clockport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/clock"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

const (
	// DefaultSourceTimeout bounds each source task so one hung upstream
	// cannot stall the whole aggregation.
	DefaultSourceTimeout = 30 * time.Second

	historyWriteTimeout = 10 * time.Second
)

// Sources bundles the upstream providers the aggregator fans out to.
type Sources struct {
	Records provider.Source
	Phone   provider.Source
	Email   provider.Source
}

// Service is the aggregation engine: it fans out to the donor database and
// the cached providers concurrently, isolates per-source failures, and merges
// everything into a single Result.
type Service struct {
	donors  donorrepoport.Repository
	history historyrepoport.Repository
	clk     clockport.Clock
	log     *slog.Logger

	records *cachedSource
	phone   *cachedSource
	email   *cachedSource

	// SourceTimeout applies per source task.
	SourceTimeout time.Duration
}

func NewService(
	donors donorrepoport.Repository,
	history historyrepoport.Repository,
	store cacherepoport.Repository,
	sources Sources,
	clk clockport.Clock,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		donors:        donors,
		history:       history,
		clk:           clk,
		log:           log,
		records:       &cachedSource{store: store, src: sources.Records, slot: slotSearch, log: log},
		phone:         &cachedSource{store: store, src: sources.Phone, slot: slotPhone, log: log},
		email:         &cachedSource{store: store, src: sources.Email, slot: slotEmail, log: log},
		SourceTimeout: DefaultSourceTimeout,
	}
}

// Search runs the full aggregation for one query.
//
// Only malformed input produces an error; individual source failures are
// folded into the Result's Failures map.
func (s *Service) Search(ctx context.Context, subject domain.SubjectID, attrs domain.QueryAttributes) (Result, error) {
	if attrs.IsEmpty() {
		return Result{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "at least one search field is required",
			Details: map[string]any{"query": "all fields empty"},
		}
	}

	// Source tasks run detached from the request context: if the client
	// disconnects mid-flight, in-progress provider calls still complete and
	// populate the cache for the next requester. Each task carries only its
	// own timeout.
	base := context.WithoutCancel(ctx)

	var (
		dbDonors []donorrepoport.Donor
		dbErr    error
		recRes   resolution
		phoneRes resolution
		emailRes resolution
	)

	var g errgroup.Group
	g.Go(s.sourceTask(base, func(tctx context.Context) {
		dbDonors, dbErr = s.donors.SearchDonors(tctx, attrs)
	}))
	g.Go(s.sourceTask(base, func(tctx context.Context) {
		recRes = s.records.resolve(tctx, attrs)
	}))
	g.Go(s.sourceTask(base, func(tctx context.Context) {
		phoneRes = s.phone.resolve(tctx, attrs)
	}))
	g.Go(s.sourceTask(base, func(tctx context.Context) {
		emailRes = s.email.resolve(tctx, attrs)
	}))
	_ = g.Wait()

	result := s.merge(attrs, dbDonors, dbErr, recRes, phoneRes, emailRes)

	// History is best-effort and must never delay the response.
	s.recordHistory(base, subject, attrs)

	return result, nil
}

// sourceTask wraps one source in its own timeout. Tasks never return errors
// to the group: every failure is captured as a typed value for the merge.
func (s *Service) sourceTask(base context.Context, run func(context.Context)) func() error {
	timeout := s.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return func() error {
		tctx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		run(tctx)
		return nil
	}
}

// merge applies the precedence policy: database record over cached/live
// provider record over explicit none-found, with enrichments overlaid
// independently of which source won.
func (s *Service) merge(
	attrs domain.QueryAttributes,
	dbDonors []donorrepoport.Donor,
	dbErr error,
	recRes, phoneRes, emailRes resolution,
) Result {
	result := Result{
		Query:       attrs,
		Enrichments: make(map[string]Enrichment),
		Failures:    make(map[string]string),
	}

	switch {
	case dbErr == nil && len(dbDonors) > 0:
		result.Primary = Primary{Found: true, Origin: OriginDatabase, Donors: dbDonors}
	case recRes.payload != nil:
		origin := OriginLive
		if recRes.fromCache {
			origin = OriginCache
		}
		result.Primary = Primary{Found: true, Origin: origin, Record: recRes.payload}
	default:
		result.Primary = Primary{Found: false}
	}

	if dbErr != nil {
		s.log.Warn("database source failed", "error", dbErr)
		result.Failures["database"] = dbErr.Error()
	}
	if recRes.failure != nil {
		result.Failures[s.records.src.Name()] = recRes.failure.Error()
	}

	s.overlay(&result, SlotPhoneValidation, s.phone.src.Name(), phoneRes)
	s.overlay(&result, SlotEmailValidation, s.email.src.Name(), emailRes)

	return result
}

// overlay adds one enrichment slot. Failed sources are omitted with a
// diagnostic; NoRecord slots are omitted silently.
func (s *Service) overlay(result *Result, slot, sourceName string, res resolution) {
	switch {
	case res.failure != nil:
		s.log.Warn("enrichment source failed",
			"source", sourceName, "kind", res.failure.Kind, "detail", res.failure.Detail)
		result.Failures[sourceName] = res.failure.Error()
	case res.payload != nil:
		origin := OriginLive
		if res.fromCache {
			origin = OriginCache
		}
		result.Enrichments[slot] = Enrichment{Origin: origin, Payload: res.payload}
	}
}

// recordHistory fires a detached history write. The caller gets its response
// before, or without waiting for, this write.
func (s *Service) recordHistory(base context.Context, subject domain.SubjectID, attrs domain.QueryAttributes) {
	if s.history == nil || subject == "" {
		return
	}
	at := s.clk.Now()
	go func() {
		hctx, cancel := context.WithTimeout(base, historyWriteTimeout)
		defer cancel()
		if err := s.history.Add(hctx, subject, attrs, at); err != nil {
			s.log.Warn("failed to record search history", "subject", string(subject), "error", err)
		}
	}()
}

// ValidatePhone runs the phone validation source alone, through the cache.
func (s *Service) ValidatePhone(ctx context.Context, attrs domain.QueryAttributes) (Result, error) {
	return s.singleEnrichment(ctx, attrs, s.phone, SlotPhoneValidation)
}

// ValidateEmail runs the email validation source alone, through the cache.
func (s *Service) ValidateEmail(ctx context.Context, attrs domain.QueryAttributes) (Result, error) {
	return s.singleEnrichment(ctx, attrs, s.email, SlotEmailValidation)
}

func (s *Service) singleEnrichment(ctx context.Context, attrs domain.QueryAttributes, src *cachedSource, slot string) (Result, error) {
	if attrs.IsEmpty() {
		return Result{}, &Error{
			Status:  422,
			Code:    "VALIDATION_ERROR",
			Message: "at least one search field is required",
			Details: map[string]any{"query": "all fields empty"},
		}
	}

	timeout := s.SourceTimeout
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	res := src.resolve(tctx, attrs)

	result := Result{
		Query:       attrs,
		Enrichments: make(map[string]Enrichment),
		Failures:    make(map[string]string),
	}
	s.overlay(&result, slot, src.src.Name(), res)
	return result, nil
}

// Transactions returns a constituent's gift history, newest first.
func (s *Service) Transactions(ctx context.Context, id domain.ConstituentID) ([]donorrepoport.Transaction, error) {
	return s.donors.ListTransactions(ctx, id)
}

// Recent returns the subject's search history, newest first.
func (s *Service) Recent(ctx context.Context, subject domain.SubjectID, limit int) ([]historyrepoport.SearchRecord, error) {
	if s.history == nil {
		return []historyrepoport.SearchRecord{}, nil
	}
	return s.history.ListRecent(ctx, subject, limit)
}
