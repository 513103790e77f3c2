package cacherepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	clockport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/clock"
)

// Repo is a Postgres implementation of cacherepo.Repository.
//
// Time always comes from the injected clock, not the database, so expiry
// behavior is deterministic under test and consistent with the rest of the
// process.
type Repo struct {
	pool *pgxpool.Pool
	clk  clockport.Clock
}

func NewRepo(pool *pgxpool.Pool, clk clockport.Clock) *Repo {
	return &Repo{pool: pool, clk: clk}
}

func (r *Repo) Find(ctx context.Context, attrs domain.QueryAttributes) (cacherepoport.Entry, bool, error) {
	if r.pool == nil {
		return cacherepoport.Entry{}, false, errors.New("nil postgres pool")
	}
	fp := domain.ComputeFingerprint(attrs)
	now := r.clk.Now().UTC()

	// Hit bump and read in one statement; the row lock makes the counter
	// increment atomic under concurrent finds.
	row := r.pool.QueryRow(ctx, `
		UPDATE api_response_cache
		SET access_count = access_count + 1,
		    last_accessed_at = $2
		WHERE fingerprint = $1
		  AND expires_at > $2
		RETURNING
			first_name, last_name, street, city, state, zip_code,
			search_response, phone_validation, email_validation,
			api_source, is_partial, error_note,
			created_at, expires_at, last_accessed_at, access_count
	`, string(fp), now)

	var (
		e                       cacherepoport.Entry
		first, last, street     *string
		city, state, zip        *string
		search, phone, email    []byte
		createdAt, expiresAt    time.Time
		lastAccessedAt          time.Time
	)
	if err := row.Scan(
		&first, &last, &street, &city, &state, &zip,
		&search, &phone, &email,
		&e.Source, &e.Partial, &e.ErrorNote,
		&createdAt, &expiresAt, &lastAccessedAt, &e.AccessCount,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Absent or expired; an expired row is a miss until reaped.
			return cacherepoport.Entry{}, false, nil
		}
		return cacherepoport.Entry{}, false, err
	}

	e.Fingerprint = fp
	e.Query = domain.QueryAttributes{
		FirstName: derefString(first),
		LastName:  derefString(last),
		Street:    derefString(street),
		City:      derefString(city),
		State:     derefString(state),
		Zip:       derefString(zip),
	}
	e.Payloads = cacherepoport.PayloadSet{Search: search, PhoneValidation: phone, EmailValidation: email}
	e.CreatedAt = createdAt.UTC()
	e.ExpiresAt = expiresAt.UTC()
	e.LastAccessedAt = lastAccessedAt.UTC()
	return e, true, nil
}

func (r *Repo) Save(ctx context.Context, attrs domain.QueryAttributes, payloads cacherepoport.PayloadSet, source string, partial bool, errorNote *string) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	fp := domain.ComputeFingerprint(attrs)
	now := r.clk.Now().UTC()
	expiresAt := now.Add(cacherepoport.TTL)

	// On conflict with a live row, only absent slots are filled; existing
	// payloads are never overwritten. An expired survivor is left untouched
	// until the reaper removes it.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO api_response_cache (
			fingerprint,
			first_name, last_name, street, city, state, zip_code,
			search_response, phone_validation, email_validation,
			api_source, is_partial, error_note,
			created_at, expires_at, last_accessed_at, access_count
		) VALUES (
			$1,
			$2, $3, $4, $5, $6, $7,
			$8::jsonb, $9::jsonb, $10::jsonb,
			$11, $12, $13,
			$14, $15, $14, 1
		)
		ON CONFLICT (fingerprint) DO UPDATE SET
			search_response  = COALESCE(api_response_cache.search_response,  EXCLUDED.search_response),
			phone_validation = COALESCE(api_response_cache.phone_validation, EXCLUDED.phone_validation),
			email_validation = COALESCE(api_response_cache.email_validation, EXCLUDED.email_validation)
		WHERE api_response_cache.expires_at > EXCLUDED.created_at
		RETURNING (xmax = 0) AS inserted
	`,
		string(fp),
		attrs.FirstName, attrs.LastName, attrs.Street, attrs.City, attrs.State, attrs.Zip,
		rawOrNil(payloads.Search), rawOrNil(payloads.PhoneValidation), rawOrNil(payloads.EmailValidation),
		source, partial, errorNote,
		now, expiresAt,
	)

	var inserted bool
	if err := row.Scan(&inserted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflicted with an expired row the update predicate skipped.
			return cacherepoport.ErrAlreadyExists
		}
		return err
	}
	if !inserted {
		return cacherepoport.ErrAlreadyExists
	}
	return nil
}

func (r *Repo) CleanupExpired(ctx context.Context, dryRun bool) (int64, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	now := r.clk.Now().UTC()

	if dryRun {
		var count int64
		err := r.pool.QueryRow(ctx, `
			SELECT count(*) FROM api_response_cache WHERE expires_at <= $1
		`, now).Scan(&count)
		return count, err
	}

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM api_response_cache WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) Statistics(ctx context.Context) (cacherepoport.Stats, error) {
	if r.pool == nil {
		return cacherepoport.Stats{}, errors.New("nil postgres pool")
	}
	now := r.clk.Now().UTC()

	var s cacherepoport.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE expires_at > $1),
			count(*) FILTER (WHERE expires_at <= $1),
			COALESCE(sum(access_count), 0),
			min(created_at),
			max(created_at)
		FROM api_response_cache
	`, now).Scan(&s.Total, &s.Active, &s.Expired, &s.TotalHits, &s.Oldest, &s.Newest)
	if err != nil {
		return cacherepoport.Stats{}, err
	}
	if s.Oldest != nil {
		o := s.Oldest.UTC()
		s.Oldest = &o
	}
	if s.Newest != nil {
		n := s.Newest.UTC()
		s.Newest = &n
	}
	return s, nil
}

func rawOrNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
