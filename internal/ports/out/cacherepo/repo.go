package cacherepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
)

// TTL is the absolute lifetime of a cache entry, measured from creation.
// Re-access does not extend it.
const TTL = 90 * 24 * time.Hour

// PayloadSet holds one opaque serialized blob per logical result kind.
// Each slot may be present or absent independently.
type PayloadSet struct {
	Search          json.RawMessage
	PhoneValidation json.RawMessage
	EmailValidation json.RawMessage
}

// IsEmpty reports whether no slot carries a payload.
func (p PayloadSet) IsEmpty() bool {
	return p.Search == nil && p.PhoneValidation == nil && p.EmailValidation == nil
}

// Entry is one cached row. The query snapshot is denormalized for
// observability; lookups go through the fingerprint only.
type Entry struct {
	Fingerprint domain.Fingerprint
	Query       domain.QueryAttributes

	Payloads PayloadSet

	// Source tags which provider produced the payload; Partial and ErrorNote
	// let an entry record a known-failing query instead of success.
	Source    string
	Partial   bool
	ErrorNote *string

	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
}

// Stats is a read-only aggregate over the cache table.
type Stats struct {
	Total     int64
	Active    int64
	Expired   int64
	TotalHits int64
	Oldest    *time.Time
	Newest    *time.Time
}

// Repository is the response cache contract.
//
// Concurrency model: the unique fingerprint constraint is the sole
// coordination mechanism. Inserts either succeed or fail atomically; nothing
// above this interface takes locks.
type Repository interface {
	// Find returns the live entry for the attributes' fingerprint.
	// An expired row is a miss even while physically present (reaping is
	// housekeeping, not correctness). On a hit the access count is bumped and
	// LastAccessedAt updated atomically before returning.
	Find(ctx context.Context, attrs domain.QueryAttributes) (Entry, bool, error)

	// Save inserts a new entry with ExpiresAt = now + TTL and AccessCount = 1.
	// If a row already exists for the fingerprint it returns ErrAlreadyExists;
	// when that surviving row is live, absent payload slots are filled from
	// this save, but existing payloads are never overwritten.
	Save(ctx context.Context, attrs domain.QueryAttributes, payloads PayloadSet, source string, partial bool, errorNote *string) error

	// CleanupExpired deletes every row whose expiry has passed and returns the
	// count. With dryRun it only counts. Safe to run concurrently with
	// Find/Save; relies solely on the store's own transaction semantics.
	CleanupExpired(ctx context.Context, dryRun bool) (int64, error)

	// Statistics returns observability aggregates.
	Statistics(ctx context.Context) (Stats, error)
}
