package historyrepo

import (
	"context"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
)

// KeepCount bounds how many searches are retained per subject; older entries
// are trimmed on write.
const KeepCount = 50

// SearchRecord is one remembered search for a subject.
type SearchRecord struct {
	ID         string
	Subject    domain.SubjectID
	Query      domain.QueryAttributes
	SearchedAt time.Time
}

// Repository persists per-subject search history. Writes are best-effort from
// the caller's perspective: the aggregator fires them after the response is
// computed and only logs failures.
type Repository interface {
	// Add records a search and trims the subject's history to KeepCount.
	Add(ctx context.Context, subject domain.SubjectID, attrs domain.QueryAttributes, at time.Time) error

	// ListRecent returns the subject's searches, newest first, up to limit.
	ListRecent(ctx context.Context, subject domain.SubjectID, limit int) ([]SearchRecord, error)
}
