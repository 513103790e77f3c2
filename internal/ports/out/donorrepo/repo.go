package donorrepo

import (
	"context"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
)

// Donor is the persistence shape for a constituent record.
// It is not an HTTP DTO.
type Donor struct {
	ConstituentID domain.ConstituentID

	FirstName string
	LastName  string
	Street    string
	City      string
	State     string
	Zip       string

	Email *string
	Phone *string

	// Gift metrics are precomputed read-model fields.
	TotalGiving   float64
	GiftCount     int
	LargestGift   float64
	FirstGiftDate *time.Time
	LastGiftDate  *time.Time
}

// Transaction is one gift in a constituent's history.
type Transaction struct {
	GiftDate      time.Time
	GiftAmount    float64
	GiftType      string
	PledgeBalance float64
}

// Repository provides the non-cached database lookup source.
//
// SearchDonors matches on normalized last name and five-digit ZIP, narrowed by
// first name, street, and city when present. Results are ordered by last name,
// first name, constituent id for determinism.
type Repository interface {
	SearchDonors(ctx context.Context, attrs domain.QueryAttributes) ([]Donor, error)

	// ListTransactions returns a constituent's gifts, newest first.
	ListTransactions(ctx context.Context, id domain.ConstituentID) ([]Transaction, error)
}
