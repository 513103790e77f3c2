package donorrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
)

// Repo is a Postgres implementation of donorrepo.Repository over the
// constituent/transaction tables.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) SearchDonors(ctx context.Context, attrs domain.QueryAttributes) ([]donorrepoport.Donor, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	n := attrs.Normalized()
	if n.LastName == "" && n.Zip == "" {
		return []donorrepoport.Donor{}, nil
	}

	// Last name and five-digit ZIP drive the indexed match; the remaining
	// criteria narrow in-query. Street matching happens in Go because the
	// abbreviation normalization lives in the domain package.
	rows, err := r.pool.Query(ctx, `
		SELECT
			constituent_id, first_name, last_name, street, city, state, zip_code,
			email, phone,
			total_giving, gift_count, largest_gift, first_gift_date, last_gift_date
		FROM constituents
		WHERE ($1 = '' OR lower(last_name) = $1)
		  AND ($2 = '' OR left(regexp_replace(zip_code, '\D', '', 'g'), 5) = $2)
		  AND ($3 = '' OR lower(first_name) = $3)
		  AND ($4 = '' OR lower(city) = $4)
		ORDER BY lower(last_name), lower(first_name), constituent_id
	`,
		n.LastName,
		domain.NormalizeZip(n.Zip),
		n.FirstName,
		n.City,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	wantStreet := domain.NormalizeStreet(n.Street)

	out := make([]donorrepoport.Donor, 0)
	for rows.Next() {
		var (
			d          donorrepoport.Donor
			id         string
			firstGift  *time.Time
			lastGift   *time.Time
		)
		if err := rows.Scan(
			&id, &d.FirstName, &d.LastName, &d.Street, &d.City, &d.State, &d.Zip,
			&d.Email, &d.Phone,
			&d.TotalGiving, &d.GiftCount, &d.LargestGift, &firstGift, &lastGift,
		); err != nil {
			return nil, err
		}
		if wantStreet != "" && domain.NormalizeStreet(d.Street) != wantStreet {
			continue
		}
		d.ConstituentID = domain.ConstituentID(id)
		d.FirstGiftDate = firstGift
		d.LastGiftDate = lastGift
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repo) ListTransactions(ctx context.Context, id domain.ConstituentID) ([]donorrepoport.Transaction, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM constituents WHERE constituent_id = $1)`, string(id),
	).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, donorrepoport.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, `
		SELECT gift_date, gift_amount, gift_type, pledge_balance
		FROM transactions
		WHERE constituent_id = $1
		ORDER BY gift_date DESC, id DESC
	`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]donorrepoport.Transaction, 0)
	for rows.Next() {
		var tx donorrepoport.Transaction
		if err := rows.Scan(&tx.GiftDate, &tx.GiftAmount, &tx.GiftType, &tx.PledgeBalance); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
