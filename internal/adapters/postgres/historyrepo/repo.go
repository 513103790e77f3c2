package historyrepo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	historyrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/historyrepo"
)

// Repo is a Postgres implementation of historyrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Add(ctx context.Context, subject domain.SubjectID, attrs domain.QueryAttributes, at time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO search_history (
				id, subject, first_name, last_name, street, city, state, zip_code, searched_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			uuid.New(),
			string(subject),
			attrs.FirstName,
			attrs.LastName,
			attrs.Street,
			attrs.City,
			attrs.State,
			attrs.Zip,
			at.UTC(),
		)
		if err != nil {
			return err
		}

		// Trim to the newest KeepCount rows for this subject.
		_, err = tx.Exec(ctx, `
			DELETE FROM search_history
			WHERE subject = $1
			  AND id NOT IN (
				SELECT id FROM search_history
				WHERE subject = $1
				ORDER BY searched_at DESC, id DESC
				LIMIT $2
			  )
		`, string(subject), historyrepoport.KeepCount)
		return err
	})
}

func (r *Repo) ListRecent(ctx context.Context, subject domain.SubjectID, limit int) ([]historyrepoport.SearchRecord, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	if limit <= 0 || limit > historyrepoport.KeepCount {
		limit = historyrepoport.KeepCount
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, subject, first_name, last_name, street, city, state, zip_code, searched_at
		FROM search_history
		WHERE subject = $1
		ORDER BY searched_at DESC, id DESC
		LIMIT $2
	`, string(subject), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]historyrepoport.SearchRecord, 0)
	for rows.Next() {
		var (
			id         uuid.UUID
			sub        string
			rec        historyrepoport.SearchRecord
			searchedAt time.Time
		)
		if err := rows.Scan(
			&id, &sub,
			&rec.Query.FirstName, &rec.Query.LastName, &rec.Query.Street,
			&rec.Query.City, &rec.Query.State, &rec.Query.Zip,
			&searchedAt,
		); err != nil {
			return nil, err
		}
		rec.ID = id.String()
		rec.Subject = domain.SubjectID(sub)
		rec.SearchedAt = searchedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
