package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

// payloadSlot identifies which cache slot a cached source owns.
type payloadSlot int

const (
	slotSearch payloadSlot = iota
	slotPhone
	slotEmail
)

func (s payloadSlot) get(p cacherepoport.PayloadSet) json.RawMessage {
	switch s {
	case slotPhone:
		return p.PhoneValidation
	case slotEmail:
		return p.EmailValidation
	default:
		return p.Search
	}
}

func (s payloadSlot) put(p *cacherepoport.PayloadSet, raw json.RawMessage) {
	switch s {
	case slotPhone:
		p.PhoneValidation = raw
	case slotEmail:
		p.EmailValidation = raw
	default:
		p.Search = raw
	}
}

// cachedSource layers the response cache over one provider:
// check cache, on miss call the provider, on success store the result.
type cachedSource struct {
	store cacherepoport.Repository
	src   provider.Source
	slot  payloadSlot
	log   *slog.Logger
}

// resolution is the terminal state of one cached lookup. Exactly one of
// payload, noRecord, or failure describes the outcome.
type resolution struct {
	payload   json.RawMessage
	fromCache bool
	noRecord  bool
	failure   *provider.Failure
}

func (c *cachedSource) resolve(ctx context.Context, attrs domain.QueryAttributes) resolution {
	saveable := true

	entry, ok, err := c.store.Find(ctx, attrs)
	if err != nil {
		// A cache-layer failure is a miss, never an error to the caller —
		// but we also don't trust the store enough to attempt a save.
		c.log.Warn("cache lookup failed, falling through to provider",
			"source", c.src.Name(), "error", err)
		saveable = false
	}
	if ok {
		if p := c.slot.get(entry.Payloads); p != nil {
			return resolution{payload: p, fromCache: true}
		}
	}

	res, err := c.src.Call(ctx, attrs)
	if err != nil {
		var f *provider.Failure
		if !errors.As(err, &f) {
			// Adapters only return *provider.Failure; anything else is a bug,
			// contained here as an unreachable-equivalent.
			f = &provider.Failure{Kind: provider.Unreachable, Detail: err.Error()}
		}
		return resolution{failure: f}
	}

	if !res.Found {
		// NoRecord is never cached: a later real record should be
		// discoverable promptly rather than shadowed for 90 days.
		return resolution{noRecord: true}
	}

	if saveable {
		var set cacherepoport.PayloadSet
		c.slot.put(&set, res.Payload)
		if err := c.store.Save(ctx, attrs, set, c.src.Name(), false, nil); err != nil {
			if errors.Is(err, cacherepoport.ErrAlreadyExists) {
				// Another request cached this fingerprint first; the read
				// path will serve the surviving row.
				c.log.Debug("cache entry already exists", "source", c.src.Name())
			} else {
				// Failing to cache is not a request failure.
				c.log.Warn("failed to cache provider result",
					"source", c.src.Name(), "error", err)
			}
		}
	}
	return resolution{payload: res.Payload}
}
