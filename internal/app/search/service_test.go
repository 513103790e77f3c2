package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memhistory "github.com/Damoxy/Experian-ProspectIQ-Search/internal/adapters/memory/historyrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	platformclock "github.com/Damoxy/Experian-ProspectIQ-Search/internal/platform/clock"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

type stubDonors struct {
	donors []donorrepoport.Donor
	err    error
}

func (s *stubDonors) SearchDonors(ctx context.Context, attrs domain.QueryAttributes) ([]donorrepoport.Donor, error) {
	return s.donors, s.err
}

func (s *stubDonors) ListTransactions(ctx context.Context, id domain.ConstituentID) ([]donorrepoport.Transaction, error) {
	return nil, donorrepoport.ErrNotFound
}

func newTestService(t *testing.T, donors *stubDonors, records, phone, email provider.Source) (*Service, *memhistory.Repo) {
	t.Helper()
	clk := platformclock.NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	history := memhistory.NewRepo()
	svc := NewService(donors, history, newTestStore(t), Sources{
		Records: records,
		Phone:   phone,
		Email:   email,
	}, clk, slog.Default())
	svc.SourceTimeout = 2 * time.Second
	return svc, history
}

func TestSearch_EmptyQueryIsRejected(t *testing.T) {
	svc, _ := newTestService(t, &stubDonors{},
		&stubSource{name: "records"}, &stubSource{name: "phone"}, &stubSource{name: "email"})

	_, err := svc.Search(context.Background(), "user-1", domain.QueryAttributes{})
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSearch_DatabaseWinsPrecedence(t *testing.T) {
	donors := &stubDonors{donors: []donorrepoport.Donor{{ConstituentID: "C-100", FirstName: "Jane", LastName: "Doe"}}}
	records := &stubSource{name: "records", res: provider.Result{Found: true, Payload: json.RawMessage(`{"rec":1}`)}}
	svc, _ := newTestService(t, donors, records,
		&stubSource{name: "phone", res: provider.Result{Found: false}},
		&stubSource{name: "email", res: provider.Result{Found: false}})

	res, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	assert.True(t, res.Primary.Found)
	assert.Equal(t, OriginDatabase, res.Primary.Origin)
	require.Len(t, res.Primary.Donors, 1)
	assert.Nil(t, res.Primary.Record, "provider record must not leak into a database win")
	assert.Empty(t, res.Failures)
}

func TestSearch_ProviderRecordWhenDatabaseEmpty(t *testing.T) {
	records := &stubSource{name: "records", res: provider.Result{Found: true, Payload: json.RawMessage(`{"rec":1}`)}}
	svc, _ := newTestService(t, &stubDonors{}, records,
		&stubSource{name: "phone", res: provider.Result{Found: false}},
		&stubSource{name: "email", res: provider.Result{Found: false}})

	res, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	assert.True(t, res.Primary.Found)
	assert.Equal(t, OriginLive, res.Primary.Origin)
	assert.JSONEq(t, `{"rec":1}`, string(res.Primary.Record))
}

func TestSearch_PartialFailuresDoNotAbortAggregation(t *testing.T) {
	// One source times out, one has no record, two succeed. The request must
	// still complete with the successful slots populated and the failure noted.
	records := &stubSource{name: "records", res: provider.Result{Found: true, Payload: json.RawMessage(`{"rec":1}`)}}
	phone := &stubSource{name: "phone", err: &provider.Failure{Kind: provider.Timeout, Detail: "deadline exceeded"}}
	email := &stubSource{name: "email", res: provider.Result{Found: true, Payload: json.RawMessage(`{"emails":["jane@example.com"]}`)}}
	svc, _ := newTestService(t, &stubDonors{}, records, phone, email)

	res, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	assert.True(t, res.Primary.Found)
	assert.Contains(t, res.Enrichments, SlotEmailValidation)
	assert.NotContains(t, res.Enrichments, SlotPhoneValidation)
	assert.Contains(t, res.Failures, "phone")
}

func TestSearch_AllSourcesEmptyYieldsNoneFoundMarker(t *testing.T) {
	svc, _ := newTestService(t, &stubDonors{},
		&stubSource{name: "records", res: provider.Result{Found: false}},
		&stubSource{name: "phone", res: provider.Result{Found: false}},
		&stubSource{name: "email", res: provider.Result{Found: false}})

	res, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	assert.False(t, res.Primary.Found)
	assert.Empty(t, res.Enrichments)
	assert.Empty(t, res.Failures)
}

func TestSearch_DatabaseErrorIsIsolated(t *testing.T) {
	donors := &stubDonors{err: errors.New("connection reset")}
	records := &stubSource{name: "records", res: provider.Result{Found: true, Payload: json.RawMessage(`{"rec":1}`)}}
	svc, _ := newTestService(t, donors, records,
		&stubSource{name: "phone", res: provider.Result{Found: false}},
		&stubSource{name: "email", res: provider.Result{Found: false}})

	res, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	assert.True(t, res.Primary.Found)
	assert.Equal(t, OriginLive, res.Primary.Origin)
	assert.Contains(t, res.Failures, "database")
}

func TestSearch_RecordsHistory(t *testing.T) {
	svc, history := newTestService(t, &stubDonors{},
		&stubSource{name: "records", res: provider.Result{Found: false}},
		&stubSource{name: "phone", res: provider.Result{Found: false}},
		&stubSource{name: "email", res: provider.Result{Found: false}})

	_, err := svc.Search(context.Background(), "user-1", cachedAttrs)
	require.NoError(t, err)

	// The history write is detached from the request; poll for it.
	require.Eventually(t, func() bool {
		recs, err := history.ListRecent(context.Background(), "user-1", 10)
		return err == nil && len(recs) == 1
	}, time.Second, 10*time.Millisecond)

	recs, err := history.ListRecent(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, cachedAttrs, recs[0].Query)
}

func TestValidatePhone_SingleSlot(t *testing.T) {
	phone := &stubSource{name: "phone", res: provider.Result{Found: true, Payload: json.RawMessage(`{"phones":["+19205551234"]}`)}}
	svc, _ := newTestService(t, &stubDonors{},
		&stubSource{name: "records"}, phone, &stubSource{name: "email"})

	res, err := svc.ValidatePhone(context.Background(), cachedAttrs)
	require.NoError(t, err)

	require.Contains(t, res.Enrichments, SlotPhoneValidation)
	assert.Equal(t, OriginLive, res.Enrichments[SlotPhoneValidation].Origin)
	assert.False(t, res.Primary.Found, "validation endpoints carry no primary result")

	// Second call is served from the cache.
	res, err = svc.ValidatePhone(context.Background(), cachedAttrs)
	require.NoError(t, err)
	assert.Equal(t, OriginCache, res.Enrichments[SlotPhoneValidation].Origin)
	assert.Equal(t, int32(1), phone.calls.Load())
}
