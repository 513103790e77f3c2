package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/app/search"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/reaper"
)

// Server implements the HTTP handlers. It is a thin adapter: decoding,
// subject extraction, and DTO mapping only; all policy lives in app/search.
type Server struct {
	svc     *search.Service
	store   cacherepoport.Repository
	sweeper *reaper.Reaper
	log     *slog.Logger
}

func NewServer(svc *search.Service, store cacherepoport.Repository, sweeper *reaper.Reaper, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{svc: svc, store: store, sweeper: sweeper, log: log}
}

type queryDTO struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip_code"`
}

func (q queryDTO) toAttrs() domain.QueryAttributes {
	return domain.QueryAttributes{
		FirstName: q.FirstName,
		LastName:  q.LastName,
		Street:    q.Street,
		City:      q.City,
		State:     q.State,
		Zip:       q.Zip,
	}
}

func queryFromAttrs(a domain.QueryAttributes) queryDTO {
	return queryDTO{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Street:    a.Street,
		City:      a.City,
		State:     a.State,
		Zip:       a.Zip,
	}
}

type donorDTO struct {
	ConstituentID string     `json:"constituent_id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Street        string     `json:"street"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	Zip           string     `json:"zip_code"`
	Email         *string    `json:"email"`
	Phone         *string    `json:"phone"`
	TotalGiving   float64    `json:"total_giving"`
	GiftCount     int        `json:"gift_count"`
	LargestGift   float64    `json:"largest_gift"`
	FirstGiftDate *time.Time `json:"first_gift_date"`
	LastGiftDate  *time.Time `json:"last_gift_date"`
}

type primaryDTO struct {
	Found  bool            `json:"found"`
	Origin string          `json:"origin,omitempty"`
	Donors []donorDTO      `json:"donors,omitempty"`
	Record json.RawMessage `json:"record,omitempty"`
}

type enrichmentDTO struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

type searchResponse struct {
	Query       queryDTO                 `json:"query"`
	Primary     primaryDTO               `json:"primary"`
	Enrichments map[string]enrichmentDTO `json:"enrichments"`
	Failures    map[string]string        `json:"failures"`
}

func toSearchResponse(res search.Result) searchResponse {
	out := searchResponse{
		Query: queryFromAttrs(res.Query),
		Primary: primaryDTO{
			Found:  res.Primary.Found,
			Origin: string(res.Primary.Origin),
			Record: res.Primary.Record,
		},
		Enrichments: make(map[string]enrichmentDTO, len(res.Enrichments)),
		Failures:    res.Failures,
	}
	for _, d := range res.Primary.Donors {
		out.Primary.Donors = append(out.Primary.Donors, donorDTO{
			ConstituentID: string(d.ConstituentID),
			FirstName:     d.FirstName,
			LastName:      d.LastName,
			Street:        d.Street,
			City:          d.City,
			State:         d.State,
			Zip:           d.Zip,
			Email:         d.Email,
			Phone:         d.Phone,
			TotalGiving:   d.TotalGiving,
			GiftCount:     d.GiftCount,
			LargestGift:   d.LargestGift,
			FirstGiftDate: d.FirstGiftDate,
			LastGiftDate:  d.LastGiftDate,
		})
	}
	for slot, e := range res.Enrichments {
		out.Enrichments[slot] = enrichmentDTO{Origin: string(e.Origin), Payload: e.Payload}
	}
	return out
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (domain.QueryAttributes, bool) {
	var req queryDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", map[string]any{"error": err.Error()})
		return domain.QueryAttributes{}, false
	}
	return req.toAttrs(), true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	attrs, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	subject, _ := SubjectFromContext(r.Context())

	res, err := s.svc.Search(r.Context(), domain.SubjectID(subject), attrs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(res))
}

func (s *Server) handleValidatePhone(w http.ResponseWriter, r *http.Request) {
	s.handleValidation(w, r, s.svc.ValidatePhone)
}

func (s *Server) handleValidateEmail(w http.ResponseWriter, r *http.Request) {
	s.handleValidation(w, r, s.svc.ValidateEmail)
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request, run func(context.Context, domain.QueryAttributes) (search.Result, error)) {
	attrs, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	res, err := run(r.Context(), attrs)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSearchResponse(res))
}

type transactionDTO struct {
	GiftDate      time.Time `json:"gift_date"`
	GiftAmount    float64   `json:"gift_amount"`
	GiftType      string    `json:"gift_type"`
	PledgeBalance float64   `json:"pledge_balance"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "constituentID")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing constituent id", nil)
		return
	}

	txs, err := s.svc.Transactions(r.Context(), domain.ConstituentID(id))
	if err != nil {
		if errors.Is(err, donorrepoport.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "NOT_FOUND", "constituent not found", map[string]any{"constituent_id": id})
			return
		}
		writeAppError(w, r, err)
		return
	}

	out := struct {
		ConstituentID string           `json:"constituent_id"`
		Transactions  []transactionDTO `json:"transactions"`
	}{ConstituentID: id, Transactions: make([]transactionDTO, 0, len(txs))}
	for _, tx := range txs {
		out.Transactions = append(out.Transactions, transactionDTO{
			GiftDate:      tx.GiftDate,
			GiftAmount:    tx.GiftAmount,
			GiftType:      tx.GiftType,
			PledgeBalance: tx.PledgeBalance,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type searchRecordDTO struct {
	ID         string    `json:"id"`
	Query      queryDTO  `json:"query"`
	SearchedAt time.Time `json:"searched_at"`
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	subject, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "limit must be a positive integer", map[string]any{"limit": raw})
			return
		}
		limit = n
	}

	recs, err := s.svc.Recent(r.Context(), domain.SubjectID(subject), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := struct {
		Searches []searchRecordDTO `json:"searches"`
	}{Searches: make([]searchRecordDTO, 0, len(recs))}
	for _, rec := range recs {
		out.Searches = append(out.Searches, searchRecordDTO{
			ID:         rec.ID,
			Query:      queryFromAttrs(rec.Query),
			SearchedAt: rec.SearchedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type cacheStatsDTO struct {
	TotalEntries   int64      `json:"total_entries"`
	ActiveEntries  int64      `json:"active_entries"`
	ExpiredEntries int64      `json:"expired_entries"`
	TotalCacheHits int64      `json:"total_cache_hits"`
	OldestEntry    *time.Time `json:"oldest_entry"`
	NewestEntry    *time.Time `json:"newest_entry"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cacheStatsDTO{
		TotalEntries:   stats.Total,
		ActiveEntries:  stats.Active,
		ExpiredEntries: stats.Expired,
		TotalCacheHits: stats.TotalHits,
		OldestEntry:    stats.Oldest,
		NewestEntry:    stats.Newest,
	})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"

	removed, err := s.sweeper.RunOnce(r.Context(), dryRun)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		DryRun  bool  `json:"dry_run"`
		Removed int64 `json:"removed"`
	}{DryRun: dryRun, Removed: removed})
}
