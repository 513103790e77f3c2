package experian

import (
	"context"
	"encoding/json"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

// RecordsClient is the primary consumer-record lookup source.
type RecordsClient struct {
	cfg Config
}

func NewRecordsClient(cfg Config) *RecordsClient {
	return &RecordsClient{cfg: cfg}
}

func (c *RecordsClient) Name() string { return "experian-records" }

// recordsRequest is the upstream wire format for the records search.
type recordsRequest struct {
	LeadTransDetails map[string]string `json:"LEAD_TRANS_DETAILS"`
	LeadAddress      map[string]string `json:"LEAD_ADDRESS"`
}

func (c *RecordsClient) Call(ctx context.Context, attrs domain.QueryAttributes) (provider.Result, error) {
	if !c.cfg.configured() {
		return provider.Result{}, &provider.Failure{Kind: provider.NotConfigured, Detail: "records endpoint or auth token missing"}
	}

	body := recordsRequest{
		LeadTransDetails: map[string]string{
			"FIRST_NAME": attrs.FirstName,
			"LAST_NAME":  attrs.LastName,
		},
		LeadAddress: map[string]string{
			"STREET1": attrs.Street,
			"CITY":    attrs.City,
			"STATE":   attrs.State,
			"ZIP":     attrs.Zip,
		},
	}

	raw, failure := postJSON(ctx, c.cfg, body)
	if failure != nil {
		return provider.Result{}, failure
	}
	if isEmptyRecordsResponse(raw) {
		return provider.Result{Found: false}, nil
	}
	return provider.Result{Found: true, Payload: raw}, nil
}

// isEmptyRecordsResponse recognizes the upstream's "nothing found" shapes:
// an empty object/array, or a bare message envelope with no record fields.
func isEmptyRecordsResponse(raw json.RawMessage) bool {
	var asList []json.RawMessage
	if err := json.Unmarshal(raw, &asList); err == nil {
		return len(asList) == 0
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return false
	}
	if len(asObject) == 0 {
		return true
	}
	if len(asObject) == 1 {
		_, onlyMessage := asObject["message"]
		return onlyMessage
	}
	return false
}
