package experian

import (
	"context"
	"encoding/json"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

// apertureRequest is the shared wire format for the Aperture validation
// endpoints. Each component is a single-element array per the upstream API.
type apertureRequest struct {
	Components map[string][]string `json:"components"`
	Options    []apertureOption    `json:"options,omitempty"`
	Attributes []string            `json:"attributes"`
}

type apertureOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func apertureComponents(attrs domain.QueryAttributes) map[string][]string {
	return map[string][]string{
		"first_name":     {attrs.FirstName},
		"middle_name":    {""},
		"last_name":      {attrs.LastName},
		"address_line_1": {attrs.Street},
		"town":           {attrs.City},
		"sub_region":     {""},
		"region":         {attrs.State},
		"postal_code":    {attrs.Zip},
	}
}

// PhoneClient validates and enriches phone numbers via Aperture.
type PhoneClient struct {
	cfg Config
}

func NewPhoneClient(cfg Config) *PhoneClient {
	return &PhoneClient{cfg: cfg}
}

func (c *PhoneClient) Name() string { return "aperture-phone" }

func (c *PhoneClient) Call(ctx context.Context, attrs domain.QueryAttributes) (provider.Result, error) {
	if !c.cfg.configured() {
		return provider.Result{}, &provider.Failure{Kind: provider.NotConfigured, Detail: "aperture phone endpoint or auth token missing"}
	}

	body := apertureRequest{
		Components: apertureComponents(attrs),
		Options:    []apertureOption{{Name: "dnc_preference", Value: "flag"}},
		Attributes: []string{"phone"},
	}
	raw, failure := postJSON(ctx, c.cfg, body)
	if failure != nil {
		return provider.Result{}, failure
	}
	if !apertureHasResult(raw, "phones") {
		return provider.Result{Found: false}, nil
	}
	return provider.Result{Found: true, Payload: raw}, nil
}

// EmailClient validates email addresses via Aperture.
type EmailClient struct {
	cfg Config
}

func NewEmailClient(cfg Config) *EmailClient {
	return &EmailClient{cfg: cfg}
}

func (c *EmailClient) Name() string { return "aperture-email" }

func (c *EmailClient) Call(ctx context.Context, attrs domain.QueryAttributes) (provider.Result, error) {
	if !c.cfg.configured() {
		return provider.Result{}, &provider.Failure{Kind: provider.NotConfigured, Detail: "aperture email endpoint or auth token missing"}
	}

	body := apertureRequest{
		Components: apertureComponents(attrs),
		Attributes: []string{"email"},
	}
	raw, failure := postJSON(ctx, c.cfg, body)
	if failure != nil {
		return provider.Result{}, failure
	}
	if !apertureHasResult(raw, "emails") {
		return provider.Result{Found: false}, nil
	}
	return provider.Result{Found: true, Payload: raw}, nil
}

// apertureHasResult reports whether the response's result block carries a
// non-empty list under key. A well-formed response with nothing found is the
// business NoRecord case, not a failure.
func apertureHasResult(raw json.RawMessage, key string) bool {
	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return false
	}
	items, ok := envelope.Result[key]
	if !ok {
		return false
	}
	var list []json.RawMessage
	if err := json.Unmarshal(items, &list); err != nil {
		return false
	}
	return len(list) > 0
}
