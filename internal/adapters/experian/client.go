// Package experian holds the HTTP adapters for the upstream Experian data
// providers: the consumer records search and the Aperture phone/email
// validation endpoints. Every adapter maps its outcome onto the shared
// provider failure taxonomy; raw transport errors never leave this package.
package experian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/provider"
)

// DefaultTimeout bounds each upstream call; the per-source timeout in the
// aggregator is layered on top via context.
const DefaultTimeout = 30 * time.Second

// Config carries the externally supplied endpoint and credentials for one
// provider. How these are provisioned is an external collaborator concern.
type Config struct {
	URL       string
	AuthToken string

	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (c Config) configured() bool {
	return c.URL != "" && c.AuthToken != ""
}

func (c Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// postJSON performs the call and maps every possible outcome to either a
// response body or a *provider.Failure.
func postJSON(ctx context.Context, cfg Config, body any) (json.RawMessage, *provider.Failure) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &provider.Failure{Kind: provider.MalformedResponse, Detail: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, &provider.Failure{Kind: provider.Unreachable, Detail: err.Error()}
	}
	req.Header.Set("Auth-Token", cfg.AuthToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := cfg.client().Do(req)
	if err != nil {
		return nil, transportFailure(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.Failure{
			Kind:   provider.UpstreamRejected,
			Status: resp.StatusCode,
			Detail: truncate(string(raw), 200),
		}
	}

	if !json.Valid(raw) {
		return nil, &provider.Failure{Kind: provider.MalformedResponse, Detail: "response is not valid JSON"}
	}
	return raw, nil
}

func transportFailure(err error) *provider.Failure {
	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.Failure{Kind: provider.Timeout, Detail: err.Error()}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &provider.Failure{Kind: provider.Timeout, Detail: err.Error()}
	}
	return &provider.Failure{Kind: provider.Unreachable, Detail: err.Error()}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
