package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
)

// FailureKind classifies why a provider call did not produce a result.
// The taxonomy is shared by every adapter so the aggregator can branch
// exhaustively without inspecting error strings.
type FailureKind string

const (
	// Timeout means the call exceeded its deadline.
	Timeout FailureKind = "TIMEOUT"
	// Unreachable means the transport failed before an HTTP status arrived.
	Unreachable FailureKind = "UNREACHABLE"
	// UpstreamRejected means the provider answered with a non-2xx status.
	UpstreamRejected FailureKind = "UPSTREAM_REJECTED"
	// MalformedResponse means the provider answered but the payload did not parse.
	MalformedResponse FailureKind = "MALFORMED_RESPONSE"
	// NotConfigured means credentials or an endpoint are missing.
	NotConfigured FailureKind = "NOT_CONFIGURED"
)

// Failure is the typed error every adapter returns. Adapters never let raw
// transport or decoding errors cross the aggregator boundary.
type Failure struct {
	Kind   FailureKind
	Status int // HTTP status for UpstreamRejected, zero otherwise
	Detail string
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("provider failure %s (status %d): %s", f.Kind, f.Status, f.Detail)
	}
	return fmt.Sprintf("provider failure %s: %s", f.Kind, f.Detail)
}

// Result is a successful provider outcome. Found=false is the business
// "no record" case: a success with an empty result, distinct from failure.
type Result struct {
	Found   bool
	Payload json.RawMessage
}

// Source is one upstream data provider. Call returns either a Result or a
// *Failure; any other error type from an implementation is a bug.
type Source interface {
	Name() string
	Call(ctx context.Context, attrs domain.QueryAttributes) (Result, error)
}
