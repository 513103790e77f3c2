package search

import (
	"encoding/json"

	"github.com/Damoxy/Experian-ProspectIQ-Search/internal/domain"
	donorrepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/donorrepo"
)

// Origin tags where a slot's data came from.
type Origin string

const (
	OriginDatabase Origin = "database"
	OriginCache    Origin = "cache"
	OriginLive     Origin = "live"
)

// Slot names for the enrichment overlays.
const (
	SlotPhoneValidation = "phone_validation"
	SlotEmailValidation = "email_validation"
)

// Primary is the winning primary-result slot. Found=false is the explicit
// "no records found" marker, not an error.
type Primary struct {
	Found  bool
	Origin Origin

	// Donors is populated when the database source won.
	Donors []donorrepoport.Donor

	// Record is the provider payload when the record provider won.
	Record json.RawMessage
}

// Enrichment is one successful enrichment overlay.
type Enrichment struct {
	Origin  Origin
	Payload json.RawMessage
}

// Result is the merged response for one aggregation.
//
// Failed sources never surface as a top-level error; they are recorded in
// Failures (source name -> diagnostic) and their slots omitted.
type Result struct {
	Query domain.QueryAttributes

	Primary     Primary
	Enrichments map[string]Enrichment
	Failures    map[string]string
}
