package domain

// SubjectID is the authenticated caller extracted from the bearer token.
// We model it as an opaque identifier: its format is controlled by the
// external auth collaborator.
type SubjectID string

// ConstituentID identifies a donor record in the constituent database.
type ConstituentID string
