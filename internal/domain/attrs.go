package domain

import "strings"

// QueryAttributes is the immutable set of search criteria for a prospect lookup.
// Every field is optional; the aggregator tolerates any subset being empty.
type QueryAttributes struct {
	FirstName string
	LastName  string
	Street    string
	City      string
	State     string
	Zip       string
}

// Normalized returns a copy with every field trimmed and lowercased.
// Absent fields stay empty strings, so two queries that differ only in
// case or surrounding whitespace normalize to the same value.
func (a QueryAttributes) Normalized() QueryAttributes {
	return QueryAttributes{
		FirstName: normalizeField(a.FirstName),
		LastName:  normalizeField(a.LastName),
		Street:    normalizeField(a.Street),
		City:      normalizeField(a.City),
		State:     normalizeField(a.State),
		Zip:       normalizeField(a.Zip),
	}
}

// IsEmpty reports whether no usable criteria are present after normalization.
func (a QueryAttributes) IsEmpty() bool {
	n := a.Normalized()
	return n.FirstName == "" && n.LastName == "" && n.Street == "" &&
		n.City == "" && n.State == "" && n.Zip == ""
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
