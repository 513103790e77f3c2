package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeZip extracts the leading five digits from a ZIP code, handling
// ZIP+4 formats like "54113-1247".
func NormalizeZip(zip string) string {
	var digits strings.Builder
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 5 {
		return d[:5]
	}
	return d
}

// streetAbbreviations maps common street suffixes to USPS abbreviations so
// addresses from different sources compare equal.
var streetAbbreviations = map[string]string{
	"STREET":    "ST",
	"DRIVE":     "DR",
	"AVENUE":    "AVE",
	"BOULEVARD": "BLVD",
	"ROAD":      "RD",
	"LANE":      "LN",
	"COURT":     "CT",
	"PLACE":     "PL",
	"CIRCLE":    "CIR",
	"TRAIL":     "TRL",
}

// NormalizeStreet uppercases, collapses whitespace, and abbreviates street
// suffixes for comparison purposes. It is used for matching, not storage.
func NormalizeStreet(street string) string {
	fields := strings.Fields(strings.ToUpper(street))
	for i, f := range fields {
		if abbrev, ok := streetAbbreviations[f]; ok {
			fields[i] = abbrev
		}
	}
	return strings.Join(fields, " ")
}
