package domain

import "strings"

// Canonical column names.
const (
	ColFacilityName = "facility_name"
	ColORISPL       = "orispl_code"
	ColFacilityID   = "fac_id"
	ColSO2Lbs       = "so2_lbs"
	ColNOxLbs       = "nox_lbs"
	ColCO2ShortTons = "co2_short_tons"
	ColDate         = "date"
	ColHour         = "hour"
	ColLatitude     = "latitude"
	ColLongitude    = "longitude"
	ColStateName    = "state_name"
	ColUnitID       = "unitid"
	ColYear         = "year"
	ColTimeLocal    = "time local"
	ColTime         = "time"
)

// columnRule maps a header onto a canonical name when match reports true.
// match receives the lowercased header.
type columnRule struct {
	canonical string
	match     func(name string) bool
}

// columnRules is evaluated in order; the first match wins.
var columnRules = []columnRule{
	{ColFacilityName, func(n string) bool { return containsAll(n, "facility", "name") }},
	{ColORISPL, func(n string) bool { return strings.Contains(n, "orispl") }},
	{ColFacilityID, func(n string) bool { return containsAll(n, "facility", "id") }},
	{ColSO2Lbs, func(n string) bool { return isMassColumn(n, "so2") }},
	{ColNOxLbs, func(n string) bool { return isMassColumn(n, "nox") }},
	{ColCO2ShortTons, func(n string) bool { return containsAll(n, "co2", "short", "tons") }},
	{ColDate, func(n string) bool { return strings.Contains(n, "date") }},
	{ColHour, func(n string) bool { return strings.Contains(n, "hour") }},
	{ColLatitude, func(n string) bool { return strings.Contains(n, "lat") }},
	{ColLongitude, func(n string) bool { return strings.Contains(n, "lon") }},
	{ColStateName, func(n string) bool { return strings.Contains(n, "state") }},
}

// isMassColumn matches "<pollutant> ... lbs|pounds" but never a rate column.
func isMassColumn(name, pollutant string) bool {
	if !strings.Contains(name, pollutant) || strings.Contains(name, "rate") {
		return false
	}
	return strings.Contains(name, "lbs") || strings.Contains(name, "pounds")
}

func containsAll(s string, terms ...string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

// CanonicalColumn returns the canonical name for a single raw header and
// whether a rule renamed it.
func CanonicalColumn(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	for _, r := range columnRules {
		if r.match(lower) {
			return r.canonical, true
		}
	}
	return strings.TrimSpace(lower), false
}

// NormalizeColumns maps raw headers to canonical names. The ledger records
// the original header of every renamed column under its canonical name; when
// two headers map to the same name the later one wins.
func NormalizeColumns(raw []string) ([]string, map[string]string) {
	names := make([]string, len(raw))
	ledger := make(map[string]string)
	for i, header := range raw {
		name, renamed := CanonicalColumn(header)
		if renamed {
			ledger[name] = header
		}
		names[i] = name
	}
	return names, ledger
}

// MatchColumn returns the column whose lowercased name contains every term.
// Columns are scanned in order and the last match wins.
func MatchColumn(columns []string, terms ...string) (string, bool) {
	lowered := make([]string, len(terms))
	for i, t := range terms {
		lowered[i] = strings.ToLower(t)
	}

	var match string
	found := false
	for _, c := range columns {
		if containsAll(strings.ToLower(c), lowered...) {
			match = c
			found = true
		}
	}
	return match, found
}
