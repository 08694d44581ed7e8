package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NoUnit is the reserved unit id meaning "aggregate over all units".
const NoUnit = "-99"

// EmissionRow is one facility/unit/hour after column normalization and time
// localization. Optional canonical fields are nil when the source vintage
// lacks the column or the cell is empty.
type EmissionRow struct {
	ORISPL       int      `json:"orispl_code"`
	UnitID       *string  `json:"unitid,omitempty"`
	FacilityName *string  `json:"facility_name,omitempty"`
	FacilityID   *string  `json:"fac_id,omitempty"`
	StateName    *string  `json:"state_name,omitempty"`
	SO2Lbs       *float64 `json:"so2_lbs,omitempty"`
	NOxLbs       *float64 `json:"nox_lbs,omitempty"`
	CO2ShortTons *float64 `json:"co2_short_tons,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`

	TimeLocal time.Time  `json:"time_local"`
	Time      *time.Time `json:"time,omitempty"` // UTC; nil when the facility has no offset

	// Extra holds cells of non-canonical columns keyed by normalized name.
	Extra map[string]string `json:"extra,omitempty"`
}

// NormalizedRow is an EmissionRow still carrying its raw date and hour cells.
type NormalizedRow struct {
	EmissionRow
	Date string
	Hour string
}

// Unit returns the row's unit id, or "" when absent.
func (r EmissionRow) Unit() string {
	if r.UnitID == nil {
		return ""
	}
	return *r.UnitID
}

// Value returns the numeric value of a normalized column. The second result
// is false when the column is absent, empty or not numeric.
func (r EmissionRow) Value(column string) (float64, bool) {
	switch column {
	case ColSO2Lbs:
		return deref(r.SO2Lbs)
	case ColNOxLbs:
		return deref(r.NOxLbs)
	case ColCO2ShortTons:
		return deref(r.CO2ShortTons)
	case ColLatitude:
		return deref(r.Latitude)
	case ColLongitude:
		return deref(r.Longitude)
	case ColORISPL:
		return float64(r.ORISPL), true
	}
	cell, ok := r.Extra[column]
	if !ok {
		return 0, false
	}
	return parseCell(cell)
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// IsMissing reports whether a cell holds no value. gota renders missing
// string cells as "NaN".
func IsMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NaN", "NA", "nan", "<nil>":
		return true
	}
	return false
}

func parseCell(cell string) (float64, bool) {
	if IsMissing(cell) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func floatCell(cell string) *float64 {
	v, ok := parseCell(cell)
	if !ok {
		return nil
	}
	return &v
}

func stringCell(cell string) *string {
	if IsMissing(cell) {
		return nil
	}
	s := strings.TrimSpace(cell)
	return &s
}

// ParseFacilityCode parses an ORISPL code, accepting float renderings such as "3.0".
func ParseFacilityCode(cell string) (int, error) {
	v, ok := parseCell(cell)
	if !ok {
		return 0, fmt.Errorf("invalid facility code %q", cell)
	}
	return int(v), nil
}

// NewNormalizedRow builds a row from canonical column names and one record of
// cells. Columns dropped by the pipeline (year) are ignored.
func NewNormalizedRow(columns, record []string) (NormalizedRow, error) {
	if len(columns) != len(record) {
		return NormalizedRow{}, fmt.Errorf("%w: %d columns but %d cells", ErrMalformedSource, len(columns), len(record))
	}

	var row NormalizedRow
	hasFacility := false
	for i, col := range columns {
		cell := record[i]
		switch col {
		case ColORISPL:
			code, err := ParseFacilityCode(cell)
			if err != nil {
				return NormalizedRow{}, fmt.Errorf("%w: %w", ErrMalformedSource, err)
			}
			row.ORISPL = code
			hasFacility = true
		case ColUnitID:
			row.UnitID = stringCell(cell)
		case ColFacilityName:
			row.FacilityName = stringCell(cell)
		case ColFacilityID:
			row.FacilityID = stringCell(cell)
		case ColStateName:
			row.StateName = stringCell(cell)
		case ColSO2Lbs:
			row.SO2Lbs = floatCell(cell)
		case ColNOxLbs:
			row.NOxLbs = floatCell(cell)
		case ColCO2ShortTons:
			row.CO2ShortTons = floatCell(cell)
		case ColLatitude:
			row.Latitude = floatCell(cell)
		case ColLongitude:
			row.Longitude = floatCell(cell)
		case ColDate:
			row.Date = strings.TrimSpace(cell)
		case ColHour:
			row.Hour = strings.TrimSpace(cell)
		case ColYear:
		default:
			if row.Extra == nil {
				row.Extra = make(map[string]string)
			}
			row.Extra[col] = cell
		}
	}
	if !hasFacility {
		return NormalizedRow{}, fmt.Errorf("%w: no %s column", ErrMalformedSource, ColORISPL)
	}
	return row, nil
}
