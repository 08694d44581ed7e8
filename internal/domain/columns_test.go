package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColumns(t *testing.T) {
	t.Run("rate columns are not mass columns", func(t *testing.T) {
		names, ledger := NormalizeColumns([]string{"Facility Name", "ORISPL_CODE", "SO2_LBS", "so2 rate (lbs/mmbtu)"})

		assert.Equal(t, []string{"facility_name", "orispl_code", "so2_lbs", "so2 rate (lbs/mmbtu)"}, names)
		assert.Equal(t, map[string]string{
			"facility_name": "Facility Name",
			"orispl_code":   "ORISPL_CODE",
			"so2_lbs":       "SO2_LBS",
		}, ledger)
	})

	t.Run("EPA 2016 vintage", func(t *testing.T) {
		raw := []string{
			"STATE", "FACILITY_NAME", "ORISPL_CODE", "UNITID", "OP_DATE", "OP_HOUR",
			"OP_TIME", "GLOAD (MW)", "SO2_MASS (lbs)", "SO2_RATE (lbs/mmBtu)",
			"NOX_MASS (lbs)", "NOX_RATE (lbs/mmBtu)", "CO2_MASS (tons)", " HEAT_INPUT (mmBtu) ",
			"FAC_ID", "UNIT_ID",
		}
		names, _ := NormalizeColumns(raw)

		assert.Equal(t, []string{
			"state_name", "facility_name", "orispl_code", "unitid", "date", "hour",
			"op_time", "gload (mw)", "so2_lbs", "so2_rate (lbs/mmbtu)",
			"nox_lbs", "nox_rate (lbs/mmbtu)", "co2_mass (tons)", "heat_input (mmbtu)",
			"fac_id", "unit_id",
		}, names)
	})

	t.Run("older vintage", func(t *testing.T) {
		raw := []string{"Facility ID (ORISPL)", "Facility Id", "Date", "Hour", "SO2 (pounds)", "NOx (pounds)", "CO2 (short tons)", "Facility Latitude", "Facility Longitude", "State"}
		names, ledger := NormalizeColumns(raw)

		assert.Equal(t, []string{"orispl_code", "fac_id", "date", "hour", "so2_lbs", "nox_lbs", "co2_short_tons", "latitude", "longitude", "state_name"}, names)
		assert.Equal(t, "Facility Latitude", ledger["latitude"])
	})

	t.Run("ledger keeps last writer", func(t *testing.T) {
		names, ledger := NormalizeColumns([]string{"OP_DATE", "Report Date"})

		assert.Equal(t, []string{"date", "date"}, names)
		assert.Equal(t, "Report Date", ledger["date"])
	})

	t.Run("unmatched names are lowercased and trimmed only", func(t *testing.T) {
		names, ledger := NormalizeColumns([]string{"  Gross Load  "})

		assert.Equal(t, []string{"gross load"}, names)
		assert.Empty(t, ledger)
	})
}

func TestCanonicalColumn_RuleOrder(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"Facility Name", ColFacilityName},
		{"facility_id_orispl", ColORISPL},
		{"FACILITY_ID", ColFacilityID},
		{"SO2 Pounds", ColSO2Lbs},
		{"SO2 Rate Pounds", "so2 rate pounds"},
		{"NOX (lbs)", ColNOxLbs},
		{"CO2 Short Tons", ColCO2ShortTons},
		{"CO2 Tons", "co2 tons"},
		{"Update Hour", ColDate},
		{"Operating Hour", ColHour},
		{"LAT", ColLatitude},
		{"LON", ColLongitude},
		{"State Code", ColStateName},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, _ := CanonicalColumn(tt.raw)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMatchColumn(t *testing.T) {
	t.Run("last match wins", func(t *testing.T) {
		got, ok := MatchColumn([]string{"NOx (lbs)", "total NOx (lbs)"}, "nox", "lbs")
		assert.True(t, ok)
		assert.Equal(t, "total NOx (lbs)", got)
	})

	t.Run("every term must match", func(t *testing.T) {
		got, ok := MatchColumn([]string{"so2_lbs", "nox_lbs"}, "SO2", "lbs")
		assert.True(t, ok)
		assert.Equal(t, "so2_lbs", got)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := MatchColumn([]string{"so2_lbs", "nox_lbs"}, "co2")
		assert.False(t, ok)
	})
}
