package reference

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testORL = `#ORL POINT
#TYPE Point Source Inventory
#COUNTRY US
FIPS,PLANTID,POINTID,STACKID,PLANT,ORIS_FACILITY_CODE,ORIS_BOILER_ID,STKHGT,STKDIAM,STKTEMP,STKVEL
24003,0011,1,ST1,Brandon Shores,602,1,400,25,300,80
24003,0011,1,ST1,Brandon Shores,602,1,400,25,300,80
24003,0011,2,ST2,Brandon Shores,602,2,700,30,310,85
24005,0012,1,S1,Crane,1552,1,350,20,290,60
24005,0013,1,S9,Unknown,-999,1,100,5,200,10
24005,0014,1,S10,No Code,,1,100,5,200,10
`

func TestReadStackReference(t *testing.T) {
	records, err := ReadStackReference(strings.NewReader(testORL), slog.Default())
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, domain.StackRecord{
		ORISPL: 602, StackID: "ST1", BoilerID: "1",
		Height: 400, Diameter: 25, Temperature: 300, Velocity: 80,
		Plant: "Brandon Shores", FIPS: "24003", PlantID: "0011", PointID: "1",
	}, records[0])
	assert.Equal(t, 700.0, records[1].Height)
	assert.Equal(t, 1552, records[2].ORISPL)

	for _, r := range records {
		assert.NotEqual(t, domain.MissingFacilityCode, r.ORISPL)
	}
}

func TestReadStackReference_Malformed(t *testing.T) {
	t.Run("missing required column", func(t *testing.T) {
		_, err := ReadStackReference(strings.NewReader("ORIS_FACILITY_CODE,STACKID\n602,ST1\n"), slog.Default())
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedReference)
		assert.Contains(t, err.Error(), "ORIS_BOILER_ID")
	})

	t.Run("all rows filtered", func(t *testing.T) {
		in := "ORIS_FACILITY_CODE,STACKID,ORIS_BOILER_ID,STKHGT,STKDIAM,STKTEMP,STKVEL\n-999,S,1,1,1,1,1\n,S,1,1,1,1,1\n"
		_, err := ReadStackReference(strings.NewReader(in), slog.Default())
		assert.ErrorIs(t, err, domain.ErrMalformedReference)
	})
}

func TestLoadStackReference_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptinv.txt")
	require.NoError(t, os.WriteFile(path, []byte(testORL), 0o600))

	records, err := LoadStackReference(path, slog.Default())
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = LoadStackReference(filepath.Join(t.TempDir(), "absent.txt"), slog.Default())
	assert.Error(t, err)
}

func TestMaxStackHeight(t *testing.T) {
	records := []domain.StackRecord{
		{ORISPL: 602, StackID: "ST1", BoilerID: "1", Height: 400, Diameter: 25, Temperature: 300, Velocity: 80},
		{ORISPL: 602, StackID: "ST2", BoilerID: "2", Height: 700, Diameter: 30, Temperature: 310, Velocity: 85},
		{ORISPL: 602, StackID: "ST2", BoilerID: "2", Height: 650, Diameter: 28, Temperature: 310, Velocity: 85},
		{ORISPL: 1552, StackID: "S1", BoilerID: "1", Height: 350, Diameter: 20, Temperature: 290, Velocity: 60},
	}

	t.Run("feet unchanged", func(t *testing.T) {
		got := MaxStackHeight(records, false, slog.Default())

		require.Len(t, got, 3)
		assert.Equal(t, domain.MaxStackRecord{ORISPL: 602, StackID: "ST1", BoilerID: "1", Temperature: 300, Velocity: 80, MaxHeight: 700}, got[0])
		assert.Equal(t, domain.MaxStackRecord{ORISPL: 602, StackID: "ST2", BoilerID: "2", Temperature: 310, Velocity: 85, MaxHeight: 700}, got[1])
		assert.Equal(t, 350.0, got[2].MaxHeight, "single record facility still reduced")
	})

	t.Run("meters scale every maximum", func(t *testing.T) {
		feet := FacilityHeights(MaxStackHeight(records, false, slog.Default()))
		meters := FacilityHeights(MaxStackHeight(records, true, slog.Default()))

		require.Len(t, meters, len(feet))
		for code, h := range feet {
			assert.Equal(t, h*domain.MetersPerFoot, meters[code])
		}
	})

	t.Run("already meters with meters false is identity", func(t *testing.T) {
		inMeters := []domain.StackRecord{{ORISPL: 1, Height: 121.92}, {ORISPL: 1, Height: 30}}
		got := FacilityHeights(MaxStackHeight(inMeters, false, slog.Default()))
		assert.Equal(t, map[int]float64{1: 121.92}, got)
	})

	t.Run("empty height group skipped", func(t *testing.T) {
		got := MaxStackHeight([]domain.StackRecord{{ORISPL: 9, Height: math.NaN()}}, true, slog.Default())
		assert.Empty(t, got)
	})
}

func TestGroupByFacility(t *testing.T) {
	records, err := ReadStackReference(strings.NewReader(testORL), slog.Default())
	require.NoError(t, err)

	got := GroupByFacility(records, []int{602, 7})

	require.Len(t, got, 1)
	assert.Equal(t, []domain.StackConfig{
		{BoilerID: "1", Height: 400, Diameter: 25, Temperature: 300, Velocity: 80},
		{BoilerID: "2", Height: 700, Diameter: 30, Temperature: 310, Velocity: 85},
	}, got[602])
}

const testOffsets = `orispl_code,facility_name,latitude,longitude,time_offset
602,Brandon Shores,39.1794,-76.5389,5
1552,C P Crane,39.3261,-76.3660,5
1571,Chalk Point,38.5444,-76.6861,
602,Duplicate,0,0,6
`

func TestReadOffsetTable(t *testing.T) {
	table, err := ReadOffsetTable(strings.NewReader(testOffsets), slog.Default())
	require.NoError(t, err)

	require.Len(t, table, 2)
	fo, ok := table.Lookup(602)
	require.True(t, ok)
	assert.Equal(t, 5.0, fo.OffsetHours)
	require.NotNil(t, fo.Latitude)
	assert.Equal(t, 39.1794, *fo.Latitude)
	assert.Equal(t, -76.5389, *fo.Longitude)

	_, ok = table.Lookup(1571)
	assert.False(t, ok, "rows without an offset are dropped")
}

func TestReadOffsetTable_MissingColumn(t *testing.T) {
	_, err := ReadOffsetTable(strings.NewReader("orispl_code,latitude,longitude\n602,39,-76\n"), slog.Default())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedReference)
	assert.Contains(t, err.Error(), "time_offset")
}
