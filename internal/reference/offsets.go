package reference

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/cems-etl/internal/domain"
)

// Offset table headers.
const (
	colOffsetFacility  = "orispl_code"
	colOffsetHours     = "time_offset"
	colOffsetLatitude  = "latitude"
	colOffsetLongitude = "longitude"
)

// OffsetTable maps ORISPL codes to their UTC offset and location.
type OffsetTable map[int]domain.FacilityOffset

// Lookup returns the offset entry for a facility.
func (t OffsetTable) Lookup(orispl int) (domain.FacilityOffset, bool) {
	fo, ok := t[orispl]
	return fo, ok
}

// LoadOffsetTable opens and parses a facility offset table.
func LoadOffsetTable(path string, logger *slog.Logger) (OffsetTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open offset table: %w", err)
	}
	defer f.Close()

	table, err := ReadOffsetTable(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ReadOffsetTable parses a CSV with orispl_code, time_offset, latitude and
// longitude columns. Rows without an offset cannot produce UTC times and are
// left out, so their facilities behave as missing. The first row of a
// duplicated facility wins.
func ReadOffsetTable(r io.Reader, logger *slog.Logger) (OffsetTable, error) {
	t, err := readTable(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedReference, err)
	}
	idx, err := t.require(colOffsetFacility, colOffsetHours, colOffsetLatitude, colOffsetLongitude)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedReference, err)
	}

	table := make(OffsetTable, len(t.rows))
	for _, rec := range t.rows {
		code, err := domain.ParseFacilityCode(rec[idx[0]])
		if err != nil {
			logger.Warn("skipping offset row", "error", err)
			continue
		}
		offset := parseFloatOrNaN(rec[idx[1]])
		if math.IsNaN(offset) {
			logger.Debug("offset row has no time offset", "orispl_code", code)
			continue
		}
		if _, dup := table[code]; dup {
			logger.Warn("duplicate facility in offset table, keeping first", "orispl_code", code)
			continue
		}
		table[code] = domain.FacilityOffset{
			ORISPL:      code,
			OffsetHours: offset,
			Latitude:    floatPtr(parseFloatOrNaN(rec[idx[2]])),
			Longitude:   floatPtr(parseFloatOrNaN(rec[idx[3]])),
		}
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("%w: no facilities with a time offset", domain.ErrMalformedReference)
	}
	return table, nil
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
