package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/reference"
)

// Localize turns normalized rows into emission rows with local and UTC times.
//
// Local times are parsed for every row. UTC times and reference coordinates
// are then computed for the subset of rows whose facility has an offset and
// written back by row position, so the output has exactly one row per input
// row in input order. Rows whose facility is absent from the table keep their
// local time but have no UTC time and no coordinates. Their facility codes
// are returned sorted.
func Localize(rows []domain.NormalizedRow, format domain.DateFormat, offsets reference.OffsetTable) ([]domain.EmissionRow, []int, error) {
	local := make([]time.Time, len(rows))
	for i := range rows {
		t, err := format.ParseLocal(rows[i].Date, rows[i].Hour)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		local[i] = t
	}

	type enriched struct {
		pos      int
		utc      time.Time
		lat, lon *float64
	}
	matched := make([]enriched, 0, len(rows))
	missing := make(map[int]struct{})
	for i := range rows {
		fo, ok := offsets.Lookup(rows[i].ORISPL)
		if !ok {
			missing[rows[i].ORISPL] = struct{}{}
			continue
		}
		matched = append(matched, enriched{
			pos: i,
			utc: local[i].Add(time.Duration(fo.OffsetHours * float64(time.Hour))),
			lat: fo.Latitude,
			lon: fo.Longitude,
		})
	}

	out := make([]domain.EmissionRow, len(rows))
	for i := range rows {
		out[i] = rows[i].EmissionRow
		out[i].TimeLocal = local[i]
		out[i].Time = nil
		out[i].Latitude = nil
		out[i].Longitude = nil
	}
	for _, e := range matched {
		utc := e.utc
		out[e.pos].Time = &utc
		out[e.pos].Latitude = e.lat
		out[e.pos].Longitude = e.lon
	}

	codes := make([]int, 0, len(missing))
	for code := range missing {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return out, codes, nil
}
