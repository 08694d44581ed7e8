package reference

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// ORL point inventory headers.
const (
	colFacilityCode = "ORIS_FACILITY_CODE"
	colStackID      = "STACKID"
	colBoilerID     = "ORIS_BOILER_ID"
	colHeight       = "STKHGT"
	colDiameter     = "STKDIAM"
	colTemperature  = "STKTEMP"
	colVelocity     = "STKVEL"
	colPlant        = "PLANT"
	colFIPS         = "FIPS"
	colPlantID      = "PLANTID"
	colPointID      = "POINTID"
)

// LoadStackReference opens an ORL point inventory file and reads its stack records.
func LoadStackReference(path string, logger *slog.Logger) ([]domain.StackRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stack reference: %w", err)
	}
	defer f.Close()

	records, err := ReadStackReference(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// ReadStackReference parses a "#"-commented ORL point inventory. Rows without
// a facility code are dropped, exact duplicates are removed and the -999
// sentinel is filtered out. Heights and diameters stay in feet.
func ReadStackReference(r io.Reader, logger *slog.Logger) ([]domain.StackRecord, error) {
	t, err := readTable(r, '#')
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedReference, err)
	}
	idx, err := t.require(colFacilityCode, colStackID, colBoilerID, colHeight, colDiameter, colTemperature, colVelocity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedReference, err)
	}

	optional := func(rec []string, name string) string {
		if i, ok := t.column(name); ok && !domain.IsMissing(rec[i]) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	seen := make(map[string]struct{}, len(t.rows))
	out := make([]domain.StackRecord, 0, len(t.rows))
	dropped := 0
	for _, rec := range t.rows {
		if domain.IsMissing(rec[idx[0]]) {
			dropped++
			continue
		}
		code, err := domain.ParseFacilityCode(rec[idx[0]])
		if err != nil {
			logger.Warn("skipping stack record", "error", err)
			dropped++
			continue
		}
		if code == domain.MissingFacilityCode {
			dropped++
			continue
		}

		sr := domain.StackRecord{
			ORISPL:      code,
			StackID:     strings.TrimSpace(rec[idx[1]]),
			BoilerID:    strings.TrimSpace(rec[idx[2]]),
			Height:      parseFloatOrNaN(rec[idx[3]]),
			Diameter:    parseFloatOrNaN(rec[idx[4]]),
			Temperature: parseFloatOrNaN(rec[idx[5]]),
			Velocity:    parseFloatOrNaN(rec[idx[6]]),
			Plant:       optional(rec, colPlant),
			FIPS:        optional(rec, colFIPS),
			PlantID:     optional(rec, colPlantID),
			PointID:     optional(rec, colPointID),
		}

		key := fmt.Sprintf("%d|%s|%s|%v|%v|%v|%v", sr.ORISPL, sr.StackID, sr.BoilerID, sr.Height, sr.Diameter, sr.Temperature, sr.Velocity)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, sr)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no rows with a valid facility code", domain.ErrMalformedReference)
	}
	logger.Debug("stack reference loaded", "records", len(out), "dropped", dropped)
	return out, nil
}

// MaxStackHeight reduces records to the tallest stack per facility. When
// inMeters is true heights are converted from feet. Every distinct
// (stack, boiler, temperature, velocity) row of a facility is kept, each
// carrying the facility maximum. Facilities with no valid height are logged
// and skipped.
func MaxStackHeight(records []domain.StackRecord, inMeters bool, logger *slog.Logger) []domain.MaxStackRecord {
	order, groups := groupRecords(records)

	out := make([]domain.MaxStackRecord, 0, len(order))
	for _, code := range order {
		group := groups[code]
		heights := make([]float64, 0, len(group))
		for _, sr := range group {
			if !math.IsNaN(sr.Height) {
				heights = append(heights, sr.Height)
			}
		}
		if len(heights) == 0 {
			logger.Warn("empty stack height group", "orispl_code", code)
			continue
		}

		maxHeight := floats.Max(heights)
		if inMeters {
			maxHeight = domain.FeetToMeters(maxHeight)
		}

		seen := make(map[string]struct{}, len(group))
		for _, sr := range group {
			key := fmt.Sprintf("%s|%s|%v|%v", sr.StackID, sr.BoilerID, sr.Temperature, sr.Velocity)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, domain.MaxStackRecord{
				ORISPL:      code,
				StackID:     sr.StackID,
				BoilerID:    sr.BoilerID,
				Temperature: sr.Temperature,
				Velocity:    sr.Velocity,
				MaxHeight:   maxHeight,
			})
		}
	}
	return out
}

// FacilityHeights collapses MaxStackHeight output to one height per facility.
func FacilityHeights(records []domain.MaxStackRecord) map[int]float64 {
	heights := make(map[int]float64)
	for _, r := range records {
		heights[r.ORISPL] = r.MaxHeight
	}
	return heights
}

// GroupByFacility returns, for each requested facility present in records,
// the distinct stack configurations in first-seen order.
func GroupByFacility(records []domain.StackRecord, facilities []int) map[int][]domain.StackConfig {
	wanted := make(map[int]struct{}, len(facilities))
	for _, f := range facilities {
		wanted[f] = struct{}{}
	}

	out := make(map[int][]domain.StackConfig)
	seen := make(map[string]struct{})
	for _, sr := range records {
		if _, ok := wanted[sr.ORISPL]; !ok {
			continue
		}
		cfg := domain.StackConfig{
			BoilerID:    sr.BoilerID,
			Height:      sr.Height,
			Diameter:    sr.Diameter,
			Temperature: sr.Temperature,
			Velocity:    sr.Velocity,
		}
		key := fmt.Sprintf("%d|%s|%v|%v|%v|%v", sr.ORISPL, cfg.BoilerID, cfg.Height, cfg.Diameter, cfg.Temperature, cfg.Velocity)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out[sr.ORISPL] = append(out[sr.ORISPL], cfg)
	}
	return out
}

func groupRecords(records []domain.StackRecord) ([]int, map[int][]domain.StackRecord) {
	var order []int
	groups := make(map[int][]domain.StackRecord)
	for _, sr := range records {
		if _, ok := groups[sr.ORISPL]; !ok {
			order = append(order, sr.ORISPL)
		}
		groups[sr.ORISPL] = append(groups[sr.ORISPL], sr)
	}
	return order, groups
}

func parseFloatOrNaN(s string) float64 {
	if domain.IsMissing(s) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
