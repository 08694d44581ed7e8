package store

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// TimeRange is a half-open UTC interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// PivotQuery selects the variable and shape of a pivot.
type PivotQuery struct {
	// Variable is an exact column name or a list of substrings, see ResolveVariable.
	Variable []string
	// Range restricts rows by UTC time. Nil keeps every row.
	Range *TimeRange
	// SplitByUnit keys columns by (facility, unit) when the selected rows
	// carry more than one distinct unit id.
	SplitByUnit bool
	// StackHeights, when set, annotates columns with the facility's maximum
	// stack height (see reference.FacilityHeights).
	StackHeights map[int]float64
}

// PivotColumn keys one pivot column. UnitID is empty unless the pivot was
// split by unit.
type PivotColumn struct {
	Facility    int
	UnitID      string
	StackHeight *float64
}

// PivotTable is a UTC-time by facility matrix of summed values. Empty cells
// hold NaN.
type PivotTable struct {
	Variable string
	Index    []time.Time
	Columns  []PivotColumn
	Values   *mat.Dense
	// Split reports whether columns are keyed by unit. When a split was
	// requested but every selected row had the same unit id, Split is false
	// and SharedUnit holds that id.
	Split      bool
	SharedUnit string
}

// Dims returns the number of time rows and facility columns.
func (p *PivotTable) Dims() (int, int) {
	return len(p.Index), len(p.Columns)
}

// At returns the cell at time row i and column j.
func (p *PivotTable) At(i, j int) float64 {
	return p.Values.At(i, j)
}

// Column returns the series for a facility and unit. Use an empty unit for
// an unsplit pivot.
func (p *PivotTable) Column(facility int, unitID string) (Series, bool) {
	for j, c := range p.Columns {
		if c.Facility != facility || c.UnitID != unitID {
			continue
		}
		values := make([]float64, len(p.Index))
		mat.Col(values, j, p.Values)
		return Series{Name: p.Variable, Index: slices.Clone(p.Index), Values: values}, true
	}
	return Series{}, false
}

// Series is one time-indexed column.
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

type columnKey struct {
	facility int
	unit     string
}

type cellKey struct {
	at  int64
	col columnKey
}

// Pivot sums the selected variable per UTC hour and facility (and unit when
// split). Rows without a UTC time or without a value are skipped, as are
// columns that end up with no values at all.
func (s *Store) Pivot(q PivotQuery) (*PivotTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	variable, err := s.resolveVariable(q.Variable)
	if err != nil {
		return nil, err
	}

	var (
		units []string
		split bool
	)
	if q.SplitByUnit && s.hasColumn(domain.ColUnitID) {
		units = s.distinctUnits(q.Range, 2)
		split = len(units) > 1
	}

	sums := make(map[cellKey]float64)
	times := make(map[int64]time.Time)
	cols := make(map[columnKey]struct{})
	for i := range s.rows {
		r := &s.rows[i]
		if r.Time == nil {
			continue
		}
		if q.Range != nil && !q.Range.Contains(*r.Time) {
			continue
		}
		v, ok := r.Value(variable)
		if !ok {
			continue
		}
		ck := columnKey{facility: r.ORISPL}
		if split {
			ck.unit = r.Unit()
		}
		at := r.Time.UnixNano()
		times[at] = r.Time.UTC()
		cols[ck] = struct{}{}
		sums[cellKey{at: at, col: ck}] += v
	}

	table := &PivotTable{Variable: variable, Split: split}
	if !split && len(units) == 1 {
		table.SharedUnit = units[0]
	}
	if len(sums) == 0 {
		return table, nil
	}

	stamps := make([]int64, 0, len(times))
	for at := range times {
		stamps = append(stamps, at)
	}
	slices.Sort(stamps)

	keys := make([]columnKey, 0, len(cols))
	for ck := range cols {
		keys = append(keys, ck)
	}
	slices.SortFunc(keys, func(a, b columnKey) int {
		return cmp.Or(cmp.Compare(a.facility, b.facility), cmp.Compare(a.unit, b.unit))
	})

	table.Index = make([]time.Time, len(stamps))
	rowOf := make(map[int64]int, len(stamps))
	for i, at := range stamps {
		table.Index[i] = times[at]
		rowOf[at] = i
	}
	table.Columns = make([]PivotColumn, len(keys))
	colOf := make(map[columnKey]int, len(keys))
	for j, ck := range keys {
		pc := PivotColumn{Facility: ck.facility, UnitID: ck.unit}
		if h, ok := q.StackHeights[ck.facility]; ok {
			pc.StackHeight = &h
		}
		table.Columns[j] = pc
		colOf[ck] = j
	}

	data := make([]float64, len(stamps)*len(keys))
	for i := range data {
		data[i] = math.NaN()
	}
	table.Values = mat.NewDense(len(stamps), len(keys), data)
	for k, v := range sums {
		table.Values.Set(rowOf[k.at], colOf[k.col], v)
	}
	return table, nil
}

// distinctUnits returns up to limit distinct unit ids among rows with a UTC
// time inside r. A row without a unit counts as the empty id.
func (s *Store) distinctUnits(r *TimeRange, limit int) []string {
	var units []string
	for i := range s.rows {
		row := &s.rows[i]
		if row.Time == nil || (r != nil && !r.Contains(*row.Time)) {
			continue
		}
		if u := row.Unit(); !slices.Contains(units, u) {
			units = append(units, u)
			if len(units) == limit {
				break
			}
		}
	}
	return units
}

// VariableQuery selects one facility's series.
type VariableQuery struct {
	Variable []string
	Facility int
	// UnitID selects a single unit; empty or domain.NoUnit sums all units.
	UnitID string
	Range  *TimeRange
}

// GetVariable returns the time series of a variable for one facility.
func (s *Store) GetVariable(q VariableQuery) (Series, error) {
	unit := q.UnitID
	if unit == domain.NoUnit {
		unit = ""
	}
	table, err := s.Pivot(PivotQuery{Variable: q.Variable, Range: q.Range, SplitByUnit: unit != ""})
	if err != nil {
		return Series{}, err
	}
	lookup := unit
	if unit != "" && !table.Split {
		if unit != table.SharedUnit {
			return Series{}, &domain.KeyNotFoundError{Facility: q.Facility, UnitID: unit}
		}
		lookup = ""
	}
	series, ok := table.Column(q.Facility, lookup)
	if !ok {
		return Series{}, &domain.KeyNotFoundError{Facility: q.Facility, UnitID: unit}
	}
	return series, nil
}

// FacilityLocations returns the last known latitude/longitude per facility.
// The second result is false when no load produced a latitude column.
func (s *Store) FacilityLocations() (map[int]domain.LatLon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasColumn(domain.ColLatitude) {
		return nil, false
	}
	out := make(map[int]domain.LatLon)
	for i := range s.rows {
		r := &s.rows[i]
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		out[r.ORISPL] = domain.LatLon{Lat: *r.Latitude, Lon: *r.Longitude}
	}
	return out, true
}

// FacilityNames returns the last known name per facility. Like
// FacilityLocations it requires a latitude column.
func (s *Store) FacilityNames() (map[int]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasColumn(domain.ColLatitude) {
		return nil, false
	}
	out := make(map[int]string)
	for i := range s.rows {
		r := &s.rows[i]
		if r.FacilityName == nil {
			continue
		}
		out[r.ORISPL] = *r.FacilityName
	}
	return out, true
}
