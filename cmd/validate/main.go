// Command validate runs offline integrity checks over cached CEMS source
// files and the reference tables they are joined with. It loads each file
// through the same pipeline the service uses and verifies normalization,
// time localization, pivot totals and stack coverage.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -source data/2016md01.zip,data/2016md02.zip \
//	  -offsets data/cemsinfo.csv \
//	  -stacks data/ptinv.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/pipeline"
	"github.com/couchcryptid/cems-etl/internal/reference"
	"github.com/couchcryptid/cems-etl/internal/store"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	sources := flag.String("source", "", "comma separated local CEMS files (.zip or .csv)")
	offsetsPath := flag.String("offsets", "data/cemsinfo.csv", "facility offset table")
	stacksPath := flag.String("stacks", "", "optional ORL stack reference file")
	encoding := flag.String("encoding", "utf-8", "source encoding: utf-8 or latin1")
	verbose := flag.Bool("v", false, "log pipeline debug output")
	flag.Parse()

	paths := sharedcfg.ParseBrokers(*sources)
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	os.Exit(run(paths, *offsetsPath, *stacksPath, *encoding, logger))
}

func run(paths []string, offsetsPath, stacksPath, encoding string, logger *slog.Logger) int {
	fmt.Println("=== CEMS Data Integrity Validation ===")
	fmt.Println()

	offsets, err := reference.LoadOffsetTable(offsetsPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	var stacks []domain.StackRecord
	if stacksPath != "" {
		stacks, err = reference.LoadStackReference(stacksPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	}

	loader, err := pipeline.NewLoader(nil, offsets, encoding, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	st := store.New()
	load := &phase{name: "Phase 1: Source normalization"}
	var batches []*store.Batch
	for _, path := range paths {
		src := pipeline.Source{Name: filepath.Base(path), Location: path, Local: true}
		batch, err := loader.Load(context.Background(), src)
		if err != nil {
			load.errorf("%s: %v", src.Name, err)
			continue
		}
		validateColumns(load, batch)
		batches = append(batches, batch)
		st.Append(batch)
	}

	phases := []*phase{
		load,
		validateLocalization(batches, offsets),
		validatePivotTotals(st),
	}
	if stacks != nil {
		phases = append(phases, validateStackCoverage(st, stacks, logger))
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d files, %d rows, %d offset facilities, %d stack records\n",
		len(batches), st.Len(), len(offsets), len(stacks))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateColumns(p *phase, batch *store.Batch) {
	if len(batch.Rows) == 0 {
		p.errorf("%s: no rows", batch.Source)
	}
	for _, col := range []string{domain.ColTimeLocal, domain.ColORISPL, domain.ColTime} {
		if !slices.Contains(batch.Columns, col) {
			p.errorf("%s: missing column %q", batch.Source, col)
		}
	}
	if _, ok := domain.MatchColumn(batch.Columns, "so2"); !ok {
		p.errorf("%s: no SO2 column (headers: %s)", batch.Source, strings.Join(batch.Columns, ", "))
	}
}

// validateLocalization checks that UTC times are exactly the local time
// shifted by the facility offset, and that rows without UTC time belong to
// facilities missing from the offset table.
func validateLocalization(batches []*store.Batch, offsets reference.OffsetTable) *phase {
	p := &phase{name: "Phase 2: Time localization"}
	for _, b := range batches {
		missing := make(map[int]bool, len(b.MissingOffsets))
		for _, code := range b.MissingOffsets {
			missing[code] = true
		}
		for i, r := range b.Rows {
			if r.TimeLocal.IsZero() {
				p.errorf("%s row %d: no local time", b.Source, i+1)
				continue
			}
			fo, ok := offsets.Lookup(r.ORISPL)
			switch {
			case !ok && r.Time != nil:
				p.errorf("%s row %d: facility %d has UTC time but no offset", b.Source, i+1, r.ORISPL)
			case !ok && !missing[r.ORISPL]:
				p.errorf("%s row %d: facility %d not reported as missing", b.Source, i+1, r.ORISPL)
			case ok && r.Time == nil:
				p.errorf("%s row %d: facility %d has an offset but no UTC time", b.Source, i+1, r.ORISPL)
			case ok:
				want := r.TimeLocal.Add(time.Duration(fo.OffsetHours * float64(time.Hour)))
				if !r.Time.Equal(want) {
					p.errorf("%s row %d: UTC %s, want %s", b.Source, i+1, r.Time.Format(time.RFC3339), want.Format(time.RFC3339))
				}
			}
		}
	}
	return p
}

// validatePivotTotals compares the pivot grand total with a direct row sum.
func validatePivotTotals(st *store.Store) *phase {
	p := &phase{name: "Phase 3: Pivot totals"}
	variable, err := st.ResolveVariable(domain.ColSO2Lbs)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	want := 0.0
	for _, r := range st.Rows() {
		if r.Time == nil {
			continue
		}
		if v, ok := r.Value(variable); ok {
			want += v
		}
	}

	table, err := st.Pivot(store.PivotQuery{Variable: []string{variable}, SplitByUnit: true})
	if err != nil {
		p.errorf("pivot: %v", err)
		return p
	}
	got := 0.0
	rows, cols := table.Dims()
	for i := range rows {
		for j := range cols {
			if v := table.At(i, j); !math.IsNaN(v) {
				got += v
			}
		}
	}
	if math.Abs(got-want) > 1e-6*math.Max(1, math.Abs(want)) {
		p.errorf("%s pivot total %.3f, row total %.3f", variable, got, want)
	}
	return p
}

// validateStackCoverage reports loaded facilities with no stack record and
// checks that meters heights are the feet heights scaled.
func validateStackCoverage(st *store.Store, stacks []domain.StackRecord, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 4: Stack coverage"}
	feet := reference.FacilityHeights(reference.MaxStackHeight(stacks, false, logger))
	meters := reference.FacilityHeights(reference.MaxStackHeight(stacks, true, logger))
	for code, h := range feet {
		if math.Abs(meters[code]-domain.FeetToMeters(h)) > 1e-9 {
			p.errorf("facility %d: %.3f m is not %.3f ft", code, meters[code], h)
		}
	}

	names, _ := st.FacilityNames()
	var loaded []int
	for code := range names {
		loaded = append(loaded, code)
	}
	configs := reference.GroupByFacility(stacks, loaded)
	for _, code := range loaded {
		if len(configs[code]) == 0 {
			p.errorf("facility %d (%s): no stack configuration", code, names[code])
		}
	}

	table, err := st.Pivot(store.PivotQuery{Variable: []string{domain.ColSO2Lbs}, StackHeights: meters})
	if err == nil {
		for _, c := range table.Columns {
			if c.StackHeight == nil {
				p.errorf("facility %d: pivot column has no stack height", c.Facility)
			}
		}
	}
	return p
}
