// Package reference loads the static lookup tables joined onto CEMS data: the
// ORL point inventory (stack configurations) and the facility offset table
// (UTC offset and location per ORISPL code).
package reference

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// table is a header plus string records read through gota.
type table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

// readTable reads a comma separated file with every column kept as a string.
// Lines starting with comment are skipped when comment is non-zero.
func readTable(r io.Reader, comment rune) (*table, error) {
	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	}
	if comment != 0 {
		opts = append(opts, dataframe.WithComments(comment))
	}

	df := dataframe.ReadCSV(r, opts...)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv: %w", df.Err)
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: no header")
	}
	t := &table{
		header: records[0],
		rows:   records[1:],
		index:  make(map[string]int, len(records[0])),
	}
	for i, name := range t.header {
		t.index[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	return t, nil
}

// column returns the index of a header, matched case-insensitively.
func (t *table) column(name string) (int, bool) {
	i, ok := t.index[strings.ToUpper(name)]
	return i, ok
}

// require resolves every named column or fails with the first missing one.
func (t *table) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		j, ok := t.column(name)
		if !ok {
			return nil, fmt.Errorf("missing column %s", name)
		}
		idx[i] = j
	}
	return idx, nil
}
