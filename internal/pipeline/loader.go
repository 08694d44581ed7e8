package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/reference"
	"github.com/couchcryptid/cems-etl/internal/store"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
)

const (
	maxFetchAttempts = 3
	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 5 * time.Second
)

var zipMagic = []byte("PK\x03\x04")

// Loader reads one source into a fully localized batch.
type Loader struct {
	fetcher Fetcher
	offsets reference.OffsetTable
	charset *charmap.Charmap
	logger  *slog.Logger
}

// NewLoader creates a Loader. A nil fetcher restricts it to local sources.
// sourceEncoding is "utf-8" or "latin1".
func NewLoader(fetcher Fetcher, offsets reference.OffsetTable, sourceEncoding string, logger *slog.Logger) (*Loader, error) {
	l := &Loader{fetcher: fetcher, offsets: offsets, logger: logger}
	switch strings.ToLower(strings.TrimSpace(sourceEncoding)) {
	case "", "utf-8", "utf8":
	case "latin1", "latin-1", "iso-8859-1":
		l.charset = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported source encoding %q", sourceEncoding)
	}
	return l, nil
}

// Load retrieves, decodes, normalizes and localizes a source. Any error
// leaves nothing to commit.
func (l *Loader) Load(ctx context.Context, src Source) (*store.Batch, error) {
	data, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	r, err := openCSV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedSource, src.Name, err)
	}
	if l.charset != nil {
		r = l.charset.NewDecoder().Reader(r)
	}
	return l.parse(r, src.Name)
}

func (l *Loader) read(ctx context.Context, src Source) ([]byte, error) {
	if src.Local {
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return data, nil
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("%s: not cached locally and remote retrieval is disabled", src.Name)
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		data, err := l.fetcher.Fetch(ctx, src.Location)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrSourceNotFound) || ctx.Err() != nil {
			break
		}
		l.logger.Warn("fetch failed", "source", src.Name, "attempt", attempt, "error", err)
		if attempt == maxFetchAttempts || !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("fetch %s: %w", src.Name, lastErr)
}

// openCSV returns the first CSV entry of a zip archive, or data itself when
// it is not an archive.
func openCSV(data []byte) (io.Reader, error) {
	if !bytes.HasPrefix(data, zipMagic) {
		return bytes.NewReader(data), nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	idx := slices.IndexFunc(zr.File, func(f *zip.File) bool {
		return strings.EqualFold(filepath.Ext(f.Name), ".csv")
	})
	if idx < 0 {
		return nil, errors.New("archive has no csv entry")
	}
	rc, err := zr.File[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zr.File[idx].Name, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zr.File[idx].Name, err)
	}
	return bytes.NewReader(body), nil
}

func (l *Loader) parse(r io.Reader, name string) (*store.Batch, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMalformedSource, name, df.Err)
	}
	records := df.Records()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s: no header", domain.ErrMalformedSource, name)
	}

	columns, ledger := domain.NormalizeColumns(records[0])
	for _, required := range []string{domain.ColDate, domain.ColHour, domain.ColORISPL} {
		if !slices.Contains(columns, required) {
			return nil, fmt.Errorf("%w: %s: no %s column", domain.ErrMalformedSource, name, required)
		}
	}

	rows := make([]domain.NormalizedRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		nr, err := domain.NewNormalizedRow(columns, rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, i+1, err)
		}
		rows = append(rows, nr)
	}

	batch := &store.Batch{Source: name, Columns: batchColumns(columns), Ledger: ledger}
	if len(rows) == 0 {
		l.logger.Warn("source has no rows", "source", name)
		return batch, nil
	}

	format, err := domain.DetectDateFormat(rows[0].Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out, missing, err := Localize(rows, format, l.offsets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(missing) > 0 {
		l.logger.Warn("rows kept without UTC time",
			"source", name,
			"error", &domain.MissingOffsetError{Facilities: missing},
		)
	}

	batch.Rows = out
	batch.MissingOffsets = missing
	l.logger.Debug("source parsed", "source", name, "rows", len(out), "date_format", format.String())
	return batch, nil
}

// batchColumns lays out stored columns: local time first, then the source
// columns without their date parts, then reference location and UTC time.
func batchColumns(normalized []string) []string {
	out := make([]string, 0, len(normalized)+2)
	out = append(out, domain.ColTimeLocal)
	for _, c := range normalized {
		switch c {
		case domain.ColDate, domain.ColHour, domain.ColYear,
			domain.ColLatitude, domain.ColLongitude, domain.ColTimeLocal, domain.ColTime:
			continue
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return append(out, domain.ColLatitude, domain.ColLongitude, domain.ColTime)
}
