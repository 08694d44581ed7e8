package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Fetcher retrieves a remote archive.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Source identifies one monthly state file of hourly emissions.
type Source struct {
	Name     string
	Location string
	Local    bool
	Month    time.Time
	State    string
}

// Locator maps a (month, state) pair to a source, preferring a copy already
// present in the cache directory over the remote archive.
type Locator struct {
	baseURL  string
	cacheDir string
}

// NewLocator creates a locator for the given archive root and cache directory.
func NewLocator(baseURL, cacheDir string) *Locator {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Locator{baseURL: baseURL, cacheDir: cacheDir}
}

// Locate returns the source for a month and two-letter state code.
func (l *Locator) Locate(month time.Time, state string) Source {
	st := strings.ToLower(strings.TrimSpace(state))
	name := fmt.Sprintf("%04d%s%02d.zip", month.Year(), st, int(month.Month()))
	src := Source{
		Name:     name,
		Location: fmt.Sprintf("%shourly/monthly/%04d/%s", l.baseURL, month.Year(), name),
		Month:    month,
		State:    st,
	}
	if l.cacheDir == "" {
		return src
	}
	local := filepath.Join(l.cacheDir, name)
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		src.Location = local
		src.Local = true
	}
	return src
}
