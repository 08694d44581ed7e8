// Package store accumulates normalized CEMS rows across monthly loads and
// answers time-indexed queries over them.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/google/uuid"
)

const infoHeader = "Data from continuous emission monitoring systems (CEMS)\n"

// Batch is one source file after normalization and localization. It is built
// completely before being handed to Append, so a failed load never leaves
// partial rows behind.
type Batch struct {
	Source         string
	Columns        []string
	Ledger         map[string]string
	Rows           []domain.EmissionRow
	MissingOffsets []int
}

// LoadRecord describes one committed batch.
type LoadRecord struct {
	ID             uuid.UUID `json:"id"`
	Source         string    `json:"source"`
	Rows           int       `json:"rows"`
	MissingOffsets []int     `json:"missing_offsets,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// Store is the in-memory emissions table. It is safe for concurrent use;
// queries observe either all or none of a batch.
type Store struct {
	mu       sync.RWMutex
	rows     []domain.EmissionRow
	columns  []string
	colSet   map[string]struct{}
	namehash map[string]string
	history  []LoadRecord
	info     strings.Builder
	ready    atomic.Bool
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		colSet:   make(map[string]struct{}),
		namehash: make(map[string]string),
	}
	s.info.WriteString(infoHeader)
	return s
}

// Append commits a batch. Columns are merged in first-seen order and ledger
// entries overwrite earlier ones for the same canonical name.
func (s *Store) Append(b *Batch) LoadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range b.Columns {
		if _, ok := s.colSet[c]; ok {
			continue
		}
		s.colSet[c] = struct{}{}
		s.columns = append(s.columns, c)
	}
	for canonical, raw := range b.Ledger {
		s.namehash[canonical] = raw
	}
	s.rows = append(s.rows, b.Rows...)

	rec := LoadRecord{
		ID:             uuid.New(),
		Source:         b.Source,
		Rows:           len(b.Rows),
		MissingOffsets: slices.Clone(b.MissingOffsets),
		LoadedAt:       domain.Now(),
	}
	s.history = append(s.history, rec)
	fmt.Fprintf(&s.info, "File retrieved: %s\n", b.Source)
	s.ready.Store(true)
	return rec
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Rows returns the stored rows in insertion order.
func (s *Store) Rows() []domain.EmissionRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.rows)
}

// Columns returns the normalized column names in first-seen order.
func (s *Store) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.columns)
}

// HasColumn reports whether any load produced the named column.
func (s *Store) HasColumn(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasColumn(name)
}

func (s *Store) hasColumn(name string) bool {
	_, ok := s.colSet[name]
	return ok
}

// Namehash returns the original source header of every renamed column,
// keyed by canonical name.
func (s *Store) Namehash() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.namehash))
	for k, v := range s.namehash {
		out[k] = v
	}
	return out
}

// History returns one record per committed batch.
func (s *Store) History() []LoadRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.history)
}

// Info returns a human readable description of the loaded sources.
func (s *Store) Info() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.String()
}

// MatchColumn returns the last stored column whose name contains every term.
func (s *Store) MatchColumn(terms ...string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.MatchColumn(s.columns, terms...)
}

// ResolveVariable maps a variable selector to a column name. A single term
// naming an existing column is used as is, otherwise the terms are matched
// as substrings.
func (s *Store) ResolveVariable(terms ...string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveVariable(terms)
}

func (s *Store) resolveVariable(terms []string) (string, error) {
	if len(terms) == 0 {
		return "", &domain.VariableNotFoundError{}
	}
	if len(terms) == 1 && s.hasColumn(terms[0]) {
		return terms[0], nil
	}
	if name, ok := domain.MatchColumn(s.columns, terms...); ok {
		return name, nil
	}
	return "", &domain.VariableNotFoundError{Terms: terms}
}

// CheckReadiness returns nil once at least one batch has been committed.
func (s *Store) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no emissions data loaded yet")
	}
	return nil
}
