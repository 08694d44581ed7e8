package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedReference marks a reference file that lacks a required
	// column or has no usable rows after facility-code cleaning.
	ErrMalformedReference = errors.New("malformed reference file")

	// ErrMalformedSource marks an emissions file that cannot be normalized,
	// e.g. it has no date, hour or facility column.
	ErrMalformedSource = errors.New("malformed emissions source")

	// ErrSourceNotFound marks a remote archive that does not exist, e.g. a
	// month the agency has not published. It is not retried.
	ErrSourceNotFound = errors.New("source not found")

	ErrUnrecognizedDateFormat = errors.New("unrecognized date format")
	ErrMissingOffsetData      = errors.New("missing offset data")
	ErrVariableNotFound       = errors.New("variable not found")
	ErrKeyNotFound            = errors.New("key not found")
)

// UnrecognizedDateFormatError reports a date sample that is neither
// year-first nor month-first.
type UnrecognizedDateFormatError struct {
	Sample string
}

func (e *UnrecognizedDateFormatError) Error() string {
	return fmt.Sprintf("unrecognized date format: %q", e.Sample)
}

func (e *UnrecognizedDateFormatError) Is(target error) bool {
	return target == ErrUnrecognizedDateFormat
}

// MissingOffsetError lists facilities present in emissions rows but absent
// from the offset table. It is informational: the rows are kept with no UTC time.
type MissingOffsetError struct {
	Facilities []int
}

func (e *MissingOffsetError) Error() string {
	codes := make([]string, len(e.Facilities))
	for i, f := range e.Facilities {
		codes[i] = fmt.Sprint(f)
	}
	return fmt.Sprintf("missing offset data for facilities: %s", strings.Join(codes, ","))
}

func (e *MissingOffsetError) Is(target error) bool {
	return target == ErrMissingOffsetData
}

// VariableNotFoundError reports match terms that resolved to no column.
type VariableNotFoundError struct {
	Terms []string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable not found: no column matches %q", e.Terms)
}

func (e *VariableNotFoundError) Is(target error) bool {
	return target == ErrVariableNotFound
}

// KeyNotFoundError reports a facility (and optional unit) absent from a pivot.
type KeyNotFoundError struct {
	Facility int
	UnitID   string
}

func (e *KeyNotFoundError) Error() string {
	if e.UnitID == "" {
		return fmt.Sprintf("key not found: facility %d", e.Facility)
	}
	return fmt.Sprintf("key not found: facility %d unit %q", e.Facility, e.UnitID)
}

func (e *KeyNotFoundError) Is(target error) bool {
	return target == ErrKeyNotFound
}
