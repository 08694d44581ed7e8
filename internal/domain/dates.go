package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxMonthSteps caps month enumeration so a bad range cannot loop forever.
const MaxMonthSteps = 100

// DateFormat identifies one of the two date layouts found in CEMS files.
type DateFormat int

const (
	// YearFirst is YYYY-MM-DD.
	YearFirst DateFormat = iota + 1
	// MonthFirst is MM-DD-YYYY.
	MonthFirst
)

func (f DateFormat) String() string {
	switch f {
	case YearFirst:
		return "YYYY-MM-DD HH"
	case MonthFirst:
		return "MM-DD-YYYY HH"
	default:
		return "unknown"
	}
}

// Layout returns the time.Parse layout for "<date> <hour>". Single-digit
// months, days and hours are accepted.
func (f DateFormat) Layout() string {
	switch f {
	case YearFirst:
		return "2006-1-2 15"
	case MonthFirst:
		return "1-2-2006 15"
	default:
		return ""
	}
}

// ParseLocal combines a date cell and an hour cell into a local timestamp.
// The result carries no zone information and is labelled UTC.
func (f DateFormat) ParseLocal(date, hour string) (time.Time, error) {
	layout := f.Layout()
	if layout == "" {
		return time.Time{}, fmt.Errorf("parse local time: %w", ErrUnrecognizedDateFormat)
	}
	t, err := time.Parse(layout, strings.TrimSpace(date)+" "+strings.TrimSpace(hour))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse local time %q %q: %w", date, hour, err)
	}
	return t, nil
}

// DetectDateFormat sniffs the layout of a date sample by splitting on "-".
// A four-character first segment means year first; a four-character last
// segment means month first. Anything else is rejected rather than guessed.
func DetectDateFormat(sample string) (DateFormat, error) {
	parts := strings.Split(strings.TrimSpace(sample), "-")
	if len(parts) != 3 {
		return 0, &UnrecognizedDateFormatError{Sample: sample}
	}
	if len(parts[0]) == 4 {
		return YearFirst, nil
	}
	last, _, _ := strings.Cut(parts[2], " ")
	if len(last) == 4 {
		return MonthFirst, nil
	}
	return 0, &UnrecognizedDateFormatError{Sample: sample}
}

// AddOneMonth advances t by one calendar month. When the next month is
// shorter than t's day of month the day is clamped to the month's last day,
// using the simple leap rule (year divisible by 4).
func AddOneMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if year%4 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// MonthRange enumerates start, start+1 month, ... while not after end. At
// most MaxMonthSteps steps are taken past start.
func MonthRange(start, end time.Time) []time.Time {
	months := []time.Time{start}
	for step := 0; step < MaxMonthSteps; step++ {
		next := AddOneMonth(months[len(months)-1])
		if next.After(end) {
			break
		}
		months = append(months, next)
	}
	return months
}
