// Package days resolves scan start dates and enumerates the calendar days a
// scan covers. Dates are exchanged as "YYYY_MM_DD" labels, the same keys the
// detector archive uses for its folders and file names.
package days

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDate is returned when a date cannot be parsed or does not exist.
var ErrInvalidDate = errors.New("invalid date")

// labelLayout is the Go reference layout for "YYYY_MM_DD".
const labelLayout = "2006_01_02"

// FromParts returns midnight UTC of the given Gregorian date. The month must be
// in [1,12] and the day must exist in that month and year.
func FromParts(year, month, day int) (time.Time, error) {
	if year < 1 || year > 9999 {
		return time.Time{}, fmt.Errorf("%w: year %d out of range", ErrInvalidDate, year)
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d out of range", ErrInvalidDate, month)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow (Feb 30 -> Mar 2); reject anything it moved.
	if day < 1 || t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: day %d does not exist in %04d-%02d", ErrInvalidDate, day, year, month)
	}
	return t, nil
}

// Parse parses a "YYYY_MM_DD" label.
func Parse(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "_")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYY_MM_DD", ErrInvalidDate, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q is not YYYY_MM_DD", ErrInvalidDate, s)
		}
		nums[i] = n
	}
	return FromParts(nums[0], nums[1], nums[2])
}

// Label returns the canonical "YYYY_MM_DD" key for a day.
func Label(t time.Time) string {
	return t.Format(labelLayout)
}

// FolderName returns the "MM_YYYY" archive folder holding a day's files.
func FolderName(t time.Time) string {
	return t.Format("01_2006")
}

// FileSuffix returns the two-digit day of month used in archive file names.
func FileSuffix(t time.Time) string {
	return t.Format("02")
}

// InRange returns durationDays consecutive days starting at start (inclusive).
// A non-positive duration yields an empty slice.
func InRange(start time.Time, durationDays int) []time.Time {
	if durationDays < 1 {
		return []time.Time{}
	}
	y, m, d := start.Date()
	out := make([]time.Time, 0, durationDays)
	for i := 0; i < durationDays; i++ {
		out = append(out, time.Date(y, m, d+i, 0, 0, 0, 0, time.UTC))
	}
	return out
}

// DaysInRange parses startDate and enumerates durationDays days from it.
func DaysInRange(startDate string, durationDays int) ([]time.Time, error) {
	start, err := Parse(startDate)
	if err != nil {
		return nil, err
	}
	return InRange(start, durationDays), nil
}

// Labels converts days to their "YYYY_MM_DD" labels.
func Labels(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = Label(d)
	}
	return out
}
