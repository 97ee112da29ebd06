package daterange

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("daterange: end must be after start")

// DateRange is a half-open interval [Start, End) of calendar dates.
// A stay occupies its start date but not its end date, so two stays
// sharing a boundary date do not overlap.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// New normalizes both endpoints to midnight UTC and validates Start < End.
func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Day truncates a timestamp to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether the two half-open intervals share at least one
// night. Touching endpoints are not an overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

// Nights is the stay length in nights; at least 1 for any valid range.
func (dr DateRange) Nights() int {
	nights := int(dr.End.Sub(dr.Start).Hours() / 24)
	if nights < 1 {
		nights = 1
	}
	return nights
}

func (dr DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", dr.Start.Format("2006-01-02"), dr.End.Format("2006-01-02"))
}
