package subscription

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidInterval indicates a subscription interval whose start date falls
// after its end date. Such rows are a data-integrity fault and are excluded
// from merging rather than corrupting the merged output.
var ErrInvalidInterval = errors.New("subscription: invalid interval")

const day = 24 * time.Hour

// Interval is an inclusive calendar-date range. Both endpoints are UTC
// midnights.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval normalizes both endpoints to UTC midnight and validates ordering.
func NewInterval(start, end time.Time) (Interval, error) {
	interval := Interval{Start: DateOf(start), End: DateOf(end)}
	if err := interval.Validate(); err != nil {
		return Interval{}, err
	}
	return interval, nil
}

// Validate rejects intervals whose start date falls after their end date.
func (i Interval) Validate() error {
	if i.Start.After(i.End) {
		return fmt.Errorf("%w: start %s after end %s",
			ErrInvalidInterval, i.Start.Format(time.DateOnly), i.End.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether the inclusive range [start, end] lies entirely
// within the interval.
func (i Interval) Contains(start, end time.Time) bool {
	return !start.Before(i.Start) && !end.After(i.End)
}

// Overlaps reports whether the inclusive range [start, end] shares at least
// one day with the interval.
func (i Interval) Overlaps(start, end time.Time) bool {
	return !start.After(i.End) && !end.Before(i.Start)
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// Merge unions overlapping and adjacent intervals into a minimal sorted set.
// Adjacency counts: an interval starting the day after another ends extends
// it. Input intervals must be valid; the input slice is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(a, b int) bool {
		if sorted[a].Start.Equal(sorted[b].Start) {
			return sorted[a].End.Before(sorted[b].End)
		}
		return sorted[a].Start.Before(sorted[b].Start)
	})

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.Start.After(last.End.Add(day)) {
			merged = append(merged, next)
			continue
		}
		if next.End.After(last.End) {
			last.End = next.End
		}
	}
	return merged
}
