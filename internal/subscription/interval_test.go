package subscription

import (
	"errors"
	"testing"
	"time"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("unexpected date parse error: %v", err)
	}
	return parsed.UTC()
}

func interval(t *testing.T, start, end string) Interval {
	t.Helper()
	made, err := NewInterval(date(t, start), date(t, end))
	if err != nil {
		t.Fatalf("unexpected interval error: %v", err)
	}
	return made
}

func TestNewIntervalRejectsInvertedRange(t *testing.T) {
	_, err := NewInterval(date(t, "2025-01-10"), date(t, "2025-01-05"))
	if !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNewIntervalAllowsSingleDay(t *testing.T) {
	made, err := NewInterval(date(t, "2025-01-05"), date(t, "2025-01-05"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !made.Start.Equal(made.End) {
		t.Fatalf("expected point interval, got %+v", made)
	}
}

func TestMergeUnionsOverlappingIntervals(t *testing.T) {
	merged := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-10"),
		interval(t, "2025-01-07", "2025-01-20"),
	})
	if len(merged) != 1 {
		t.Fatalf("expected one merged interval, got %d", len(merged))
	}
	if !merged[0].Start.Equal(date(t, "2025-01-01")) || !merged[0].End.Equal(date(t, "2025-01-20")) {
		t.Fatalf("unexpected merged interval: %+v", merged[0])
	}
}

func TestMergeTreatsAdjacencyAsOverlap(t *testing.T) {
	merged := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-05"),
		interval(t, "2025-01-06", "2025-01-10"),
	})
	if len(merged) != 1 {
		t.Fatalf("expected adjacency to merge, got %d intervals", len(merged))
	}
	if !merged[0].End.Equal(date(t, "2025-01-10")) {
		t.Fatalf("unexpected merged end: %v", merged[0].End)
	}
}

func TestMergeUnionsSharedEndpoint(t *testing.T) {
	merged := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-05"),
		interval(t, "2025-01-05", "2025-01-10"),
	})
	if len(merged) != 1 {
		t.Fatalf("expected shared endpoint to merge, got %d intervals", len(merged))
	}
	if !merged[0].Start.Equal(date(t, "2025-01-01")) || !merged[0].End.Equal(date(t, "2025-01-10")) {
		t.Fatalf("unexpected merged interval: %+v", merged[0])
	}
}

func TestMergePreservesGaps(t *testing.T) {
	merged := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-05"),
		interval(t, "2025-01-07", "2025-01-10"),
	})
	if len(merged) != 2 {
		t.Fatalf("expected gap to remain, got %d intervals", len(merged))
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	once := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-05"),
		interval(t, "2025-01-04", "2025-01-12"),
		interval(t, "2025-02-01", "2025-02-03"),
	})
	twice := Merge(once)
	if len(once) != len(twice) {
		t.Fatalf("expected identical interval counts, got %d and %d", len(once), len(twice))
	}
	for i := range once {
		if !once[i].Start.Equal(twice[i].Start) || !once[i].End.Equal(twice[i].End) {
			t.Fatalf("merge not idempotent at index %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	forward := Merge([]Interval{
		interval(t, "2025-01-01", "2025-01-05"),
		interval(t, "2025-01-03", "2025-01-08"),
	})
	reversed := Merge([]Interval{
		interval(t, "2025-01-03", "2025-01-08"),
		interval(t, "2025-01-01", "2025-01-05"),
	})
	if len(forward) != 1 || len(reversed) != 1 {
		t.Fatalf("expected single intervals, got %d and %d", len(forward), len(reversed))
	}
	if !forward[0].Start.Equal(reversed[0].Start) || !forward[0].End.Equal(reversed[0].End) {
		t.Fatalf("merge depends on input order: %+v vs %+v", forward[0], reversed[0])
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	input := []Interval{
		interval(t, "2025-01-07", "2025-01-10"),
		interval(t, "2025-01-01", "2025-01-05"),
	}
	Merge(input)
	if !input[0].Start.Equal(date(t, "2025-01-07")) {
		t.Fatalf("input slice was reordered: %+v", input)
	}
}
