package volume

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const day = 24 * time.Hour

var (
	errMissingStore = errors.New("volume: snapshot store is required")
	errInvalidRange = errors.New("volume: derivation range start is after end")
)

// SelectDailySample picks the sample closest in time to the anchor instant.
// Equidistant samples resolve to the earlier timestamp, so selection is
// deterministic regardless of input order. The boolean is false when the
// slice is empty: an empty day yields no snapshot, not an error.
func SelectDailySample(samples []Sample, anchor time.Time) (Sample, bool) {
	if len(samples) == 0 {
		return Sample{}, false
	}

	best := samples[0]
	bestDistance := absDistance(best.RecordedAt, anchor)
	for _, candidate := range samples[1:] {
		distance := absDistance(candidate.RecordedAt, anchor)
		if distance < bestDistance ||
			(distance == bestDistance && candidate.RecordedAt.Before(best.RecordedAt)) {
			best = candidate
			bestDistance = distance
		}
	}
	return best, true
}

func absDistance(a, b time.Time) time.Duration {
	if a.Before(b) {
		return b.Sub(a)
	}
	return a.Sub(b)
}

// DeriverConfig describes the dependencies of the snapshot derivation job.
type DeriverConfig struct {
	Store      *Store
	AnchorHour int
	Logger     *zap.Logger
}

// Deriver materializes daily snapshots from hourly samples. It runs on its
// own schedule, decoupled from request handling; the two share only the
// durable snapshot table.
type Deriver struct {
	store      *Store
	anchorHour int
	logger     *zap.Logger
}

// NewDeriver constructs a Deriver with sane defaults.
func NewDeriver(cfg DeriverConfig) (*Deriver, error) {
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	anchorHour := cfg.AnchorHour
	if anchorHour < 0 || anchorHour > 23 {
		anchorHour = 9
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deriver{store: cfg.Store, anchorHour: anchorHour, logger: logger}, nil
}

// DeriveDay recomputes the snapshot for one keyword and one calendar date.
// Re-running over the same samples writes the same snapshot; new samples for
// the date overwrite the prior snapshot. Other dates are never touched.
func (d *Deriver) DeriveDay(ctx context.Context, keywordID int64, date time.Time) (bool, error) {
	dayStart := truncateToDay(date)
	samples, err := d.store.ReadSamples(ctx, keywordID, dayStart, dayStart.Add(day-time.Second))
	if err != nil {
		return false, err
	}

	anchor := dayStart.Add(time.Duration(d.anchorHour) * time.Hour)
	chosen, ok := SelectDailySample(samples, anchor)
	if !ok {
		return false, nil
	}

	snapshot := DailySnapshot{
		KeywordID: keywordID,
		Day:       dayStart,
		AnchorAt:  chosen.RecordedAt,
		Volume:    chosen.Volume,
	}
	if err := d.store.UpsertDailySnapshot(ctx, snapshot); err != nil {
		return false, err
	}
	return true, nil
}

// DeriveRange recomputes snapshots for every keyword over every calendar date
// in the inclusive range and reports how many snapshots were written.
func (d *Deriver) DeriveRange(ctx context.Context, keywordIDs []int64, from, to time.Time) (int, error) {
	from, to = truncateToDay(from), truncateToDay(to)
	if from.After(to) {
		return 0, errInvalidRange
	}

	written := 0
	for _, keywordID := range keywordIDs {
		for date := from; !date.After(to); date = date.Add(day) {
			wrote, err := d.DeriveDay(ctx, keywordID, date)
			if err != nil {
				return written, err
			}
			if wrote {
				written++
			}
		}
		d.logger.Debug("daily snapshots derived",
			zap.Int64("keyword_id", keywordID),
			zap.String("from", from.Format(time.DateOnly)),
			zap.String("to", to.Format(time.DateOnly)))
	}
	return written, nil
}

func truncateToDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
