package seed

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/keywatch/searchvolume/internal/keyword"
	"github.com/keywatch/searchvolume/internal/subscription"
	"github.com/keywatch/searchvolume/internal/user"
	"github.com/keywatch/searchvolume/internal/volume"
)

const (
	sampleSeed  = 42
	gapKeywords = 3
	gapDays     = 10
)

var errMissingDatabase = errors.New("seed: database handle is required")

var keywordNames = []string{
	"floating shelves",
	"fireplace mantel",
	"wall shelf",
	"butcher block countertop",
	"fireplace surround",
	"work bench",
	"countertop",
	"work table",
	"floating shelf",
	"bed frame",
}

// Options bounds the generated hourly dataset.
type Options struct {
	Start time.Time
	End   time.Time
}

// DefaultOptions covers the first quarter of 2025, matching the reference
// dataset used by the end-to-end checks.
func DefaultOptions() Options {
	return Options{
		Start: time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC),
	}
}

// Run populates the database with the deterministic sample dataset: ten
// keywords with hourly volumes, seven user accounts, and the subscription
// fixtures exercising every authorization shape (overlap, adjacency, mixed
// tiers, missing data). Anchor-hour gaps are punched into a few keywords so
// snapshot derivation has to fall back to the nearest available sample.
func Run(ctx context.Context, db *gorm.DB, opts Options, logger *zap.Logger) error {
	if db == nil {
		return errMissingDatabase
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	keywords := make([]keyword.Keyword, 0, len(keywordNames))
	for index, name := range keywordNames {
		keywords = append(keywords, keyword.Keyword{ID: int64(index + 1), Name: name})
	}
	if err := db.WithContext(ctx).Create(&keywords).Error; err != nil {
		return err
	}
	logger.Info("keywords seeded", zap.Int("count", len(keywords)))

	samples := generateSamples(keywords, opts)
	store, err := volume.NewStore(db)
	if err != nil {
		return err
	}
	if err := store.InsertSamples(ctx, samples); err != nil {
		return err
	}
	logger.Info("hourly samples seeded", zap.Int("count", len(samples)))

	users, subs := fixtures()
	if err := db.WithContext(ctx).Create(&users).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&subs).Error; err != nil {
		return err
	}
	logger.Info("users and subscriptions seeded",
		zap.Int("users", len(users)),
		zap.Int("subscriptions", len(subs)))
	return nil
}

// generateSamples produces one sample per keyword per hour with volumes in
// [100, 5000), then removes clusters of hours around the anchor for a few
// keyword/day pairs.
func generateSamples(keywords []keyword.Keyword, opts Options) []volume.Sample {
	rng := rand.New(rand.NewSource(sampleSeed))

	var hours []time.Time
	for ts := opts.Start; !ts.After(opts.End); ts = ts.Add(time.Hour) {
		hours = append(hours, ts)
	}

	gaps := anchorGaps(rng, keywords, hours)

	var samples []volume.Sample
	for _, kw := range keywords {
		for _, ts := range hours {
			if gaps[gapKey{keywordID: kw.ID, at: ts}] {
				continue
			}
			samples = append(samples, volume.Sample{
				KeywordID:  kw.ID,
				RecordedAt: ts,
				Volume:     int64(100 + rng.Intn(4900)),
			})
		}
	}
	return samples
}

type gapKey struct {
	keywordID int64
	at        time.Time
}

// anchorGaps picks a few keywords and days and removes hour clusters around
// 09:00 on those days.
func anchorGaps(rng *rand.Rand, keywords []keyword.Keyword, hours []time.Time) map[gapKey]bool {
	hourClusters := [][]int{{9}, {8, 9}, {8, 9, 10}, {7, 8, 9, 10}}

	gapped := map[gapKey]bool{}
	for i := 0; i < gapKeywords; i++ {
		keywordID := keywords[rng.Intn(len(keywords))].ID
		for j := 0; j < gapDays; j++ {
			day := hours[rng.Intn(len(hours))]
			cluster := hourClusters[rng.Intn(len(hourClusters))]
			for _, hour := range cluster {
				at := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, time.UTC)
				gapped[gapKey{keywordID: keywordID, at: at}] = true
			}
		}
	}
	return gapped
}

func fixtures() ([]user.User, []subscription.Subscription) {
	users := make([]user.User, 0, 7)
	for id := int64(1); id <= 7; id++ {
		users = append(users, user.User{
			ID:        id,
			Username:  usernameFor(id),
			Email:     usernameFor(id) + "@example.com",
			FirstName: "User",
			LastName:  usernameFor(id)[len("user_"):],
		})
	}

	subs := []subscription.Subscription{
		// Hourly on a single keyword, overlapping intervals.
		sub(1, 1, subscription.CapabilityHourly, "2025-01-01", "2025-01-10"),
		sub(1, 1, subscription.CapabilityHourly, "2025-01-07", "2025-01-20"),
		// Daily on a single keyword, overlapping intervals.
		sub(2, 5, subscription.CapabilityDaily, "2025-01-01", "2025-01-12"),
		sub(2, 5, subscription.CapabilityDaily, "2025-01-10", "2025-01-25"),
		// Hourly across multiple keywords.
		sub(3, 1, subscription.CapabilityHourly, "2025-01-01", "2025-01-10"),
		sub(3, 2, subscription.CapabilityHourly, "2025-01-03", "2025-01-15"),
		// Daily across multiple keywords.
		sub(4, 6, subscription.CapabilityDaily, "2025-01-01", "2025-01-10"),
		sub(4, 7, subscription.CapabilityDaily, "2025-01-03", "2025-01-15"),
		sub(4, 8, subscription.CapabilityDaily, "2025-01-05", "2025-01-12"),
		// Mixed tiers on the same keyword with overlap.
		sub(5, 2, subscription.CapabilityHourly, "2025-01-01", "2025-01-10"),
		sub(5, 2, subscription.CapabilityDaily, "2025-01-04", "2025-01-15"),
		// Mixed tiers across keywords, adjacent hourly intervals on keyword 4.
		sub(6, 2, subscription.CapabilityHourly, "2025-01-01", "2025-01-12"),
		sub(6, 3, subscription.CapabilityDaily, "2025-01-01", "2025-01-15"),
		sub(6, 4, subscription.CapabilityHourly, "2025-01-05", "2025-01-10"),
		sub(6, 4, subscription.CapabilityHourly, "2025-01-10", "2025-01-18"),
		// User 7 holds no subscriptions.
	}
	return users, subs
}

func usernameFor(id int64) string {
	return "user_" + strconv.FormatInt(id, 10)
}

func sub(userID, keywordID int64, capability subscription.Capability, start, end string) subscription.Subscription {
	return subscription.Subscription{
		UserID:     userID,
		KeywordID:  keywordID,
		Capability: capability.String(),
		StartDate:  mustDate(start),
		EndDate:    mustDate(end),
	}
}

func mustDate(value string) time.Time {
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		panic(err)
	}
	return parsed.UTC()
}
