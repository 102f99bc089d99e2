package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/keywatch/searchvolume/internal/subscription"
	"github.com/keywatch/searchvolume/internal/volume"
)

type fakeSubscriptions struct {
	subs []subscription.Subscription
	err  error
}

func (f *fakeSubscriptions) ListByUserAndKeywords(_ context.Context, _ int64, _ []int64) ([]subscription.Subscription, error) {
	return f.subs, f.err
}

type fakeKeywords struct {
	names map[int64]string
	err   error
}

func (f *fakeKeywords) NamesByIDs(_ context.Context, _ []int64) (map[int64]string, error) {
	return f.names, f.err
}

type fakeVolumes struct {
	samples   map[int64][]volume.Sample
	snapshots map[int64][]volume.DailySnapshot
	err       error
}

func (f *fakeVolumes) ReadSamples(_ context.Context, keywordID int64, _, _ time.Time) ([]volume.Sample, error) {
	return f.samples[keywordID], f.err
}

func (f *fakeVolumes) ReadDailySnapshots(_ context.Context, keywordID int64, _, _ time.Time) ([]volume.DailySnapshot, error) {
	return f.snapshots[keywordID], f.err
}

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.DateOnly, value)
	if err != nil {
		t.Fatalf("unexpected date parse error: %v", err)
	}
	return parsed.UTC()
}

func fixtureSub(t *testing.T, keywordID int64, capability subscription.Capability, start, end string) subscription.Subscription {
	t.Helper()
	return subscription.Subscription{
		UserID:     1,
		KeywordID:  keywordID,
		Capability: capability.String(),
		StartDate:  date(t, start),
		EndDate:    date(t, end),
	}
}

func newTestService(t *testing.T, subs SubscriptionSource, keywords KeywordSource, volumes VolumeReader) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Subscriptions: subs,
		Keywords:      keywords,
		Volumes:       volumes,
	})
	if err != nil {
		t.Fatalf("unexpected service construction error: %v", err)
	}
	return service
}

func TestExecuteIsolatesKeywordDenials(t *testing.T) {
	subs := &fakeSubscriptions{subs: []subscription.Subscription{
		fixtureSub(t, 1, subscription.CapabilityHourly, "2025-01-01", "2025-01-31"),
	}}
	keywords := &fakeKeywords{names: map[int64]string{1: "floating shelves", 2: "bed frame"}}
	volumes := &fakeVolumes{samples: map[int64][]volume.Sample{
		1: {{KeywordID: 1, RecordedAt: date(t, "2025-01-10").Add(5 * time.Hour), Volume: 1200}},
	}}

	result, err := newTestService(t, subs, keywords, volumes).Execute(context.Background(), Request{
		UserID:     1,
		KeywordIDs: []int64{1, 2},
		Capability: subscription.CapabilityHourly,
		StartDate:  date(t, "2025-01-10"),
		EndDate:    date(t, "2025-01-12"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Keywords) != 2 {
		t.Fatalf("expected two entries, got %d", len(result.Keywords))
	}

	granted := result.Keywords[0]
	if granted.Failed || granted.Status != "Successful" {
		t.Fatalf("expected keyword 1 granted, got %+v", granted)
	}
	if granted.KeywordName != "floating shelves" {
		t.Fatalf("expected keyword name resolved, got %q", granted.KeywordName)
	}
	if len(granted.Points) != 1 || granted.Points[0].Volume != 1200 {
		t.Fatalf("unexpected data points: %+v", granted.Points)
	}

	denied := result.Keywords[1]
	if !denied.Failed {
		t.Fatalf("expected keyword 2 denied")
	}
	if denied.Status != "No subscriptions found for the keyword_id 2" {
		t.Fatalf("unexpected denial status: %q", denied.Status)
	}
	if len(denied.Points) != 0 {
		t.Fatalf("denied keyword must carry no data")
	}

	if result.AllDenied() {
		t.Fatalf("a mixed batch must not report all denied")
	}
}

func TestExecuteAllDenied(t *testing.T) {
	subs := &fakeSubscriptions{}
	keywords := &fakeKeywords{names: map[int64]string{}}
	volumes := &fakeVolumes{}

	result, err := newTestService(t, subs, keywords, volumes).Execute(context.Background(), Request{
		UserID:     7,
		KeywordIDs: []int64{3, 4},
		Capability: subscription.CapabilityDaily,
		StartDate:  date(t, "2025-01-01"),
		EndDate:    date(t, "2025-01-05"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.AllDenied() {
		t.Fatalf("expected every keyword denied")
	}
	deniedIDs := result.DeniedKeywordIDs()
	if len(deniedIDs) != 2 || deniedIDs[0] != 3 || deniedIDs[1] != 4 {
		t.Fatalf("unexpected denied ids: %v", deniedIDs)
	}
}

func TestExecuteDailyReadsSnapshots(t *testing.T) {
	subs := &fakeSubscriptions{subs: []subscription.Subscription{
		fixtureSub(t, 5, subscription.CapabilityDaily, "2025-01-01", "2025-01-25"),
	}}
	keywords := &fakeKeywords{names: map[int64]string{5: "fireplace surround"}}
	volumes := &fakeVolumes{snapshots: map[int64][]volume.DailySnapshot{
		5: {
			{KeywordID: 5, Day: date(t, "2025-01-02"), Volume: 700},
			{KeywordID: 5, Day: date(t, "2025-01-03"), Volume: 800},
		},
	}}

	result, err := newTestService(t, subs, keywords, volumes).Execute(context.Background(), Request{
		UserID:     2,
		KeywordIDs: []int64{5},
		Capability: subscription.CapabilityDaily,
		StartDate:  date(t, "2025-01-02"),
		EndDate:    date(t, "2025-01-03"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := result.Keywords[0]
	if entry.Failed {
		t.Fatalf("expected grant, got %+v", entry)
	}
	if len(entry.Points) != 2 || entry.Points[1].Volume != 800 {
		t.Fatalf("unexpected snapshot points: %+v", entry.Points)
	}
}

func TestExecuteDenialStatuses(t *testing.T) {
	subs := &fakeSubscriptions{subs: []subscription.Subscription{
		fixtureSub(t, 1, subscription.CapabilityDaily, "2025-01-05", "2025-01-15"),
	}}
	keywords := &fakeKeywords{names: map[int64]string{1: "floating shelves"}}
	service := newTestService(t, subs, keywords, &fakeVolumes{})

	hourly, err := service.Execute(context.Background(), Request{
		UserID:     1,
		KeywordIDs: []int64{1},
		Capability: subscription.CapabilityHourly,
		StartDate:  date(t, "2025-01-06"),
		EndDate:    date(t, "2025-01-10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hourly.Keywords[0].Status != "Hourly data requires an hourly subscription" {
		t.Fatalf("unexpected capability denial status: %q", hourly.Keywords[0].Status)
	}

	partial, err := service.Execute(context.Background(), Request{
		UserID:     1,
		KeywordIDs: []int64{1},
		Capability: subscription.CapabilityDaily,
		StartDate:  date(t, "2025-01-01"),
		EndDate:    date(t, "2025-01-10"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if partial.Keywords[0].Status != "DAILY query time range is out of subscription time range." {
		t.Fatalf("unexpected range denial status: %q", partial.Keywords[0].Status)
	}
}

func TestExecuteUnknownKeywordNameIsPerKeywordError(t *testing.T) {
	subs := &fakeSubscriptions{subs: []subscription.Subscription{
		fixtureSub(t, 42, subscription.CapabilityDaily, "2025-01-01", "2025-01-31"),
	}}
	keywords := &fakeKeywords{names: map[int64]string{}}

	result, err := newTestService(t, subs, keywords, &fakeVolumes{}).Execute(context.Background(), Request{
		UserID:     1,
		KeywordIDs: []int64{42},
		Capability: subscription.CapabilityDaily,
		StartDate:  date(t, "2025-01-01"),
		EndDate:    date(t, "2025-01-05"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry := result.Keywords[0]
	if !entry.Failed {
		t.Fatalf("expected unknown keyword to fail")
	}
	if entry.Status != "No keyword found for the keyword_id 42" {
		t.Fatalf("unexpected status: %q", entry.Status)
	}
}

func TestExecuteStorageFailureFailsBatch(t *testing.T) {
	subs := &fakeSubscriptions{err: errors.New("connection refused")}
	service := newTestService(t, subs, &fakeKeywords{names: map[int64]string{}}, &fakeVolumes{})

	_, err := service.Execute(context.Background(), Request{
		UserID:     1,
		KeywordIDs: []int64{1},
		Capability: subscription.CapabilityDaily,
		StartDate:  date(t, "2025-01-01"),
		EndDate:    date(t, "2025-01-05"),
	})
	if err == nil {
		t.Fatalf("expected storage failure to surface")
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("expected ServiceError, got %T", err)
	}
	if serviceErr.Code() != "query.execute.subscription_load_failed" {
		t.Fatalf("unexpected error code: %q", serviceErr.Code())
	}
}
