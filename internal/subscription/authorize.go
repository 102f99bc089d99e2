package subscription

import "time"

// DenialReason classifies why an authorization request was refused.
type DenialReason string

const (
	// ReasonNone marks a granted verdict.
	ReasonNone DenialReason = ""
	// ReasonNoSubscription means the user holds no coverage overlapping the
	// requested range at any tier that could satisfy the request.
	ReasonNoSubscription DenialReason = "no_subscription"
	// ReasonInsufficientCapability means coverage exists only at a tier that
	// does not dominate the requested one (daily coverage for an hourly ask).
	ReasonInsufficientCapability DenialReason = "insufficient_capability"
	// ReasonInsufficientRange means coverage overlaps the requested range but
	// does not span all of it. Clipping to the covered sub-range is an open
	// extension point; the strict behavior denies outright.
	ReasonInsufficientRange DenialReason = "insufficient_range"
)

// Verdict is the per-keyword outcome of an authorization check. When granted,
// the authorized range is exactly the requested range.
type Verdict struct {
	Granted         bool
	Reason          DenialReason
	AuthorizedStart time.Time
	AuthorizedEnd   time.Time
}

// Coverage holds one keyword's merged subscription intervals, kept separate
// per tier because dominance is directional, not an equivalence.
type Coverage struct {
	Hourly []Interval
	Daily  []Interval
}

// BuildCoverage partitions a keyword's subscriptions by tier and merges each
// partition. Rows with an unknown tier or an inverted date range are excluded
// and returned for the caller to log.
func BuildCoverage(subs []Subscription) (Coverage, []Subscription) {
	var hourly, daily []Interval
	var rejected []Subscription

	for _, sub := range subs {
		capability, err := ParseCapability(sub.Capability)
		if err != nil {
			rejected = append(rejected, sub)
			continue
		}
		interval := sub.Interval()
		if err := interval.Validate(); err != nil {
			rejected = append(rejected, sub)
			continue
		}
		switch capability {
		case CapabilityHourly:
			hourly = append(hourly, interval)
		case CapabilityDaily:
			daily = append(daily, interval)
		}
	}

	return Coverage{Hourly: Merge(hourly), Daily: Merge(daily)}, rejected
}

// Empty reports whether the coverage holds no intervals at either tier.
func (c Coverage) Empty() bool {
	return len(c.Hourly) == 0 && len(c.Daily) == 0
}

// Authorize decides whether the coverage grants continuous access at the
// requested tier over the entire inclusive date range [start, end]. Hourly
// coverage satisfies daily requests; daily coverage never satisfies hourly
// ones.
func (c Coverage) Authorize(requested Capability, start, end time.Time) Verdict {
	start, end = DateOf(start), DateOf(end)

	effective := c.effective(requested)
	for _, interval := range effective {
		if interval.Contains(start, end) {
			return Verdict{Granted: true, AuthorizedStart: start, AuthorizedEnd: end}
		}
	}

	if overlapsAny(effective, start, end) {
		return Verdict{Reason: ReasonInsufficientRange}
	}
	if requested == CapabilityHourly && overlapsAny(c.Daily, start, end) {
		return Verdict{Reason: ReasonInsufficientCapability}
	}
	if requested == CapabilityHourly && len(c.Hourly) == 0 && len(c.Daily) > 0 {
		return Verdict{Reason: ReasonInsufficientCapability}
	}
	return Verdict{Reason: ReasonNoSubscription}
}

// effective returns the merged interval set usable for the requested tier.
// The union of two already-merged sets can itself contain overlapping or
// adjacent members, so the dominance union is merged again.
func (c Coverage) effective(requested Capability) []Interval {
	if requested == CapabilityHourly {
		return c.Hourly
	}
	combined := make([]Interval, 0, len(c.Daily)+len(c.Hourly))
	combined = append(combined, c.Daily...)
	combined = append(combined, c.Hourly...)
	return Merge(combined)
}

func overlapsAny(intervals []Interval, start, end time.Time) bool {
	for _, interval := range intervals {
		if interval.Overlaps(start, end) {
			return true
		}
	}
	return false
}
