package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/keywatch/searchvolume/internal/subscription"
	"github.com/keywatch/searchvolume/internal/volume"
)

var (
	errMissingSubscriptions = errors.New("subscription source dependency required")
	errMissingKeywords      = errors.New("keyword source dependency required")
	errMissingVolumes       = errors.New("volume reader dependency required")
	noOpLogger              = zap.NewNop()
)

// ServiceError wraps orchestration failures with a stable operation code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable operation code for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const opExecute = "query.execute"

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// SubscriptionSource loads the raw subscription rows consulted during
// authorization.
type SubscriptionSource interface {
	ListByUserAndKeywords(ctx context.Context, userID int64, keywordIDs []int64) ([]subscription.Subscription, error)
}

// KeywordSource resolves keyword display names.
type KeywordSource interface {
	NamesByIDs(ctx context.Context, keywordIDs []int64) (map[int64]string, error)
}

// VolumeReader serves range reads of hourly samples and daily snapshots.
type VolumeReader interface {
	ReadSamples(ctx context.Context, keywordID int64, start, end time.Time) ([]volume.Sample, error)
	ReadDailySnapshots(ctx context.Context, keywordID int64, start, end time.Time) ([]volume.DailySnapshot, error)
}

// Request is one batch search-volume query: several keywords evaluated
// independently against a single capability and inclusive date range.
type Request struct {
	UserID     int64
	KeywordIDs []int64
	Capability subscription.Capability
	StartDate  time.Time
	EndDate    time.Time
}

// DataPoint is one granted observation: an hourly sample instant or a daily
// snapshot date, with its volume.
type DataPoint struct {
	Timestamp time.Time
	Volume    int64
}

// KeywordResult is the per-keyword slice of a batch response. A denied or
// failed keyword carries its status and an empty data set without affecting
// sibling keywords.
type KeywordResult struct {
	KeywordID   int64
	KeywordName string
	Failed      bool
	Status      string
	Points      []DataPoint
}

// Result aggregates the independent per-keyword outcomes of one batch query.
type Result struct {
	Capability subscription.Capability
	Keywords   []KeywordResult
}

// AllDenied reports whether every requested keyword was refused, the signal
// for an authorization failure at the transport boundary.
func (r Result) AllDenied() bool {
	if len(r.Keywords) == 0 {
		return false
	}
	for _, kw := range r.Keywords {
		if !kw.Failed {
			return false
		}
	}
	return true
}

// DeniedKeywordIDs lists the keyword ids of failed entries.
func (r Result) DeniedKeywordIDs() []int64 {
	var ids []int64
	for _, kw := range r.Keywords {
		if kw.Failed {
			ids = append(ids, kw.KeywordID)
		}
	}
	return ids
}

// ServiceConfig describes the dependencies of the query orchestrator.
type ServiceConfig struct {
	Subscriptions SubscriptionSource
	Keywords      KeywordSource
	Volumes       VolumeReader
	Logger        *zap.Logger
}

// Service composes subscription authorization with volume retrieval. It holds
// no mutable state: each request loads its own working set, so concurrent
// executions need no locking.
type Service struct {
	subscriptions SubscriptionSource
	keywords      KeywordSource
	volumes       VolumeReader
	logger        *zap.Logger
}

// NewService constructs the query orchestrator.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Subscriptions == nil {
		return nil, errMissingSubscriptions
	}
	if cfg.Keywords == nil {
		return nil, errMissingKeywords
	}
	if cfg.Volumes == nil {
		return nil, errMissingVolumes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		subscriptions: cfg.Subscriptions,
		keywords:      cfg.Keywords,
		volumes:       cfg.Volumes,
		logger:        logger,
	}, nil
}

// Execute runs the batch query. Keywords are evaluated independently: one
// keyword's denial never aborts another's evaluation. Only a storage failure
// fails the batch as a whole.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	subs, err := s.subscriptions.ListByUserAndKeywords(ctx, req.UserID, req.KeywordIDs)
	if err != nil {
		s.logError(opExecute, "subscription_load_failed", err, zap.Int64("user_id", req.UserID))
		return Result{}, newServiceError(opExecute, "subscription_load_failed", err)
	}

	names, err := s.keywords.NamesByIDs(ctx, req.KeywordIDs)
	if err != nil {
		s.logError(opExecute, "keyword_load_failed", err, zap.Int64("user_id", req.UserID))
		return Result{}, newServiceError(opExecute, "keyword_load_failed", err)
	}

	subsByKeyword := make(map[int64][]subscription.Subscription, len(req.KeywordIDs))
	for _, sub := range subs {
		subsByKeyword[sub.KeywordID] = append(subsByKeyword[sub.KeywordID], sub)
	}

	result := Result{Capability: req.Capability, Keywords: make([]KeywordResult, 0, len(req.KeywordIDs))}
	for _, keywordID := range req.KeywordIDs {
		entry, err := s.evaluateKeyword(ctx, req, keywordID, subsByKeyword[keywordID], names)
		if err != nil {
			return Result{}, err
		}
		result.Keywords = append(result.Keywords, entry)
	}
	return result, nil
}

func (s *Service) evaluateKeyword(
	ctx context.Context,
	req Request,
	keywordID int64,
	subs []subscription.Subscription,
	names map[int64]string,
) (KeywordResult, error) {
	if len(subs) == 0 {
		return KeywordResult{
			KeywordID: keywordID,
			Failed:    true,
			Status:    fmt.Sprintf("No subscriptions found for the keyword_id %d", keywordID),
			Points:    []DataPoint{},
		}, nil
	}

	coverage, rejected := subscription.BuildCoverage(subs)
	for _, bad := range rejected {
		s.logger.Warn("subscription row excluded from authorization",
			zap.Uint64("subscription_id", bad.ID),
			zap.Int64("user_id", bad.UserID),
			zap.Int64("keyword_id", bad.KeywordID),
			zap.String("subscription_type", bad.Capability))
	}

	verdict := coverage.Authorize(req.Capability, req.StartDate, req.EndDate)
	if !verdict.Granted {
		return KeywordResult{
			KeywordID: keywordID,
			Failed:    true,
			Status:    denialStatus(verdict.Reason, req.Capability, keywordID),
			Points:    []DataPoint{},
		}, nil
	}

	name, ok := names[keywordID]
	if !ok {
		return KeywordResult{
			KeywordID: keywordID,
			Failed:    true,
			Status:    fmt.Sprintf("No keyword found for the keyword_id %d", keywordID),
			Points:    []DataPoint{},
		}, nil
	}

	points, err := s.readPoints(ctx, req.Capability, keywordID, verdict.AuthorizedStart, verdict.AuthorizedEnd)
	if err != nil {
		s.logError(opExecute, "volume_read_failed", err,
			zap.Int64("user_id", req.UserID),
			zap.Int64("keyword_id", keywordID))
		return KeywordResult{}, newServiceError(opExecute, "volume_read_failed", err)
	}

	return KeywordResult{
		KeywordID:   keywordID,
		KeywordName: name,
		Status:      "Successful",
		Points:      points,
	}, nil
}

func (s *Service) readPoints(
	ctx context.Context,
	capability subscription.Capability,
	keywordID int64,
	start, end time.Time,
) ([]DataPoint, error) {
	points := []DataPoint{}

	if capability == subscription.CapabilityHourly {
		samples, err := s.volumes.ReadSamples(ctx, keywordID, start, end.Add(24*time.Hour-time.Second))
		if err != nil {
			return nil, err
		}
		for _, sample := range samples {
			points = append(points, DataPoint{Timestamp: sample.RecordedAt, Volume: sample.Volume})
		}
		return points, nil
	}

	snapshots, err := s.volumes.ReadDailySnapshots(ctx, keywordID, start, end)
	if err != nil {
		return nil, err
	}
	for _, snapshot := range snapshots {
		points = append(points, DataPoint{Timestamp: snapshot.Day, Volume: snapshot.Volume})
	}
	return points, nil
}

func denialStatus(reason subscription.DenialReason, capability subscription.Capability, keywordID int64) string {
	switch reason {
	case subscription.ReasonInsufficientCapability:
		return "Hourly data requires an hourly subscription"
	case subscription.ReasonInsufficientRange:
		return fmt.Sprintf("%s query time range is out of subscription time range.", capability)
	case subscription.ReasonNoSubscription:
		return fmt.Sprintf("No subscription covers the %s query time range", capability)
	default:
		return fmt.Sprintf("No subscriptions found for the keyword_id %d", keywordID)
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("query service error", attrs...)
}
