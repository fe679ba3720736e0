package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tagattend/internal/logger"
	"tagattend/internal/metrics"
	"tagattend/internal/tabular"
)

// Store persists scans. Append must run the read of the person's latest record
// for at.Date and the insert of the new record as one section serialized per
// person, and return ErrUnknownTag when tagID has no student.
type Store interface {
	Append(ctx context.Context, tagID int64, at Stamp, next func(last Direction, found bool) Direction) (Record, error)
	Query(ctx context.Context, req tabular.Request) (tabular.Result[Row], error)
}

// AuditSink receives unknown-tag scans.
type AuditSink interface {
	RecordUnknownTag(ctx context.Context, tagID int64, date, clock string) error
}

// Clock supplies the current time in the deployment's zone.
type Clock interface {
	Now() time.Time
}

// ZoneClock reads the system clock in a fixed location.
type ZoneClock struct {
	Location *time.Location
}

func (c ZoneClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Outcome is the non-error result of a scan.
type Outcome int

const (
	Recorded Outcome = iota + 1
	UnknownTag
)

func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case UnknownTag:
		return "unknown_tag"
	}
	return "invalid"
}

// Result describes a handled scan. Record is set only when Outcome is Recorded.
type Result struct {
	Outcome Outcome
	Record  Record
}

// Service is the attendance ledger.
type Service struct {
	store Store
	clock Clock
	audit AuditSink
	log   *zap.Logger
}

// NewService creates a ledger over store. A nil logger disables logging.
func NewService(store Store, clock Clock, audit AuditSink, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, clock: clock, audit: audit, log: log}
}

// RecordScan handles one tag scan at the current time.
func (s *Service) RecordScan(ctx context.Context, tagID int64) (Result, error) {
	return s.RecordScanAt(ctx, tagID, s.clock.Now())
}

// RecordScanAt handles one tag scan taken at now. The direction alternates per
// person per calendar day of now; an unknown tag is audited instead of stored.
func (s *Service) RecordScanAt(ctx context.Context, tagID int64, now time.Time) (Result, error) {
	at := StampOf(now)

	rec, err := s.store.Append(ctx, tagID, at, NextDirection)
	switch {
	case err == nil:
		metrics.Scans.WithLabelValues(Recorded.String(), string(rec.Type)).Inc()
		return Result{Outcome: Recorded, Record: rec}, nil

	case errors.Is(err, ErrUnknownTag):
		metrics.Scans.WithLabelValues(UnknownTag.String(), "").Inc()
		if s.audit != nil {
			if aerr := s.audit.RecordUnknownTag(ctx, tagID, at.Date, at.Time); aerr != nil {
				metrics.AuditFailures.Inc()
				s.log.Error("unknown tag audit failed",
					zap.Int64(logger.FieldTagID, tagID),
					zap.Error(aerr))
			}
		}
		s.log.Warn("unknown tag scanned",
			zap.Int64(logger.FieldTagID, tagID),
			zap.String("date", at.Date),
			zap.String("time", at.Time))
		return Result{Outcome: UnknownTag}, nil

	default:
		metrics.Scans.WithLabelValues("failed", "").Inc()
		return Result{}, fmt.Errorf("%w: record scan for %d: %v", ErrStorage, tagID, err)
	}
}

// Query lists attendance rows for the list screen.
func (s *Service) Query(ctx context.Context, req tabular.Request) (tabular.Result[Row], error) {
	started := time.Now()
	res, err := s.store.Query(ctx, req)
	metrics.ObserveTableQuery(Table.Name, started, err)
	if err != nil && !errors.Is(err, tabular.ErrQuery) {
		err = fmt.Errorf("%w: %v", tabular.ErrQuery, err)
	}
	return res, err
}
