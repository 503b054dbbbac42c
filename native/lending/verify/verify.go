// Package verify checks projected reserve and user state against what the
// chain reports after a transaction. It is the oracle loop around the
// projector: load the strategy for the reserve, project, compare within
// tolerance, and record the outcome. Capture and Observe are the entry points
// for harnesses that read live state through a StateReader; the CLI feeds
// Verify from files instead.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lendoracle/native/lending"
	"lendoracle/native/lending/strategy"
	"lendoracle/observability"
)

var (
	errMissingBefore   = errors.New("verify: observation lacks pre-action reserve state")
	errMissingObserved = errors.New("verify: observation lacks post-action state")
)

// Observation is the state read around one transaction together with the
// request that describes it.
type Observation struct {
	Symbol  string          `json:"symbol"`
	Request lending.Request `json:"request"`

	ReserveBefore *lending.ReserveSnapshot `json:"reserveBefore"`
	UserBefore    *lending.UserReserveData `json:"userBefore"`

	ReserveObserved *lending.ReserveSnapshot `json:"reserveObserved"`
	UserObserved    *lending.UserReserveData `json:"userObserved"`
}

// Report is the outcome of one verification.
type Report struct {
	ID          uuid.UUID      `json:"id"`
	Symbol      string         `json:"symbol"`
	Action      lending.Action `json:"action"`
	RateMode    string         `json:"rateMode"`
	User        common.Address `json:"user"`
	TxTimestamp uint64         `json:"txTimestamp"`
	CheckedAt   time.Time      `json:"checkedAt"`

	ExpectedReserve *lending.ReserveSnapshot `json:"expectedReserve"`
	ExpectedUser    *lending.UserReserveData `json:"expectedUser"`

	ReserveMismatches []lending.Mismatch `json:"reserveMismatches,omitempty"`
	UserMismatches    []lending.Mismatch `json:"userMismatches,omitempty"`
}

// Passed reports whether every compared field matched within tolerance.
func (r Report) Passed() bool {
	return len(r.ReserveMismatches) == 0 && len(r.UserMismatches) == 0
}

// Journal persists verification reports.
type Journal interface {
	Record(ctx context.Context, report Report) error
}

// Verifier projects observed actions and compares the projection with the
// observed outcome. It is safe for concurrent use.
type Verifier struct {
	registry strategy.Registry
	journal  Journal
	logger   *slog.Logger
	metrics  *observability.VerifierMetrics
	tracer   trace.Tracer
	clock    func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithJournal records every report in j.
func WithJournal(j Journal) Option {
	return func(v *Verifier) {
		v.journal = j
	}
}

// WithLogger installs a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithMetrics overrides the process wide verifier metrics.
func WithMetrics(m *observability.VerifierMetrics) Option {
	return func(v *Verifier) {
		v.metrics = m
	}
}

// WithClock overrides the clock used to stamp reports.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.clock = now
		}
	}
}

// New constructs a verifier over the strategies in registry.
func New(registry strategy.Registry, opts ...Option) *Verifier {
	v := &Verifier{
		registry: registry,
		logger:   slog.Default(),
		tracer:   otel.Tracer("lendoracle/verify"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	if v.metrics == nil {
		v.metrics = observability.Verifier()
	}
	return v
}

// Verify projects obs and compares the projection with the observed state.
// Mismatches are not errors: they are reported, logged and journaled. An
// error means no comparison could be made, or the journal refused the report.
func (v *Verifier) Verify(ctx context.Context, obs Observation) (Report, error) {
	start := v.clock()
	req := obs.Request
	ctx, span := v.tracer.Start(ctx, "verify.observation", trace.WithAttributes(
		attribute.String("reserve", obs.Symbol),
		attribute.String("action", string(req.Action)),
		attribute.String("rate_mode", req.RateMode.String()),
		attribute.Int64("tx_time", int64(req.TxTimestamp)),
	))
	defer span.End()

	fail := func(reason string, err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.metrics.RecordError(obs.Symbol, reason)
		v.logger.ErrorContext(ctx, "verification aborted",
			slog.String("reserve", obs.Symbol),
			slog.String("action", string(req.Action)),
			slog.String("reason", reason),
			slog.Any("error", err))
		return Report{}, err
	}

	if obs.ReserveBefore == nil {
		return fail("invalid_observation", errMissingBefore)
	}
	if obs.ReserveObserved == nil || obs.UserObserved == nil {
		return fail("invalid_observation", errMissingObserved)
	}
	params, err := v.registry.Lookup(obs.Symbol)
	if err != nil {
		return fail("unknown_reserve", err)
	}

	projector := lending.NewProjector(params)
	expectedReserve, expectedUser, err := projector.Project(req, obs.ReserveBefore, obs.UserBefore)
	if err != nil {
		return fail("projection", fmt.Errorf("verify %s %s: %w", obs.Symbol, req.Action, err))
	}

	report := Report{
		ID:                uuid.New(),
		Symbol:            obs.Symbol,
		Action:            req.Action,
		RateMode:          req.RateMode.String(),
		User:              beneficiary(req),
		TxTimestamp:       req.TxTimestamp,
		CheckedAt:         start.UTC(),
		ExpectedReserve:   expectedReserve,
		ExpectedUser:      expectedUser,
		ReserveMismatches: lending.CompareReserve(expectedReserve, obs.ReserveObserved),
		UserMismatches:    lending.CompareUser(expectedUser, obs.UserObserved),
	}

	fields := mismatchedFields(report)
	v.metrics.ObserveVerification(ctx, obs.Symbol, string(req.Action), fields, v.clock().Sub(start))
	span.SetAttributes(
		attribute.String("report_id", report.ID.String()),
		attribute.Int("mismatches", len(fields)),
	)
	if report.Passed() {
		v.logger.InfoContext(ctx, "projection matched",
			slog.String("report_id", report.ID.String()),
			slog.String("reserve", obs.Symbol),
			slog.String("action", string(req.Action)))
	} else {
		span.SetStatus(codes.Error, "projection drift")
		v.logger.WarnContext(ctx, "projection drift",
			slog.String("report_id", report.ID.String()),
			slog.String("reserve", obs.Symbol),
			slog.String("action", string(req.Action)),
			slog.Any("field", fields))
	}

	if v.journal != nil {
		if err := v.journal.Record(ctx, report); err != nil {
			span.RecordError(err)
			return report, fmt.Errorf("verify: record report %s: %w", report.ID, err)
		}
	}
	return report, nil
}

func beneficiary(req lending.Request) common.Address {
	if req.OnBehalfOf != (common.Address{}) {
		return req.OnBehalfOf
	}
	return req.Actor
}

func mismatchedFields(report Report) []string {
	fields := make([]string, 0, len(report.ReserveMismatches)+len(report.UserMismatches))
	for _, m := range report.ReserveMismatches {
		fields = append(fields, "reserve."+m.Field)
	}
	for _, m := range report.UserMismatches {
		fields = append(fields, "user."+m.Field)
	}
	return fields
}
