// Package aggregation applies invoice lifecycle events to monthly revenue buckets.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
)

// Service is the only writer of revenue buckets.
type Service struct {
	store       storage.BucketStore
	idempotency bool
}

// Option configures a Service.
type Option func(*Service)

// WithIdempotency toggles the processed-event ledger. Enabled by default.
func WithIdempotency(enabled bool) Option {
	return func(s *Service) {
		s.idempotency = enabled
	}
}

func NewService(store storage.BucketStore, opts ...Option) *Service {
	s := &Service{store: store, idempotency: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply validates evt and applies its bucket deltas in a single transaction.
//
// Returned errors wrap one of revenue.ErrValidation (nothing was written),
// revenue.ErrAlreadyApplied (event ID seen before, nothing was written),
// revenue.ErrInvariant (rolled back, not retryable) or revenue.ErrPersistence
// (rolled back, safe to redeliver).
func (s *Service) Apply(ctx context.Context, evt revenue.LifecycleEvent) error {
	steps, err := revenue.Plan(evt)
	if err != nil {
		slog.Warn("[Aggregation] Rejected invalid event",
			"event_id", evt.EventID,
			"invoice_id", evt.Current.ID,
			"error", err)
		return err
	}

	if len(steps) == 0 && !s.idempotency {
		slog.Debug("[Aggregation] Event has no bucket effect",
			"event_id", evt.EventID,
			"operation", evt.Operation)
		return nil
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
		if s.idempotency {
			if err := tx.MarkEventProcessed(ctx, evt); err != nil {
				return err
			}
		}
		for _, step := range steps {
			if err := s.applyStep(ctx, tx, evt, step); err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		slog.Debug("[Aggregation] Event applied",
			"event_id", evt.EventID,
			"invoice_id", evt.Current.ID,
			"operation", evt.Operation,
			"steps", len(steps))
		return nil
	}
	return txError(evt, err)
}

// txError maps a rolled-back transaction's error onto the revenue error kinds.
func txError(evt revenue.LifecycleEvent, err error) error {
	switch {
	case errors.Is(err, storage.ErrDuplicate):
		slog.Info("[Aggregation] Skipping already applied event", "event_id", evt.EventID)
		return fmt.Errorf("apply event %s: %w", evt.EventID, revenue.ErrAlreadyApplied)
	case errors.Is(err, revenue.ErrInvariant):
		slog.Error("[Aggregation] Event cannot be applied",
			"event_id", evt.EventID,
			"invoice_id", evt.Current.ID,
			"error", err)
		return fmt.Errorf("apply event %s: %w", evt.EventID, err)
	default:
		slog.Error("[Aggregation] Event rolled back",
			"event_id", evt.EventID,
			"invoice_id", evt.Current.ID,
			"error", err)
		return fmt.Errorf("apply event %s: %w: %w", evt.EventID, revenue.ErrPersistence, err)
	}
}

// applyStep locks the step's bucket, computes the new values and writes them back.
// Steps arrive sorted by period, so buckets are always locked in ascending order.
func (s *Service) applyStep(ctx context.Context, tx storage.BucketTx, evt revenue.LifecycleEvent, step revenue.Step) error {
	bucket, err := s.lockBucket(ctx, tx, evt, step)
	if err != nil {
		return err
	}

	out, err := step.Apply(bucket)
	if err != nil {
		return err
	}
	if len(out.Clamped) > 0 {
		slog.Warn("[Aggregation] Bucket field clamped at zero, upstream event likely missed or duplicated",
			"period", step.Period,
			"event_id", evt.EventID,
			"invoice_id", evt.Current.ID,
			"change", step.Kind,
			"fields", out.Clamped)
	}

	next := out.Bucket
	next.CalculationSource = revenue.SourceInvoiceEvent
	next.LastEventID = evt.EventID

	if _, err := tx.Update(ctx, next); err != nil {
		return err
	}
	return nil
}

func (s *Service) lockBucket(ctx context.Context, tx storage.BucketTx, evt revenue.LifecycleEvent, step revenue.Step) (revenue.Bucket, error) {
	if step.Additive() {
		return tx.UpsertIfAbsent(ctx, step.Period, revenue.SourceInvoiceEvent)
	}

	bucket, err := tx.FindByPeriodForUpdate(ctx, step.Period)
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return revenue.Bucket{}, err
	}

	slog.Warn("[Aggregation] Bucket missing for non-additive change, creating at zero",
		"period", step.Period,
		"event_id", evt.EventID,
		"invoice_id", evt.Current.ID,
		"change", step.Kind,
		"anomaly", revenue.ErrBucketNotFound)
	return tx.UpsertIfAbsent(ctx, step.Period, revenue.SourceInvoiceEvent)
}
