package storage

import (
	"context"
	"errors"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
)

var (
	// ErrNotFound is returned when no bucket exists for the requested period.
	ErrNotFound = errors.New("bucket not found")

	// ErrDuplicate is returned when an event ID is already in the processed-event ledger.
	ErrDuplicate = errors.New("event already processed")
)

// BucketReader is the read-only surface exposed to reporting code.
// Reads see committed rows only.
type BucketReader interface {
	// FindByPeriod returns the bucket for p, or ErrNotFound.
	FindByPeriod(ctx context.Context, p revenue.Period) (revenue.Bucket, error)

	// QueryRange returns buckets with start <= period <= end, ordered by period ASC.
	QueryRange(ctx context.Context, start, end revenue.Period) ([]revenue.Bucket, error)
}

// BucketTx is the write surface, valid only inside BucketStore.WithinTx.
// Every bucket returned by FindByPeriodForUpdate or UpsertIfAbsent stays locked
// until the transaction ends.
type BucketTx interface {
	// FindByPeriodForUpdate locks and returns the bucket for p, or ErrNotFound.
	FindByPeriodForUpdate(ctx context.Context, p revenue.Period) (revenue.Bucket, error)

	// UpsertIfAbsent creates a zero-valued bucket for p unless one exists, then locks
	// and returns the current row. Safe under concurrent callers for the same period.
	UpsertIfAbsent(ctx context.Context, p revenue.Period, source revenue.CalculationSource) (revenue.Bucket, error)

	// Update replaces the numeric fields, source, last event ID and updated_at of the
	// bucket with b.ID. The period is never changed.
	Update(ctx context.Context, b revenue.Bucket) (revenue.Bucket, error)

	// MarkEventProcessed records evt in the processed-event ledger.
	// Returns ErrDuplicate if the event ID was committed before.
	MarkEventProcessed(ctx context.Context, evt revenue.LifecycleEvent) error
}

// BucketStore owns the revenue_buckets table.
type BucketStore interface {
	BucketReader

	// WithinTx runs fn in one transaction. fn returning an error rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx BucketTx) error) error

	// Ping reports store reachability for health checks.
	Ping(ctx context.Context) error
}
