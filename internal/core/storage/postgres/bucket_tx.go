package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
)

// bucketTx implements storage.BucketTx over one *sql.Tx.
type bucketTx struct {
	tx    *sql.Tx
	nowFn func() time.Time
	newID func() string
}

func (t *bucketTx) FindByPeriodForUpdate(ctx context.Context, p revenue.Period) (revenue.Bucket, error) {
	b, err := scanBucketRow(t.tx.QueryRowContext(ctx, queryFindBucketForUpdate, p.Time()))
	if errors.Is(err, sql.ErrNoRows) {
		return revenue.Bucket{}, storage.ErrNotFound
	}
	if err != nil {
		return revenue.Bucket{}, bucketRowError("lock bucket", p, err)
	}
	return b, nil
}

// UpsertIfAbsent inserts a zero bucket (no-op if one exists) and then locks the row.
// The insert and the lock are two statements in the same transaction, so a bucket
// created by a concurrent transaction is seen once that transaction commits.
func (t *bucketTx) UpsertIfAbsent(ctx context.Context, p revenue.Period, source revenue.CalculationSource) (revenue.Bucket, error) {
	if _, err := t.tx.ExecContext(ctx, queryInsertBucketIfAbsent, t.newID(), p.Time(), string(source), t.nowFn()); err != nil {
		return revenue.Bucket{}, bucketRowError("insert bucket if absent", p, err)
	}

	b, err := t.FindByPeriodForUpdate(ctx, p)
	if err != nil {
		return revenue.Bucket{}, fmt.Errorf("read bucket after upsert: %w", err)
	}
	return b, nil
}

func (t *bucketTx) Update(ctx context.Context, b revenue.Bucket) (revenue.Bucket, error) {
	if b.ID == "" {
		return revenue.Bucket{}, fmt.Errorf("update bucket (period=%s): missing id", b.Period)
	}

	updated, err := scanBucketRow(t.tx.QueryRowContext(ctx, queryUpdateBucket,
		b.ID,
		b.InvoiceCount,
		b.TotalAmount,
		b.TotalPaidAmount,
		b.TotalPendingAmount,
		string(b.CalculationSource),
		b.LastEventID,
		t.nowFn(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return revenue.Bucket{}, bucketRowError("update bucket", b.Period, storage.ErrNotFound)
	}
	if err != nil {
		return revenue.Bucket{}, bucketRowError("update bucket", b.Period, err)
	}
	return updated, nil
}

func (t *bucketTx) MarkEventProcessed(ctx context.Context, evt revenue.LifecycleEvent) error {
	var eventID string
	err := t.tx.QueryRowContext(ctx, queryMarkEventProcessed,
		evt.EventID,
		evt.Current.ID,
		string(evt.Operation),
		t.nowFn(),
	).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("mark event processed (event_id=%s): %w", evt.EventID, err)
	}
	return nil
}
