package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = revenue.MustParsePeriod("2025-03")

func TestStore_UpsertIsInvisibleUntilCommit(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
		b, err := tx.UpsertIfAbsent(ctx, march, revenue.SourceInvoiceEvent)
		require.NoError(t, err)
		require.NotEmpty(t, b.ID)

		_, err = s.FindByPeriod(ctx, march)
		require.ErrorIs(t, err, storage.ErrNotFound)

		b.InvoiceCount = 1
		b.TotalPaidAmount = 100
		b.TotalAmount = 100
		_, err = tx.Update(ctx, b)
		return err
	})
	require.NoError(t, err)

	b, err := s.FindByPeriod(ctx, march)
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.TotalAmount)
	assert.Equal(t, revenue.SourceInvoiceEvent, b.CalculationSource)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
		_, err := tx.UpsertIfAbsent(ctx, march, revenue.SourceInvoiceEvent)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.FindByPeriod(ctx, march)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpsertKeepsExistingBucket(t *testing.T) {
	s := New(0)
	s.Put(revenue.Bucket{ID: "seeded", Period: march, InvoiceCount: 3, TotalAmount: 30, TotalPaidAmount: 30, CalculationSource: revenue.SourceSeed})

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
		b, err := tx.UpsertIfAbsent(ctx, march, revenue.SourceInvoiceEvent)
		require.NoError(t, err)
		assert.Equal(t, "seeded", b.ID)
		assert.Equal(t, int64(3), b.InvoiceCount)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_QueryRangeIsInclusiveAndOrdered(t *testing.T) {
	s := New(0)
	for _, p := range []string{"2025-05", "2025-01", "2025-03", "2025-02"} {
		s.Put(revenue.Bucket{Period: revenue.MustParsePeriod(p)})
	}

	got, err := s.QueryRange(context.Background(), revenue.MustParsePeriod("2025-02"), revenue.MustParsePeriod("2025-05"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-02-01", got[0].Period.String())
	assert.Equal(t, "2025-03-01", got[1].Period.String())
	assert.Equal(t, "2025-05-01", got[2].Period.String())
}

func TestStore_MarkEventProcessed(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	evt := revenue.LifecycleEvent{EventID: "evt-1"}

	mark := func() error {
		return s.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
			return tx.MarkEventProcessed(ctx, evt)
		})
	}

	require.NoError(t, mark())
	require.ErrorIs(t, mark(), storage.ErrDuplicate)
}

func TestStore_RolledBackEventCanBeRetried(t *testing.T) {
	s := New(0)
	ctx := context.Background()
	evt := revenue.LifecycleEvent{EventID: "evt-1"}

	err := s.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
		require.NoError(t, tx.MarkEventProcessed(ctx, evt))
		return errors.New("write failed")
	})
	require.Error(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx storage.BucketTx) error {
		return tx.MarkEventProcessed(ctx, evt)
	})
	require.NoError(t, err)
}

// holdEvent marks evt in a transaction that stays open until finish yields the
// transaction's result.
func holdEvent(t *testing.T, s *Store, evt revenue.LifecycleEvent) (finish chan error, done chan error) {
	t.Helper()
	holding := make(chan struct{})
	finish = make(chan error)
	done = make(chan error, 1)

	go func() {
		done <- s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
			if err := tx.MarkEventProcessed(ctx, evt); err != nil {
				close(holding)
				return err
			}
			close(holding)
			return <-finish
		})
	}()
	<-holding
	return finish, done
}

func TestStore_InFlightEventIsTakenOverAfterRollback(t *testing.T) {
	s := New(time.Second)
	evt := revenue.LifecycleEvent{EventID: "evt-1"}
	finish, done := holdEvent(t, s, evt)

	redelivery := make(chan error, 1)
	go func() {
		redelivery <- s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
			return tx.MarkEventProcessed(ctx, evt)
		})
	}()

	finish <- errors.New("transient commit failure")
	require.Error(t, <-done)
	require.NoError(t, <-redelivery)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
		return tx.MarkEventProcessed(ctx, evt)
	})
	require.ErrorIs(t, err, storage.ErrDuplicate)
}

func TestStore_InFlightEventIsDuplicateAfterCommit(t *testing.T) {
	s := New(time.Second)
	evt := revenue.LifecycleEvent{EventID: "evt-1"}
	finish, done := holdEvent(t, s, evt)

	redelivery := make(chan error, 1)
	go func() {
		redelivery <- s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
			return tx.MarkEventProcessed(ctx, evt)
		})
	}()

	finish <- nil
	require.NoError(t, <-done)
	require.ErrorIs(t, <-redelivery, storage.ErrDuplicate)
}

func TestStore_InFlightEventWaitTimesOut(t *testing.T) {
	s := New(50 * time.Millisecond)
	evt := revenue.LifecycleEvent{EventID: "evt-1"}
	finish, done := holdEvent(t, s, evt)

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
		return tx.MarkEventProcessed(ctx, evt)
	})
	finish <- nil
	<-done

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, storage.ErrDuplicate)
}

func TestStore_LockTimesOut(t *testing.T) {
	s := New(50 * time.Millisecond)
	holding := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
			_, err := tx.UpsertIfAbsent(ctx, march, revenue.SourceInvoiceEvent)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding

	err := s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
		_, err := tx.FindByPeriodForUpdate(ctx, march)
		return err
	})
	close(done)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStore_ConcurrentIncrementsAreSerialized(t *testing.T) {
	s := New(0)
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(context.Background(), func(ctx context.Context, tx storage.BucketTx) error {
				b, err := tx.UpsertIfAbsent(ctx, march, revenue.SourceInvoiceEvent)
				if err != nil {
					return err
				}
				_, err = tx.Update(ctx, revenue.Add(b, 10, revenue.StatusPaid).Bucket)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := s.FindByPeriod(context.Background(), march)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), b.InvoiceCount)
	assert.Equal(t, int64(writers*10), b.TotalPaidAmount)
	assert.True(t, b.Consistent())
}
