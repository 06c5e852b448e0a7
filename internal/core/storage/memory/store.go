// Package memory is an in-process BucketStore used by tests and by
// `database.type: memory` deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/aevon-lab/revenue-engine/internal/core/storage"
	"github.com/google/uuid"
)

// Store keeps committed buckets in a map. Each period has a one-slot lock channel,
// so a transaction holding a period blocks other writers until it commits or
// rolls back, the same way a row lock would.
type Store struct {
	mu        sync.RWMutex
	buckets   map[revenue.Period]revenue.Bucket
	locks     map[revenue.Period]chan struct{}
	processed map[string]struct{}
	reserved  map[string]chan struct{} // closed when the holding tx ends

	txTimeout time.Duration
	nowFn     func() time.Time
	newID     func() string
}

// New returns an empty store. txTimeout bounds every WithinTx call; zero disables it.
func New(txTimeout time.Duration) *Store {
	return &Store{
		buckets:   make(map[revenue.Period]revenue.Bucket),
		locks:     make(map[revenue.Period]chan struct{}),
		processed: make(map[string]struct{}),
		reserved:  make(map[string]chan struct{}),
		txTimeout: txTimeout,
		nowFn:     func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

func (s *Store) FindByPeriod(_ context.Context, p revenue.Period) (revenue.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[p]
	if !ok {
		return revenue.Bucket{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) QueryRange(_ context.Context, start, end revenue.Period) ([]revenue.Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []revenue.Bucket
	for p, b := range s.buckets {
		if p.Before(start) || end.Before(p) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out, nil
}

// WithinTx stages writes in a private transaction and publishes them on success.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.BucketTx) error) error {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx := &memTx{
		store:  s,
		held:   make(map[revenue.Period]struct{}),
		staged: make(map[revenue.Period]revenue.Bucket),
	}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("bucket tx: commit: %w", err)
	}

	tx.commit()
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

// Put writes b directly, bypassing locks. Test fixtures only.
func (s *Store) Put(b revenue.Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		b.ID = s.newID()
	}
	s.buckets[b.Period] = b
}

func (s *Store) lockFor(p revenue.Period) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[p]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[p] = l
	}
	return l
}

var _ storage.BucketStore = (*Store)(nil)

type memTx struct {
	store    *Store
	held     map[revenue.Period]struct{}
	staged   map[revenue.Period]revenue.Bucket
	reserved []string
}

func (t *memTx) lock(ctx context.Context, p revenue.Period) error {
	if _, ok := t.held[p]; ok {
		return nil
	}
	select {
	case t.store.lockFor(p) <- struct{}{}:
		t.held[p] = struct{}{}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock bucket (period=%s): %w", p, ctx.Err())
	}
}

func (t *memTx) current(p revenue.Period) (revenue.Bucket, bool) {
	if b, ok := t.staged[p]; ok {
		return b, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	b, ok := t.store.buckets[p]
	return b, ok
}

func (t *memTx) FindByPeriodForUpdate(ctx context.Context, p revenue.Period) (revenue.Bucket, error) {
	if err := t.lock(ctx, p); err != nil {
		return revenue.Bucket{}, err
	}
	b, ok := t.current(p)
	if !ok {
		return revenue.Bucket{}, storage.ErrNotFound
	}
	return b, nil
}

func (t *memTx) UpsertIfAbsent(ctx context.Context, p revenue.Period, source revenue.CalculationSource) (revenue.Bucket, error) {
	if err := t.lock(ctx, p); err != nil {
		return revenue.Bucket{}, err
	}
	if b, ok := t.current(p); ok {
		return b, nil
	}

	now := t.store.nowFn()
	b := revenue.ZeroBucket(p, source)
	b.ID = t.store.newID()
	b.CreatedAt = now
	b.UpdatedAt = now
	t.staged[p] = b
	return b, nil
}

func (t *memTx) Update(ctx context.Context, b revenue.Bucket) (revenue.Bucket, error) {
	if b.ID == "" {
		return revenue.Bucket{}, fmt.Errorf("update bucket (period=%s): missing id", b.Period)
	}
	if err := t.lock(ctx, b.Period); err != nil {
		return revenue.Bucket{}, err
	}

	existing, ok := t.current(b.Period)
	if !ok || existing.ID != b.ID {
		return revenue.Bucket{}, fmt.Errorf("update bucket (period=%s): %w", b.Period, storage.ErrNotFound)
	}

	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = t.store.nowFn()
	t.staged[b.Period] = b
	return b, nil
}

// MarkEventProcessed reserves the event ID until commit. A transaction that
// meets an ID reserved by another in-flight transaction waits for it to end,
// then reports ErrDuplicate if it committed or takes the reservation if it
// rolled back.
func (t *memTx) MarkEventProcessed(ctx context.Context, evt revenue.LifecycleEvent) error {
	s := t.store
	for {
		s.mu.Lock()
		if _, ok := s.processed[evt.EventID]; ok {
			s.mu.Unlock()
			return storage.ErrDuplicate
		}
		held, ok := s.reserved[evt.EventID]
		if !ok {
			s.reserved[evt.EventID] = make(chan struct{})
			t.reserved = append(t.reserved, evt.EventID)
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		select {
		case <-held:
		case <-ctx.Done():
			return fmt.Errorf("mark event processed (event_id=%s): %w", evt.EventID, ctx.Err())
		}
	}
}

func (t *memTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for p, b := range t.staged {
		s.buckets[p] = b
	}
	for _, id := range t.reserved {
		s.processed[id] = struct{}{}
		close(s.reserved[id])
		delete(s.reserved, id)
	}
	t.reserved = nil
}

func (t *memTx) release() {
	s := t.store
	if len(t.reserved) > 0 {
		s.mu.Lock()
		for _, id := range t.reserved {
			close(s.reserved[id])
			delete(s.reserved, id)
		}
		s.mu.Unlock()
		t.reserved = nil
	}
	for p := range t.held {
		<-s.lockFor(p)
	}
	t.held = nil
}
