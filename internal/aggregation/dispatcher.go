package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aevon-lab/revenue-engine/internal/core/partition"
	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkerCount = 8
	defaultQueueSize   = 256
)

// ErrStopped is returned for events submitted to, or still queued in, a dispatcher
// that has shut down. It wraps revenue.ErrPersistence so callers redeliver.
var ErrStopped = fmt.Errorf("dispatcher stopped: %w", revenue.ErrPersistence)

// Applier applies one lifecycle event. *Service is the production implementation.
type Applier interface {
	Apply(ctx context.Context, evt revenue.LifecycleEvent) error
}

type job struct {
	ctx    context.Context
	evt    revenue.LifecycleEvent
	result chan error
}

// Dispatcher is the consumer loop in front of the Service. Events are routed to
// lanes by invoice ID: one invoice's events are applied in submission order,
// different invoices run concurrently.
type Dispatcher struct {
	applier Applier
	lanes   []chan job

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewDispatcher creates workerCount lanes, each buffering up to queueSize events.
func NewDispatcher(applier Applier, workerCount, queueSize int) *Dispatcher {
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	lanes := make([]chan job, workerCount)
	for i := range lanes {
		lanes[i] = make(chan job, queueSize)
	}
	return &Dispatcher{
		applier: applier,
		lanes:   lanes,
		stopped: make(chan struct{}),
	}
}

// Run consumes all lanes until ctx is cancelled. Events already being applied
// finish under their own context; queued events are answered with ErrStopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	slog.Info("[Dispatcher] Starting lanes", "lanes", len(d.lanes), "queue_size", cap(d.lanes[0]))

	g, gctx := errgroup.WithContext(ctx)
	for i, lane := range d.lanes {
		i, lane := i, lane
		g.Go(func() error {
			d.runLane(gctx, i, lane)
			return nil
		})
	}
	err := g.Wait()

	d.stop()
	for _, lane := range d.lanes {
		drain(lane)
	}
	slog.Info("[Dispatcher] Stopped")
	return err
}

func (d *Dispatcher) runLane(ctx context.Context, id int, lane chan job) {
	for {
		select {
		case <-ctx.Done():
			slog.Debug("[Dispatcher] Lane stopping", "lane", id, "queued", len(lane))
			return
		case j := <-lane:
			j.result <- d.applier.Apply(j.ctx, j.evt)
		}
	}
}

// Submit queues evt on its invoice's lane. The returned channel yields exactly
// one result. Submit blocks while the lane is full.
func (d *Dispatcher) Submit(ctx context.Context, evt revenue.LifecycleEvent) (<-chan error, error) {
	j := job{ctx: ctx, evt: evt, result: make(chan error, 1)}
	lane := d.lanes[partition.For(evt.Current.ID, len(d.lanes))]

	select {
	case <-d.stopped:
		return nil, ErrStopped
	default:
	}

	return d.enqueue(ctx, lane, j)
}

func (d *Dispatcher) enqueue(ctx context.Context, lane chan job, j job) (<-chan error, error) {
	select {
	case lane <- j:
		// Run may have drained this lane before the send landed. Lanes are idle
		// once stopped is closed, so answer whatever is left here.
		select {
		case <-d.stopped:
			drain(lane)
		default:
		}
		return j.result, nil
	case <-d.stopped:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, fmt.Errorf("submit event %s: %w: %w", j.evt.EventID, revenue.ErrPersistence, ctx.Err())
	}
}

// Apply submits evt and waits for its result.
func (d *Dispatcher) Apply(ctx context.Context, evt revenue.LifecycleEvent) error {
	result, err := d.Submit(ctx, evt)
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("await event %s: %w: %w", evt.EventID, revenue.ErrPersistence, ctx.Err())
	case <-d.stopped:
		// Run answers every queued job before returning; prefer that answer.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

func (d *Dispatcher) stop() {
	d.stopOnce.Do(func() { close(d.stopped) })
}

func drain(lane chan job) {
	for {
		select {
		case j := <-lane:
			j.result <- ErrStopped
		default:
			return
		}
	}
}

var _ Applier = (*Service)(nil)
var _ Applier = (*Dispatcher)(nil)
