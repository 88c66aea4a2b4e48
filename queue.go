package lightup

import (
	"context"
	"sync"
	"time"
)

type dispatchFunc func(ctx context.Context, cfg *Config) (*Response, error)

// queuedRequest is owned by the queue from enqueue until its slot is granted.
type queuedRequest struct {
	ctx        context.Context
	cfg        *Config
	run        dispatchFunc
	enqueuedAt time.Time

	// guarded by dispatchQueue.mu
	started bool

	resp *Response
	err  error
	done chan struct{}
}

// dispatchQueue admits at most limit requests at a time and holds the rest
// in strict FIFO order.
type dispatchQueue struct {
	mu      sync.Mutex
	limit   int
	active  int
	pending []*queuedRequest
	metrics *MetricsCollector
}

func newDispatchQueue(limit int, metrics *MetricsCollector) *dispatchQueue {
	if limit < 1 {
		limit = 1
	}
	return &dispatchQueue{limit: limit, metrics: metrics}
}

// enqueue blocks until run has settled for cfg. If ctx ends while the request
// is still waiting for a slot, enqueue removes the entry, keeping the order of
// the others, and returns ctx.Err(). Once started, run observes ctx itself and
// enqueue waits for it to return.
func (q *dispatchQueue) enqueue(ctx context.Context, cfg *Config, run dispatchFunc) (*Response, error) {
	item := &queuedRequest{
		ctx:        ctx,
		cfg:        cfg,
		run:        run,
		enqueuedAt: time.Now(),
		done:       make(chan struct{}),
	}

	q.mu.Lock()
	q.pending = append(q.pending, item)
	q.mu.Unlock()

	q.drain()

	select {
	case <-item.done:
		return item.resp, item.err
	case <-ctx.Done():
	}

	q.mu.Lock()
	if !item.started {
		q.remove(item)
		q.metrics.RecordQueueState(q.active, len(q.pending))
		q.mu.Unlock()
		return nil, ctx.Err()
	}
	q.mu.Unlock()

	<-item.done
	return item.resp, item.err
}

// drain grants free slots to the head of the queue until either runs out.
func (q *dispatchQueue) drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.active < q.limit && len(q.pending) > 0 {
		item := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		item.started = true
		q.active++
		q.metrics.RecordQueueWait(time.Since(item.enqueuedAt))
		go q.start(item)
	}
	q.metrics.RecordQueueState(q.active, len(q.pending))
}

// remove drops a waiting entry. Callers hold q.mu.
func (q *dispatchQueue) remove(item *queuedRequest) {
	for i, p := range q.pending {
		if p == item {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return
		}
	}
}

func (q *dispatchQueue) start(item *queuedRequest) {
	defer close(item.done)

	item.resp, item.err = item.run(item.ctx, item.cfg)

	q.mu.Lock()
	q.active--
	q.mu.Unlock()

	q.drain()
}

// Active returns the number of requests holding a slot.
func (q *dispatchQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active
}

// Pending returns the number of requests waiting for a slot.
func (q *dispatchQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Limit returns the concurrency ceiling.
func (q *dispatchQueue) Limit() int {
	return q.limit
}
