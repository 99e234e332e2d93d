package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/shashibhat/safehaven-core/internal/imaging"
)

// Sample pairs a decoded frame with the wall-clock time it was captured.
type Sample struct {
	Frame      imaging.Frame
	CapturedAt time.Time
}

// LatestQueue is a bounded single-producer/single-consumer queue that
// always keeps the most recently produced samples: once full, Put
// evicts the oldest entry before enqueuing, so a slow consumer never
// blocks the sampler. Get blocks until a sample is available.
type LatestQueue struct {
	mu      sync.Mutex
	items   []Sample
	maxSize int
	notify  chan struct{}
}

// NewLatestQueue builds a queue with the given maximum depth.
func NewLatestQueue(maxSize int) *LatestQueue {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LatestQueue{
		items:   make([]Sample, 0, maxSize),
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Put enqueues a sample, evicting the oldest queued sample(s) first if
// the queue is full. It returns the number of samples dropped.
func (q *LatestQueue) Put(s Sample) (dropped int) {
	q.mu.Lock()
	for len(q.items) >= q.maxSize {
		q.items = q.items[1:]
		dropped++
	}
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped
}

func (q *LatestQueue) tryPop() (Sample, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Sample{}, false
	}
	s := q.items[0]
	q.items = q.items[1:]
	return s, true
}

// Get blocks until a sample is available, then returns it.
func (q *LatestQueue) Get() Sample {
	for {
		if s, ok := q.tryPop(); ok {
			return s
		}
		<-q.notify
	}
}

// GetContext blocks until a sample is available or ctx is canceled.
func (q *LatestQueue) GetContext(ctx context.Context) (Sample, error) {
	for {
		if s, ok := q.tryPop(); ok {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Depth returns the current number of queued samples.
func (q *LatestQueue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
