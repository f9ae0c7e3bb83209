package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
)

// Handler processes one stored photo, identified by its file name.
type Handler func(ctx context.Context, photo string) error

// Dispatcher fans thumbnail jobs out to a fixed set of workers. Jobs for the
// same photo always land on the same worker.
type Dispatcher struct {
	workers []chan string
	handle  Handler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handle Handler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan string, numWorkers),
		handle:  handle,
		log:     log.With().Str("component", "thumbnail_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan string, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue offers a job without blocking. It returns false when the worker's
// buffer is full so the caller can process the photo inline.
func (d *Dispatcher) Enqueue(photo string) bool {
	select {
	case d.workers[d.shardIndex(photo)] <- photo:
		return true
	default:
		return false
	}
}

// shardIndex maps a photo name deterministically to a worker index.
func (d *Dispatcher) shardIndex(photo string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(photo))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan string) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case photo := <-ch:
			if err := d.handle(ctx, photo); err != nil {
				d.log.Error().Err(err).
					Str("photo", photo).
					Int("worker_id", id).
					Msg("thumbnail generation failed")
			}
		}
	}
}
