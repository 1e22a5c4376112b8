package dispatch

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/CeeBeeEh/bvr-chirp/internal/alert"
)

// Queue is a bounded alert queue owned by a single delivery worker. The worker
// closes it (Close) on exit so the dispatcher stops routing to it.
type Queue struct {
	name string
	ch   chan *alert.Alert
	done chan struct{}
	once sync.Once
}

func NewQueue(name string, size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		name: name,
		ch:   make(chan *alert.Alert, size),
		done: make(chan struct{}),
	}
}

func (q *Queue) Name() string { return q.name }

// C is the receive side, consumed by the owning worker.
func (q *Queue) C() <-chan *alert.Alert { return q.ch }

// Close marks the queue dead. The dispatcher skips dead queues; alerts already
// queued are discarded. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

func (q *Queue) closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Dispatcher fans each alert out to every registered queue, exactly once per
// queue. It never blocks on a slow destination: when a queue is full the
// oldest queued alert is dropped to make room for the newest.
type Dispatcher struct {
	log zerolog.Logger

	mu     sync.RWMutex
	queues []*Queue
}

func New(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{log: log.With().Str("component", "dispatch").Logger()}
}

// Register adds a destination queue. Registration order is the broadcast order.
func (d *Dispatcher) Register(q *Queue) {
	d.mu.Lock()
	d.queues = append(d.queues, q)
	d.mu.Unlock()
	d.log.Debug().Str("destination", q.name).Msg("destination registered")
}

// Destinations returns the names of live registered queues.
func (d *Dispatcher) Destinations() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.queues))
	for _, q := range d.queues {
		if !q.closed() {
			names = append(names, q.name)
		}
	}
	return names
}

// Broadcast offers a to every live queue. A stalled or dead destination never
// affects the others.
func (d *Dispatcher) Broadcast(a *alert.Alert) {
	d.mu.RLock()
	queues := d.queues
	d.mu.RUnlock()

	for _, q := range queues {
		if q.closed() {
			continue
		}
		select {
		case q.ch <- a:
			continue
		default:
		}
		// Full queue: drop the oldest alert, then retry once.
		select {
		case old := <-q.ch:
			d.log.Warn().
				Str("destination", q.name).
				Str("camera", old.CameraName).
				Msg("queue full, dropping oldest alert")
		default:
		}
		select {
		case q.ch <- a:
		default:
			d.log.Warn().
				Str("destination", q.name).
				Str("camera", a.CameraName).
				Msg("queue full, alert dropped")
		}
	}
}
