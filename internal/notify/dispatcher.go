package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// notifyJobs counts dispatched notifications by result
// (sent|failed|dropped).
var notifyJobs = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Repeated-view notifications by result.",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(notifyJobs)
}

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// Dispatcher runs notifications on a fixed pool of workers fed by a bounded
// queue.
type Dispatcher struct {
	n     Notifier
	queue chan Notification

	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(n Notifier, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	d := &Dispatcher{n: n, queue: make(chan Notification, queueSize)}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch enqueues n without blocking. It reports false when the queue is
// full or the dispatcher is closed; the notification is then dropped.
func (d *Dispatcher) Dispatch(n Notification) bool {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		notifyJobs.WithLabelValues("dropped").Inc()
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		notifyJobs.WithLabelValues("dropped").Inc()
		log.Warn().Str("notification_id", n.ID).Str("product_id", n.ProductID).Msg("notification queue full; dropping")
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.n.Notify(ctx, n)
		cancel()
		if err != nil {
			notifyJobs.WithLabelValues("failed").Inc()
			log.Warn().Err(err).
				Str("notification_id", n.ID).
				Str("user_id", n.UserID).
				Str("product_id", n.ProductID).
				Msg("notification failed")
			continue
		}
		notifyJobs.WithLabelValues("sent").Inc()
	}
}

// Close stops accepting work and waits for queued notifications to finish,
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
