package notifications

import (
	"context"
	"sync"

	"github.com/MarcoPoloResearchLab/tastelog/internal/metrics"
	"go.uber.org/zap"
)

const (
	opDispatch       = "notifications.dispatch"
	defaultQueueSize = 64
)

// Creator persists notifications for events. *Generator implements it.
type Creator interface {
	Create(ctx context.Context, event Event) (Notification, bool, error)
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Creator   Creator
	QueueSize int
	Logger    *zap.Logger
	// OnCreated runs on the worker after a notification is persisted.
	OnCreated func(Notification)
}

// Dispatcher runs notification generation off the caller's path.
// Dispatch never blocks; failures are logged and counted, never returned.
type Dispatcher struct {
	creator   Creator
	logger    *zap.Logger
	onCreated func(Notification)

	mu      sync.RWMutex
	queue   chan Event
	started bool
	stopped bool
	done    chan struct{}
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Dispatcher{
		creator:   cfg.Creator,
		logger:    logger,
		onCreated: cfg.OnCreated,
		queue:     make(chan Event, size),
		done:      make(chan struct{}),
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	go d.run()
}

// Dispatch enqueues event and reports whether it was accepted.
func (d *Dispatcher) Dispatch(event Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.logger.Warn("notification dispatcher stopped, dropping event",
			zap.String("operation", opDispatch),
			zap.String("type", string(event.Type)))
		metrics.ObserveNotificationDropped(metrics.DropReasonStopped)
		return false
	}
	select {
	case d.queue <- event:
		return true
	default:
		d.logger.Warn("notification queue full, dropping event",
			zap.String("operation", opDispatch),
			zap.String("type", string(event.Type)),
			zap.String("post_id", event.PostID))
		metrics.ObserveNotificationDropped(metrics.DropReasonQueueFull)
		return false
	}
}

// Stop rejects new events, drains the queue and waits for the worker to finish or ctx to end.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return d.wait(ctx)
	}
	d.stopped = true
	close(d.queue)
	if !d.started {
		d.started = true
		go d.run()
	}
	d.mu.Unlock()
	return d.wait(ctx)
}

func (d *Dispatcher) wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for event := range d.queue {
		d.handle(event)
	}
}

func (d *Dispatcher) handle(event Event) {
	if d.creator == nil {
		return
	}
	notification, created, err := d.creator.Create(context.Background(), event)
	if err != nil {
		logError(d.logger, "notification dispatch error", opDispatch, "create_failed", err,
			zap.String("type", string(event.Type)),
			zap.String("post_id", event.PostID))
		return
	}
	if created && d.onCreated != nil {
		d.onCreated(notification)
	}
}
