package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/safe2go/support-import/internal/config"
	"github.com/safe2go/support-import/internal/events"
	"github.com/safe2go/support-import/internal/service"
)

var (
	// ErrQueueFull is returned to the publisher when an event is dropped.
	ErrQueueFull = errors.New("notification queue full")
	// ErrStopped is returned for events published after Stop.
	ErrStopped = errors.New("notification worker stopped")
)

// NotificationWorker delivers import events to the notification service on
// background goroutines, so an import request never waits on the broker.
type NotificationWorker struct {
	notifications *service.NotificationService
	logger        *zap.Logger
	workers       int

	mu      sync.RWMutex
	queue   chan events.Event
	stopped bool
	wg      sync.WaitGroup
}

// NewNotificationWorker builds a worker sized by cfg.
func NewNotificationWorker(notifications *service.NotificationService, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &NotificationWorker{
		notifications: notifications,
		logger:        logger,
		workers:       workers,
		queue:         make(chan events.Event, queueSize),
	}
}

// StartNotificationWorker subscribes a worker to every event the service
// handles and starts it. It returns nil when there is nothing to notify.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifications *service.NotificationService, cfg config.NotificationConfig, logger *zap.Logger) *NotificationWorker {
	if dispatcher == nil || notifications == nil {
		return nil
	}
	w := NewNotificationWorker(notifications, cfg, logger)
	for _, eventType := range notifications.EventTypes() {
		dispatcher.Subscribe(eventType, w.Enqueue)
	}
	w.Start(ctx)
	return w
}

// Start launches the delivery goroutines. Events still queued when ctx is
// cancelled are delivered before the goroutines exit.
func (w *NotificationWorker) Start(ctx context.Context) {
	deliverCtx := context.WithoutCancel(ctx)
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			for event := range w.queue {
				w.deliver(deliverCtx, event)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
}

// Enqueue queues an event without blocking. Its signature matches
// events.EventHandler.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("notification dropped",
			zap.String("event_type", string(event.Type)),
			zap.String("import_id", event.ImportID))
		return ErrQueueFull
	}
}

// Stop refuses new events and waits until the queue is drained. It is safe
// to call more than once.
func (w *NotificationWorker) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.notifications.Handle(ctx, event); err != nil {
		w.logger.Warn("notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("import_id", event.ImportID),
			zap.Error(err))
	}
}
