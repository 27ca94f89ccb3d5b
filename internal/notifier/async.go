package notifier

import (
	"context"
	"log/slog"
)

// Async queues messages and delivers them from its own goroutine, so a slow Notifier never holds up the caller.
// When the queue is full, messages are dropped.
type Async struct {
	Notifier Notifier
	queue    chan string
	logger   *slog.Logger
}

var _ Notifier = &Async{}

func NewAsync(n Notifier, size int, logger *slog.Logger) *Async {
	return &Async{
		Notifier: n,
		queue:    make(chan string, size),
		logger:   logger,
	}
}

func (a *Async) Notify(msg string) {
	select {
	case a.queue <- msg:
	default:
		a.logger.Warn("notification queue full. message dropped", "msg", msg)
	}
}

// Run delivers queued messages until ctx is cancelled.
func (a *Async) Run(ctx context.Context) error {
	a.logger.Debug("started")
	defer a.logger.Debug("stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-a.queue:
			a.Notifier.Notify(msg)
		}
	}
}
