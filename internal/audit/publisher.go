package audit

import (
	"context"
	"log/slog"
	"time"

	"shahid/pkg/requestcontext"
)

// Publisher accepts events from domain services and hands them to the worker
// through a buffered channel. Emit never blocks request handling: when the
// buffer is full the event is dropped and counted.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
	m      *Metrics
}

// NewPublisher creates a publisher with the given buffer size.
func NewPublisher(buffer int, logger *slog.Logger, m *Metrics) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
		m:      m,
	}
}

// Inbox exposes the receive side for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

// Emit enriches and enqueues an event. Category is always derived from the
// action; request ID and client IP are pulled from context when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	event.Category = event.Action.Category()
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = requestcontext.ClientIP(ctx)
	}

	select {
	case p.inbox <- event:
		if p.m != nil {
			p.m.EventsEmitted.Inc()
		}
	default:
		if p.m != nil {
			p.m.EventsDropped.Inc()
		}
		p.logger.Warn("audit inbox full, event dropped",
			"action", event.Action,
			"request_id", event.RequestID,
		)
	}
}

// Worker consumes audit events from the publisher and persists them. Append
// failures are logged and retried once; the worker never stops on a bad event.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("audit append failed, retrying once",
					"action", event.Action, "error", err)
				time.Sleep(100 * time.Millisecond)
				if err := w.store.Append(ctx, event); err != nil {
					w.logger.Error("audit append failed, event lost",
						"action", event.Action, "error", err)
				}
			}
		}
	}
}
