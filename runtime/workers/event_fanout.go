package workers

import (
	"context"
	"log/slog"
	"time"

	"chathub/contract"
	"chathub/domain/event"
	"chathub/observability"
)

// EventFanout delivers addressed envelopes to connection sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries; a slow sink loses the event after the configured
// timeout rather than stalling everyone else. The payload is fixed before
// fan-out begins, so all recipients see identical content.
type EventFanout struct {
	log         *slog.Logger
	registry    contract.ISessionRegistry
	envelopes   chan event.Envelope
	sinkTimeout time.Duration
	stats       *observability.Stats
}

func NewEventFanout(log *slog.Logger, registry contract.ISessionRegistry,
	envelopes chan event.Envelope, sinkTimeout time.Duration,
	stats *observability.Stats) *EventFanout {
	return &EventFanout{
		log:         log,
		registry:    registry,
		envelopes:   envelopes,
		sinkTimeout: sinkTimeout,
		stats:       stats,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case env, ok := <-w.envelopes:
			if !ok {
				return nil
			}
			w.fanout(ctx, env)
		}
	}
}

// fanout resolves the envelope's recipients into live sinks and delivers
// the payload to each. Connections that vanished since the envelope was
// built are skipped silently.
func (w *EventFanout) fanout(ctx context.Context, env event.Envelope) {
	var sinks []contract.EventSink
	if env.All {
		sinks = w.registry.All()
	} else {
		for _, conn := range env.To {
			if sink, ok := w.registry.Sink(conn); ok {
				sinks = append(sinks, sink)
			}
		}
	}

	for _, sink := range sinks {
		deliveryCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(deliveryCtx, env.Payload); err != nil {
			w.stats.IncrDroppedEvents()
			w.log.Warn("Sink delivery failed", "event", env.Payload.Name(), "error", err)
		}
		cancel()
	}
	w.stats.IncrBroadcasts()
}
