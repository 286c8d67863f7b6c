package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chathub/contract"
	"chathub/domain"
	"chathub/domain/event"
	"chathub/internal"
	"chathub/observability"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	received chan event.Event
	block    bool
}

func (s *recordingSink) Consume(ctx context.Context, e event.Event) error {
	if s.block {
		<-ctx.Done() // waiting for the delivery timeout to trigger
		return ctx.Err()
	}
	s.received <- e
	return nil
}

type stubRegistry struct {
	sinks map[domain.ConnID]contract.EventSink
}

func (r *stubRegistry) Subscribe(conn domain.ConnID, sink contract.EventSink) { r.sinks[conn] = sink }
func (r *stubRegistry) Unsubscribe(conn domain.ConnID)                        { delete(r.sinks, conn) }
func (r *stubRegistry) Sink(conn domain.ConnID) (contract.EventSink, bool) {
	sink, ok := r.sinks[conn]
	return sink, ok
}
func (r *stubRegistry) All() []contract.EventSink {
	var out []contract.EventSink
	for _, sink := range r.sinks {
		out = append(out, sink)
	}
	return out
}

func TestEventFanout_AddressedDelivery(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelDebug)

	a := &recordingSink{received: make(chan event.Event, 1)}
	b := &recordingSink{received: make(chan event.Event, 1)}
	registry := &stubRegistry{sinks: map[domain.ConnID]contract.EventSink{"conn-a": a, "conn-b": b}}

	envelopes := make(chan event.Envelope, 4)
	stats := &observability.Stats{}
	worker := NewEventFanout(log, registry, envelopes, time.Second, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Given an envelope addressed to one connection
	envelopes <- event.Envelope{To: []domain.ConnID{"conn-a"}, Payload: event.Kicked{Room: "general"}}

	// Then only that sink receives it
	select {
	case e := <-a.received:
		req.Equal("room:kicked", e.Name())
	case <-time.After(time.Second):
		req.Fail("sink a received nothing")
	}
	select {
	case <-b.received:
		req.Fail("sink b must not receive an addressed event")
	case <-time.After(50 * time.Millisecond):
	}

	// And a connection that vanished in the meantime is skipped silently
	envelopes <- event.Envelope{To: []domain.ConnID{"conn-gone"}, Payload: event.Kicked{Room: "general"}}
	req.Eventually(func() bool { return stats.Snapshot().Broadcasts == 2 },
		time.Second, 10*time.Millisecond)
	req.EqualValues(0, stats.Snapshot().DroppedEvents)
}

func TestEventFanout_BroadcastToAll(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelDebug)

	a := &recordingSink{received: make(chan event.Event, 1)}
	b := &recordingSink{received: make(chan event.Event, 1)}
	registry := &stubRegistry{sinks: map[domain.ConnID]contract.EventSink{"conn-a": a, "conn-b": b}}

	envelopes := make(chan event.Envelope, 4)
	worker := NewEventFanout(log, registry, envelopes, time.Second, &observability.Stats{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	envelopes <- event.Envelope{All: true, Payload: event.RoomList{}}

	for _, sink := range []*recordingSink{a, b} {
		select {
		case e := <-sink.received:
			req.Equal("lobby:rooms", e.Name())
		case <-time.After(time.Second):
			req.Fail("broadcast missed a sink")
		}
	}
}

func TestEventFanout_SlowSinkLosesEvent(t *testing.T) {
	req := require.New(t)
	log := internal.GetLoggerFromLevel(slog.LevelDebug)

	slow := &recordingSink{block: true}
	healthy := &recordingSink{received: make(chan event.Event, 1)}
	registry := &stubRegistry{sinks: map[domain.ConnID]contract.EventSink{"conn-slow": slow, "conn-ok": healthy}}

	envelopes := make(chan event.Envelope, 4)
	stats := &observability.Stats{}
	worker := NewEventFanout(log, registry, envelopes, 20*time.Millisecond, stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Given one blocked sink, the other recipients still get the event
	envelopes <- event.Envelope{To: []domain.ConnID{"conn-slow", "conn-ok"}, Payload: event.RoomList{}}

	select {
	case <-healthy.received:
	case <-time.After(time.Second):
		req.Fail("healthy sink starved by the slow one")
	}
	req.Eventually(func() bool { return stats.Snapshot().DroppedEvents == 1 },
		time.Second, 10*time.Millisecond)
}
