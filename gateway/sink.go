package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"chathub/domain/event"
)

var errSinkClosed = errors.New("sink closed")

// connSink is the per-connection receiving end of the fanout. Events are
// marshaled here, in the fanout goroutine, and handed to the write loop
// through a buffered channel. The websocket writer is the only reader, so
// the single-writer constraint of gorilla/websocket holds.
type connSink struct {
	log    *slog.Logger
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newConnSink(log *slog.Logger, buffer int) *connSink {
	return &connSink{
		log:    log,
		out:    make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

// Consume implements contract.EventSink. It blocks until the frame is
// queued, the delivery context expires, or the connection is gone.
func (s *connSink) Consume(ctx context.Context, e event.Event) error {
	data, err := encodeEvent(e)
	if err != nil {
		return err
	}
	return s.send(ctx, data)
}

// Ack queues an acknowledgment frame. Acks run on the coordinator
// goroutine, so a dead connection must not block: a closed or saturated
// sink drops the ack.
func (s *connSink) Ack(seq uint64, data []byte) {
	select {
	case s.out <- data:
	case <-s.closed:
	default:
		s.log.Warn("Ack dropped, connection too slow", "seq", seq)
	}
}

func (s *connSink) send(ctx context.Context, data []byte) error {
	select {
	case s.out <- data:
		return nil
	case <-s.closed:
		return errSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the write loop. Idempotent; both the read loop and the
// write loop may call it on their way out.
func (s *connSink) Close() {
	s.once.Do(func() { close(s.closed) })
}
