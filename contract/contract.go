package contract

import (
	"chathub/domain"
	"chathub/domain/event"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself. The supervisor recovers its panics and
// restarts it.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one connection's receiving end. Consume must not block past
// the context deadline; a slow consumer loses events rather than stalling
// the fanout.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// ISessionRegistry maps live connections to their sinks. Membership of
// rooms is not tracked here; recipient resolution happens in the
// coordinator before an envelope is enqueued.
type ISessionRegistry interface {
	Subscribe(conn domain.ConnID, sink EventSink)
	Unsubscribe(conn domain.ConnID)
	Sink(conn domain.ConnID) (EventSink, bool)
	All() []EventSink
}

type ICoordinator interface {
	Dispatch(cmd domain.Command)
}
