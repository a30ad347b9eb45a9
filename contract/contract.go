package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
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

// Transport is the bidirectional push collaborator. A connection handle is
// opaque here; only the transport knows what stands behind it. IsStale is
// the failure-classification hook: it must report true exactly when the
// endpoint is confirmed gone, so the dispatcher's stale/error distinction
// stays portable across transports.
type Transport interface {
	Push(ctx context.Context, connectionID string, data []byte) error
	IsStale(err error) bool
	Close(connectionID string)
}
