package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyWorker struct {
	runs       atomic.Int32
	panicsLeft int32
}

func (w *flakyWorker) Run(ctx context.Context) error {
	run := w.runs.Add(1)
	if run <= w.panicsLeft {
		panic("boom")
	}
	return nil
}

type stubbornWorker struct {
	runs atomic.Int32
}

func (w *stubbornWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	return errors.New("always failing")
}

func TestSupervisor_Restarts_Panicking_Worker(t *testing.T) {
	req := require.New(t)

	// Given a worker that panics twice before finishing cleanly
	worker := &flakyWorker{panicsLeft: 2}
	sup := NewSupervisor(slog.Default(), time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(context.Background())
	}()

	// Then the supervisor restarts it until it terminates on its own
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor never drained")
	}
	req.Equal(int32(3), worker.runs.Load())
}

func TestSupervisor_Stop_Halts_Failing_Worker(t *testing.T) {
	req := require.New(t)

	// Given a worker that errors on every run
	worker := &stubbornWorker{}
	sup := NewSupervisor(slog.Default(), 5*time.Millisecond)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(context.Background())
	}()

	// When the supervisor is stopped mid restart loop
	time.Sleep(20 * time.Millisecond)
	sup.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor did not stop")
	}
	req.GreaterOrEqual(worker.runs.Load(), int32(1))
}

func TestSupervisor_Parent_Context_Cancels_Workers(t *testing.T) {
	req := require.New(t)

	worker := &stubbornWorker{}
	sup := NewSupervisor(slog.Default(), time.Minute)
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sup.Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor ignored parent cancellation")
	}
}
