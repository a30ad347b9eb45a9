package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"chatx/contract"
	"chatx/domain/event"
	"chatx/metrics"
)

// StaleReport carries the connection handles one dispatch call found gone.
// It is the trigger signal for the out-of-band reconciliation pass; the
// dispatcher itself never touches registry state.
type StaleReport struct {
	ConnectionIDs []string
}

// Dispatcher pushes one serialized envelope to many target connections
// concurrently. A failure on one target never blocks or fails delivery to
// the others; each push is bounded by its own timeout, after which it
// counts as a transport error rather than a stale endpoint.
type Dispatcher struct {
	transport    contract.Transport
	log          *slog.Logger
	pushTimeout  time.Duration
	staleReports chan<- StaleReport
}

func NewDispatcher(transport contract.Transport, log *slog.Logger,
	pushTimeout time.Duration, staleReports chan<- StaleReport) *Dispatcher {
	return &Dispatcher{
		transport:    transport,
		log:          log,
		pushTimeout:  pushTimeout,
		staleReports: staleReports,
	}
}

// Dispatch serializes the envelope once and scatters it to every target.
// Per-target outcomes are classified through the transport's stale hook and
// aggregated per the fan-out rules: all delivered is OK, stale-only is
// PARTIAL, any other failure is FAILED. On PARTIAL the stale handles are
// handed to the reconciler channel without blocking the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []string, env event.Envelope) (event.DispatchReport, error) {
	data, err := env.Encode()
	if err != nil {
		return event.DispatchReport{Result: event.ResultFailed}, err
	}

	outcomes := make([]event.TargetOutcome, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			pushCtx, cancel := context.WithTimeout(ctx, d.pushTimeout)
			defer cancel()
			outcomes[i] = d.pushOne(pushCtx, target, data)
		}(i, target)
	}
	wg.Wait()

	report := event.Aggregate(outcomes)
	metrics.DispatchesTotal.WithLabelValues(string(report.Result)).Inc()
	if len(report.Stale) > 0 {
		metrics.StaleConnectionsTotal.Add(float64(len(report.Stale)))
	}
	if report.Result == event.ResultPartial {
		d.reportStale(report.Stale)
	}
	return report, nil
}

func (d *Dispatcher) pushOne(ctx context.Context, target string, data []byte) event.TargetOutcome {
	err := d.transport.Push(ctx, target, data)
	switch {
	case err == nil:
		return event.TargetOutcome{ConnectionID: target, Outcome: event.Delivered}
	case d.transport.IsStale(err):
		d.log.Warn("stale target during fan-out", "connection_id", target)
		return event.TargetOutcome{ConnectionID: target, Outcome: event.Stale, Err: err}
	default:
		d.log.Error("push failed", "connection_id", target, "error", err)
		return event.TargetOutcome{ConnectionID: target, Outcome: event.TransportError, Err: err}
	}
}

// reportStale hands the stale handles to the reconciler. The channel is
// buffered; if the reconciler is behind, the report is dropped and the
// handles will resurface on the next PARTIAL dispatch.
func (d *Dispatcher) reportStale(connectionIDs []string) {
	if d.staleReports == nil {
		return
	}
	select {
	case d.staleReports <- StaleReport{ConnectionIDs: connectionIDs}:
	default:
		d.log.Warn("stale report dropped, reconciler backlogged", "count", len(connectionIDs))
	}
}
