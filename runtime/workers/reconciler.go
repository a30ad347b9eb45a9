package workers

import (
	"context"
	"log/slog"

	"chatx/contract"
	"chatx/runtime"
)

// Reconciler is the out-of-band cleanup pass behind PARTIAL fan-out
// results: it consumes the stale connection handles the dispatcher
// reported and marks their owners offline. Keeping this outside dispatch
// keeps delivery latency independent of registry writes and makes the
// cleanup observable as its own unit of work.
type Reconciler struct {
	log      *slog.Logger
	registry *runtime.Registry
	reports  <-chan runtime.StaleReport
	closer   contract.Transport
}

func NewReconciler(log *slog.Logger, registry *runtime.Registry,
	reports <-chan runtime.StaleReport, closer contract.Transport) *Reconciler {
	return &Reconciler{log: log, registry: registry, reports: reports, closer: closer}
}

func (w *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping stale reconciliation")
			return nil
		case report, ok := <-w.reports:
			if !ok {
				return nil
			}
			w.reconcile(report)
		}
	}
}

// reconcile disconnects every reported handle. Each handle is handled
// independently: a store failure on one must not leave the rest stale.
func (w *Reconciler) reconcile(report runtime.StaleReport) {
	for _, connectionID := range report.ConnectionIDs {
		if _, err := w.registry.Disconnect(connectionID); err != nil {
			w.log.Error("stale cleanup failed", "connection_id", connectionID, "error", err)
			continue
		}
		if w.closer != nil {
			w.closer.Close(connectionID)
		}
		w.log.Info("stale connection reconciled", "connection_id", connectionID)
	}
}
