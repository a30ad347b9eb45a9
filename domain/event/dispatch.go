package event

// Outcome classifies one push attempt against one target connection.
type Outcome string

const (
	Delivered      Outcome = "DELIVERED"
	Stale          Outcome = "STALE"
	TransportError Outcome = "TRANSPORT_ERROR"
)

// FanoutResult aggregates the per-target outcomes of one dispatch call.
type FanoutResult string

const (
	ResultOK      FanoutResult = "OK"
	ResultPartial FanoutResult = "PARTIAL"
	ResultFailed  FanoutResult = "FAILED"
)

// TargetOutcome records what happened to a single connection.
type TargetOutcome struct {
	ConnectionID string
	Outcome      Outcome
	Err          error
}

// DispatchReport is the aggregate a dispatch call hands back to the router.
// Stale lists the handles the transport confirmed gone; they are the input
// of the out-of-band reconciliation pass, never cleaned up inline.
type DispatchReport struct {
	Result   FanoutResult
	Targets  []TargetOutcome
	Stale    []string
	Failures int
}

// Aggregate derives the fan-out result from per-target outcomes:
// all delivered is OK, stale-only degradation is PARTIAL (the message
// counts as sent), any other transport failure is FAILED.
func Aggregate(targets []TargetOutcome) DispatchReport {
	report := DispatchReport{Targets: targets, Result: ResultOK}
	for _, t := range targets {
		switch t.Outcome {
		case Stale:
			report.Stale = append(report.Stale, t.ConnectionID)
		case TransportError:
			report.Failures++
		}
	}
	if report.Failures > 0 {
		report.Result = ResultFailed
		return report
	}
	if len(report.Stale) > 0 {
		report.Result = ResultPartial
	}
	return report
}
