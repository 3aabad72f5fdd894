// Package observability provides OpenTelemetry tracing and RED metrics
// for the wrapper runtime's verify/verify_batch/attest pipeline, plus
// SLI/SLO tracking against their latency budgets.
//
// # Tracing and metrics
//
// Initialize a provider at application startup:
//
//	p, err := observability.New(ctx, observability.DefaultConfig())
//	defer p.Shutdown(ctx)
//
// Track an operation end-to-end with one call:
//
//	ctx, done := p.TrackOperation(ctx, "verify", observability.VerdictOperation(
//		decisionID, agentHandle, string(verdict.RiskLevel), string(verdict.Recommendation), verdict.TrustScore,
//	)...)
//	verdict, err := engine.Evaluate(ctx, decision)
//	done(err)
//
// # SLOs
//
// Set a latency/success-rate target per operation and record outcomes:
//
//	tracker := observability.NewSLOTracker()
//	tracker.SetTarget(&observability.SLOTarget{Operation: "verify", LatencyP99: 200 * time.Millisecond, SuccessRate: 0.999, WindowHours: 1})
//	tracker.Record(observability.SLOObservation{Operation: "verify", Latency: elapsed, Success: !verdict.DeadlineHit})
package observability
