// Package detectors implements hallucination screening for Response
// decisions: a bounded fan-out of independent detectors, each yielding
// a (factor, confidence, evidence) finding, combined by the caller
// into a Verdict's factor set and trust penalty.
package detectors

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Finding is one detector's verdict on a Response's text.
type Finding struct {
	Factor     contracts.RiskFactor
	Confidence float64
	Evidence   string
}

// Detector screens a Response for one kind of hallucination. Detect
// must be deterministic given (text, now, its own configuration) —
// the LLM judge is the one exception, documented on its own type.
// A Detector that finds nothing returns a zero Finding (Factor == 0).
type Detector interface {
	Name() string
	Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding
}

// Run fans Detectors out over a bounded worker pool, gives each one
// its own deadline, and recovers a detector panic into a
// FactorDetectorTimeout finding rather than losing the whole batch.
// The absence of a signal is not a negative signal: a timed-out or
// panicking detector contributes zero trust penalty of its own, but
// the FactorDetectorTimeout bit it sets may itself be hard-blocked by
// policy.
func Run(ctx context.Context, dets []Detector, resp *contracts.Response, now time.Time, perDetectorDeadline time.Duration, maxConcurrency int) []Finding {
	findings := make([]Finding, len(dets))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	for i, d := range dets {
		i, d := i, d
		g.Go(func() (err error) {
			findings[i] = runOne(gctx, d, resp, now, perDetectorDeadline)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error; Wait only joins the pool

	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Factor != 0 {
			out = append(out, f)
		}
	}
	return out
}

func runOne(ctx context.Context, d Detector, resp *contracts.Response, now time.Time, deadline time.Duration) (finding Finding) {
	dctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan Finding, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Finding{
					Factor:     contracts.FactorDetectorTimeout,
					Confidence: 0,
					Evidence:   fmt.Sprintf("detector %s panicked: %v", d.Name(), r),
				}
				return
			}
		}()
		done <- d.Detect(dctx, resp, now)
	}()

	select {
	case f := <-done:
		return f
	case <-dctx.Done():
		return Finding{
			Factor:     contracts.FactorDetectorTimeout,
			Confidence: 0,
			Evidence:   fmt.Sprintf("detector %s exceeded its deadline", d.Name()),
		}
	}
}
