package detectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

type fakeDetector struct {
	name    string
	finding Finding
	sleep   time.Duration
	panics  bool
}

func (f *fakeDetector) Name() string { return f.name }

func (f *fakeDetector) Detect(ctx context.Context, resp *contracts.Response, now time.Time) Finding {
	if f.panics {
		panic("boom")
	}
	if f.sleep > 0 {
		select {
		case <-time.After(f.sleep):
		case <-ctx.Done():
		}
	}
	return f.finding
}

func TestRunCollectsNonZeroFindings(t *testing.T) {
	dets := []Detector{
		&fakeDetector{name: "a", finding: Finding{Factor: contracts.FactorTemporalError, Confidence: 0.9}},
		&fakeDetector{name: "b", finding: Finding{}},
	}
	findings := Run(context.Background(), dets, &contracts.Response{Text: "x"}, time.Now(), 50*time.Millisecond, 4)
	require.Len(t, findings, 1)
	require.Equal(t, contracts.FactorTemporalError, findings[0].Factor)
}

func TestRunConvertsTimeoutToDetectorTimeoutFactor(t *testing.T) {
	dets := []Detector{
		&fakeDetector{name: "slow", sleep: 100 * time.Millisecond, finding: Finding{Factor: contracts.FactorTemporalError, Confidence: 1}},
	}
	findings := Run(context.Background(), dets, &contracts.Response{Text: "x"}, time.Now(), 10*time.Millisecond, 4)
	require.Len(t, findings, 1)
	require.Equal(t, contracts.FactorDetectorTimeout, findings[0].Factor)
}

func TestRunRecoversPanicAsDetectorTimeoutFactor(t *testing.T) {
	dets := []Detector{
		&fakeDetector{name: "exploder", panics: true},
	}
	findings := Run(context.Background(), dets, &contracts.Response{Text: "x"}, time.Now(), 50*time.Millisecond, 4)
	require.Len(t, findings, 1)
	require.Equal(t, contracts.FactorDetectorTimeout, findings[0].Factor)
}

func TestRunIsBoundedByMaxConcurrency(t *testing.T) {
	dets := make([]Detector, 0, 8)
	for i := 0; i < 8; i++ {
		dets = append(dets, &fakeDetector{name: "d", finding: Finding{}})
	}
	findings := Run(context.Background(), dets, &contracts.Response{Text: "x"}, time.Now(), 50*time.Millisecond, 2)
	require.Empty(t, findings)
}
