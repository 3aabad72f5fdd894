package detectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestContradictionDetectorFlagsIsIsNotPair(t *testing.T) {
	d := NewContradictionDetector()
	resp := &contracts.Response{Text: "The market is bullish today. Later in the report: the market is not bullish."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.FactorFactualContradiction, f.Factor)
}

func TestContradictionDetectorFlagsAlwaysNeverPair(t *testing.T) {
	d := NewContradictionDetector()
	resp := &contracts.Response{Text: "This strategy always wins. This strategy never wins in a downturn."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.FactorFactualContradiction, f.Factor)
}

func TestContradictionDetectorAllowsConsistentText(t *testing.T) {
	d := NewContradictionDetector()
	resp := &contracts.Response{Text: "The market is bullish today and remains strong."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}

func TestContradictionDetectorDoesNotSelfMatchOnNegation(t *testing.T) {
	d := NewContradictionDetector()
	resp := &contracts.Response{Text: "The market is not bullish right now."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}
