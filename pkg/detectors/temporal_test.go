package detectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestTemporalDetectorFlagsFutureEventAssertedAsPast(t *testing.T) {
	d := NewTemporalDetector()
	now := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	resp := &contracts.Response{Text: "The 2035 Olympics in Brisbane concluded last month."}

	f := d.Detect(context.Background(), resp, now)
	require.Equal(t, contracts.FactorTemporalError, f.Factor)
}

func TestTemporalDetectorAllowsOrdinaryForwardLookingClaim(t *testing.T) {
	d := NewTemporalDetector()
	now := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	resp := &contracts.Response{Text: "The 2028 Olympics will be held in Los Angeles."}

	f := d.Detect(context.Background(), resp, now)
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}

func TestTemporalDetectorFlagsImplausiblyDistantYear(t *testing.T) {
	d := NewTemporalDetector()
	now := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	resp := &contracts.Response{Text: "In 2099 the company will still be profitable."}

	f := d.Detect(context.Background(), resp, now)
	require.Equal(t, contracts.FactorTemporalError, f.Factor)
}

func TestTemporalDetectorIgnoresPastYears(t *testing.T) {
	d := NewTemporalDetector()
	now := time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)
	resp := &contracts.Response{Text: "The 2012 Olympics concluded in London."}

	f := d.Detect(context.Background(), resp, now)
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}
