package detectors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestCitationDetectorFlagsKnownFabricatedVenue(t *testing.T) {
	d := NewCitationDetector()
	resp := &contracts.Response{Text: "This claim is supported (Journal of Universal Science, Vol. 12)."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.FactorFabricatedCitation, f.Factor)
}

func TestCitationDetectorFlagsMalformedDOI(t *testing.T) {
	d := NewCitationDetector()
	resp := &contracts.Response{Text: "See the paper, doi: not-a-real-doi"}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.FactorFabricatedCitation, f.Factor)
}

func TestCitationDetectorAllowsWellFormedDOI(t *testing.T) {
	d := NewCitationDetector()
	resp := &contracts.Response{Text: "See the paper, doi: 10.1038/s41586-020-2649-2"}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}

func TestCitationDetectorAllowsOrdinaryParenthetical(t *testing.T) {
	d := NewCitationDetector()
	resp := &contracts.Response{Text: "The result was surprising (though expected by some)."}

	f := d.Detect(context.Background(), resp, time.Now())
	require.Equal(t, contracts.RiskFactor(0), f.Factor)
}
