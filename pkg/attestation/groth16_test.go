package attestation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestGroth16SchemeProveAndVerifyRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup compiles and runs a trusted setup; skipped in -short")
	}

	thresholds := contracts.RiskLevelThresholds{Low: 85, Medium: 70, High: 50}
	s := NewGroth16Scheme(thresholds)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Setup()) // idempotent

	public := contracts.PublicInputs{
		PolicyVersion:  1,
		CodeVersion:    1,
		Timestamp:      uint64(time.Now().Unix()),
		Recommendation: contracts.RecommendationCode(contracts.RecommendApprove),
		RiskLevel:      contracts.RiskLevelCode(contracts.RiskLow),
	}
	witness := &Witness{TrustScore: 92, Factors: 0}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	proofBlob, err := s.Prove(ctx, witness, public)
	require.NoError(t, err)

	ok, err := s.Verify(proofBlob, public)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGroth16SchemeRejectsBucketBelowClaimedFloor(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 setup compiles and runs a trusted setup; skipped in -short")
	}

	thresholds := contracts.RiskLevelThresholds{Low: 85, Medium: 70, High: 50}
	s := NewGroth16Scheme(thresholds)
	require.NoError(t, s.Setup())

	// A trust score of 10 cannot satisfy the "low risk" floor of 85; the
	// circuit's AssertIsLessOrEqual constraint must reject it at
	// witness-solving time, so Prove itself fails.
	public := contracts.PublicInputs{RiskLevel: contracts.RiskLevelCode(contracts.RiskLow)}
	witness := &Witness{TrustScore: 10, Factors: 0}

	_, err := s.Prove(context.Background(), witness, public)
	require.Error(t, err)
}

func TestGroth16SchemeProveFailsBeforeSetup(t *testing.T) {
	s := NewGroth16Scheme(contracts.RiskLevelThresholds{Low: 85, Medium: 70, High: 50})

	_, err := s.Prove(context.Background(), &Witness{TrustScore: 90}, contracts.PublicInputs{})
	require.Error(t, err)

	var verr *contracts.VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, contracts.ErrConfigInvalid, verr.Code)
}
