package attestation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestAttestorAttestAndVerifyRoundTrip(t *testing.T) {
	scheme := NewHashBindingScheme()
	require.NoError(t, scheme.Setup())

	a := NewAttestor(scheme)
	verdict := &contracts.Verdict{
		TrustScore:     92,
		RiskLevel:      contracts.RiskLow,
		Recommendation: contracts.RecommendApprove,
		Factors:        0,
		EvaluatedAt:    time.Now(),
		PolicyVersion:  3,
		CodeVersion:    7,
	}

	att, err := a.Attest(context.Background(), verdict)
	require.NoError(t, err)
	require.Equal(t, contracts.SchemeHashBindingOnly, att.SchemeTag)
	require.Equal(t, uint32(3), att.PublicInputs.PolicyVersion)
	require.Equal(t, uint32(7), att.PublicInputs.CodeVersion)
	require.Equal(t, contracts.RecommendationCode(contracts.RecommendApprove), att.PublicInputs.Recommendation)

	ok, err := VerifyAttestation(scheme, verdict, att)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyAttestationRejectsSchemeTagMismatch(t *testing.T) {
	hb := NewHashBindingScheme()
	verdict := &contracts.Verdict{TrustScore: 92, Recommendation: contracts.RecommendApprove, EvaluatedAt: time.Now()}
	att := &contracts.Attestation{SchemeTag: contracts.SchemeSNARKGroth16Style}

	ok, err := VerifyAttestation(hb, verdict, att)
	require.Error(t, err)
	require.False(t, ok)
}

func TestVerifyAttestationRejectsMismatchedVerdict(t *testing.T) {
	scheme := NewHashBindingScheme()
	require.NoError(t, scheme.Setup())
	a := NewAttestor(scheme)

	original := &contracts.Verdict{
		TrustScore:     92,
		RiskLevel:      contracts.RiskLow,
		Recommendation: contracts.RecommendApprove,
		EvaluatedAt:    time.Now(),
		PolicyVersion:  3,
		CodeVersion:    7,
	}
	att, err := a.Attest(context.Background(), original)
	require.NoError(t, err)

	tampered := &contracts.Verdict{
		TrustScore:     5,
		RiskLevel:      contracts.RiskCritical,
		Recommendation: contracts.RecommendReject,
		EvaluatedAt:    original.EvaluatedAt,
		PolicyVersion:  3,
		CodeVersion:    7,
	}

	ok, err := VerifyAttestation(scheme, tampered, att)
	require.NoError(t, err)
	require.False(t, ok, "attestation for one verdict must not verify against a different verdict")
}

func TestAttestorPropagatesSchemeUnavailable(t *testing.T) {
	star := NewSTARKScheme()
	a := NewAttestor(star)

	verdict := &contracts.Verdict{
		TrustScore:     50,
		RiskLevel:      contracts.RiskMedium,
		Recommendation: contracts.RecommendReview,
		EvaluatedAt:    time.Now(),
	}

	_, err := a.Attest(context.Background(), verdict)
	require.Error(t, err)

	var verr *contracts.VerifyError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, contracts.ErrSchemeUnavailable, verr.Code)
}
