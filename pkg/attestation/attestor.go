package attestation

import (
	"context"
	"time"

	"github.com/trustwrapper/core/pkg/canonicalize"
	"github.com/trustwrapper/core/pkg/contracts"
)

// Attestor binds Verdicts to Attestations using one configured
// ProofScheme. scheme must already have had Setup called.
type Attestor struct {
	scheme ProofScheme
	now    func() time.Time
}

// NewAttestor builds an Attestor around scheme.
func NewAttestor(scheme ProofScheme) *Attestor {
	return &Attestor{scheme: scheme, now: time.Now}
}

// Attest produces an Attestation for verdict. A PROVE_TIMEOUT (or
// SCHEME_UNAVAILABLE) error propagates as-is: per the verification
// pipeline's failure semantics, the caller still has the bare Verdict
// and may emit it without an Attestation rather than fail the request.
func (a *Attestor) Attest(ctx context.Context, verdict *contracts.Verdict) (*contracts.Attestation, error) {
	commitment, err := verdict.Commitment(canonicalize.JCS)
	if err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "canonicalize verdict for commitment", err)
	}

	public := contracts.PublicInputs{
		PolicyVersion:     uint32(verdict.PolicyVersion),
		CodeVersion:       uint32(verdict.CodeVersion),
		Timestamp:         uint64(a.now().Unix()),
		VerdictCommitment: commitment,
		Recommendation:    contracts.RecommendationCode(verdict.Recommendation),
		RiskLevel:         contracts.RiskLevelCode(verdict.RiskLevel),
	}

	witness := &Witness{TrustScore: verdict.TrustScore, Factors: verdict.Factors}
	proofBlob, err := a.scheme.Prove(ctx, witness, public)
	if err != nil {
		return nil, err
	}

	return &contracts.Attestation{
		VerdictCommitment: commitment,
		ProofBlob:         proofBlob,
		PublicInputs:      public,
		SchemeTag:         a.scheme.Tag(),
		CreatedAt:         a.now(),
	}, nil
}

// VerifyAttestation checks that att actually binds to verdict before
// trusting scheme.Verify at all: it independently recomputes
// verdict.Commitment() and requires it to match both att.VerdictCommitment
// and the commitment att.PublicInputs itself carries. Without this, a
// caller could feed any Attestation alongside an unrelated Verdict and
// have it "verify" against its own, self-consistent fields — the proof
// would be valid, but for the wrong Verdict. A scheme/tag mismatch is
// rejected without invoking the scheme at all, since a proof from one
// scheme is meaningless to another.
func VerifyAttestation(scheme ProofScheme, verdict *contracts.Verdict, att *contracts.Attestation) (bool, error) {
	if att.SchemeTag != scheme.Tag() {
		return false, contracts.NewVerifyError(contracts.ErrConfigInvalid, "attestation scheme tag does not match verifier", nil)
	}

	expected, err := expectedPublicInputs(verdict, att.PublicInputs.Timestamp)
	if err != nil {
		return false, contracts.NewVerifyError(contracts.ErrInputMalformed, "canonicalize verdict for commitment", err)
	}
	if expected.VerdictCommitment != att.VerdictCommitment {
		return false, nil
	}
	if expected != att.PublicInputs {
		return false, nil
	}

	return scheme.Verify(att.ProofBlob, att.PublicInputs)
}

// expectedPublicInputs derives the PublicInputs a correct Attestation of
// verdict must carry, independent of anything an Attestation claims about
// itself. proveTimestamp is taken from the Attestation under test, since
// the verifier has no way to know the exact prove-time clock reading.
func expectedPublicInputs(verdict *contracts.Verdict, proveTimestamp uint64) (contracts.PublicInputs, error) {
	commitment, err := verdict.Commitment(canonicalize.JCS)
	if err != nil {
		return contracts.PublicInputs{}, err
	}
	return contracts.PublicInputs{
		PolicyVersion:     uint32(verdict.PolicyVersion),
		CodeVersion:       uint32(verdict.CodeVersion),
		Timestamp:         proveTimestamp,
		VerdictCommitment: commitment,
		Recommendation:    contracts.RecommendationCode(verdict.Recommendation),
		RiskLevel:         contracts.RiskLevelCode(verdict.RiskLevel),
	}, nil
}
