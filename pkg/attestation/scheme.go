// Package attestation implements the ZK Attestation component (C4): it
// binds a Verdict to a succinct, shareable proof that the Verdict was
// produced under a declared policy, without requiring the counterparty
// to trust TrustWrapper's word for it.
//
// Three ProofScheme variants are registered, matching the three
// contracts.ProofSchemeTag values: HashBindingScheme (no ZK property,
// cheapest, always available), Groth16Scheme (a real Groth16 SNARK over
// BN254 via gnark), and STARKScheme (an intentionally unimplemented
// placeholder — see New).
package attestation

import (
	"context"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Witness is the private data a ProofScheme binds into a proof. Only
// Groth16Scheme consults it (HashBindingScheme ignores it); it is never
// logged or persisted, since its whole point is to stay off the wire.
type Witness struct {
	TrustScore float64
	Factors    contracts.RiskFactors
}

// ProofScheme is the capability contract every proving backend
// implements: setup (once, expensive), prove (per Verdict, deadline
// bound), verify (cheap, used by any holder of the proof).
type ProofScheme interface {
	// Tag identifies this scheme in an Attestation's SchemeTag field.
	Tag() contracts.ProofSchemeTag

	// Setup performs one-time, potentially expensive preparation
	// (circuit compilation and trusted setup for SNARK schemes). It is
	// idempotent and safe to call more than once.
	Setup() error

	// Prove produces a proof binding witness to public. It must respect
	// ctx: a cancelled or expired ctx yields an ErrProveTimeout
	// VerifyError rather than blocking past the caller's deadline.
	Prove(ctx context.Context, witness *Witness, public contracts.PublicInputs) ([]byte, error)

	// Verify checks a proof produced by Prove against public. A (false,
	// nil) return means the proof is well-formed but does not hold; a
	// non-nil error means the proof or scheme state could not even be
	// evaluated.
	Verify(proof []byte, public contracts.PublicInputs) (bool, error)
}

// New builds the ProofScheme registered for tag. thresholds parameterizes
// Groth16Scheme's risk-bucket circuit; it is ignored by the other
// schemes.
func New(tag contracts.ProofSchemeTag, thresholds contracts.RiskLevelThresholds) (ProofScheme, error) {
	switch tag {
	case contracts.SchemeHashBindingOnly:
		return NewHashBindingScheme(), nil
	case contracts.SchemeSNARKGroth16Style:
		return NewGroth16Scheme(thresholds), nil
	case contracts.SchemeSTARKStyle:
		return NewSTARKScheme(), nil
	default:
		return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "unknown proof scheme tag", nil)
	}
}
