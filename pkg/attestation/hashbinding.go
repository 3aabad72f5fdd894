package attestation

import (
	"bytes"
	"context"
	"crypto/sha256"

	"github.com/trustwrapper/core/pkg/contracts"
)

const hashBindingDomain = "trustwrapper:attestation:hashbinding:v1\x00"

// HashBindingScheme is the weakest registered scheme: it carries no
// zero-knowledge property and proves nothing about the witness at all.
// Its proof is a MAC-like digest over the public inputs, so a holder can
// confirm the public inputs were not tampered with independently of one
// another, but Verify would accept the same proof regardless of what
// the Verdict's trust-score composition actually was. Useful as the
// always-available fallback when a SNARK prover is unset up or over
// budget.
type HashBindingScheme struct{}

// NewHashBindingScheme constructs a HashBindingScheme. It needs no setup.
func NewHashBindingScheme() *HashBindingScheme { return &HashBindingScheme{} }

func (s *HashBindingScheme) Tag() contracts.ProofSchemeTag { return contracts.SchemeHashBindingOnly }

// Setup is a no-op; HashBindingScheme has no keys or circuits to prepare.
func (s *HashBindingScheme) Setup() error { return nil }

func (s *HashBindingScheme) Prove(_ context.Context, _ *Witness, public contracts.PublicInputs) ([]byte, error) {
	return bindingDigest(public)
}

func (s *HashBindingScheme) Verify(proof []byte, public contracts.PublicInputs) (bool, error) {
	want, err := bindingDigest(public)
	if err != nil {
		return false, err
	}
	return bytes.Equal(proof, want), nil
}

func bindingDigest(public contracts.PublicInputs) ([]byte, error) {
	wire, err := public.MarshalBinary()
	if err != nil {
		return nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "marshal public inputs for binding digest", err)
	}
	h := sha256.New()
	h.Write([]byte(hashBindingDomain))
	h.Write(wire)
	return h.Sum(nil), nil
}
