package attestation

import (
	"context"

	"github.com/trustwrapper/core/pkg/contracts"
)

// STARKScheme is a documented placeholder. No STARK prover exists
// anywhere in the retrieved corpus, and faking one would mean inventing
// cryptography rather than learning it from a real example, so every
// method fails closed with ErrSchemeUnavailable instead of silently
// downgrading to a weaker scheme the caller didn't ask for.
type STARKScheme struct{}

// NewSTARKScheme constructs the placeholder scheme.
func NewSTARKScheme() *STARKScheme { return &STARKScheme{} }

func (s *STARKScheme) Tag() contracts.ProofSchemeTag { return contracts.SchemeSTARKStyle }

func (s *STARKScheme) Setup() error {
	return contracts.NewVerifyError(contracts.ErrSchemeUnavailable, "stark proof scheme not implemented", nil)
}

func (s *STARKScheme) Prove(context.Context, *Witness, contracts.PublicInputs) ([]byte, error) {
	return nil, contracts.NewVerifyError(contracts.ErrSchemeUnavailable, "stark proof scheme not implemented", nil)
}

func (s *STARKScheme) Verify([]byte, contracts.PublicInputs) (bool, error) {
	return false, contracts.NewVerifyError(contracts.ErrSchemeUnavailable, "stark proof scheme not implemented", nil)
}
