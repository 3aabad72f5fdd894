package attestation

import "github.com/consensys/gnark/frontend"

// VerdictCircuit proves that a hidden trust score and risk-factor
// bitset are consistent with the risk bucket the Verdict publicly
// claims, without revealing the score or the factor bits themselves.
//
// Hashing the full canonical Verdict inside the circuit would need a
// SHA-256 gadget; BucketCommitment instead binds the private fields
// with a simplified polynomial combination, the same stand-in a real
// hash the example BLS circuit in this corpus uses for its own pubkey
// commitment. The outer Attestation still carries a real sha256-based
// VerdictCommitment computed at the application layer over the
// canonical Verdict (see canonicalize.JCS and Verdict.Commitment) —
// this circuit's job is narrower: prove that whoever submitted the
// proof knew private values landing in the claimed bucket.
type VerdictCircuit struct {
	BucketCommitment frontend.Variable `gnark:",public"`
	RiskLevel        frontend.Variable `gnark:",public"`

	TrustScoreFixed frontend.Variable
	FactorsBits     frontend.Variable
	Nonce           frontend.Variable

	// Threshold constants are baked in at compile time from the
	// deployment's RiskLevelThresholds. They are plain Go fields, not
	// frontend.Variable, so they never appear in the witness or in the
	// proof's public inputs: changing them means recompiling the
	// circuit, which is an accepted cost of a policy reload that
	// changes risk thresholds.
	LowThreshold    int64
	MediumThreshold int64
	HighThreshold   int64
}

// Define implements frontend.Circuit.
func (c *VerdictCircuit) Define(api frontend.API) error {
	computed := bucketCommitment(api, c.TrustScoreFixed, c.FactorsBits, c.Nonce)
	api.AssertIsEqual(c.BucketCommitment, computed)

	isLow := api.IsZero(api.Sub(c.RiskLevel, 0))
	isMedium := api.IsZero(api.Sub(c.RiskLevel, 1))
	isHigh := api.IsZero(api.Sub(c.RiskLevel, 2))

	floor := api.Select(isLow, c.LowThreshold,
		api.Select(isMedium, c.MediumThreshold,
			api.Select(isHigh, c.HighThreshold, 0)))

	// The claimed bucket's floor must not exceed the hidden trust
	// score: a prover cannot claim "low risk" for a score that only
	// clears the "high risk" floor.
	api.AssertIsLessOrEqual(floor, c.TrustScoreFixed)

	return nil
}

// bucketCommitment mirrors the simplified polynomial commitment
// computePubkeyCommitment uses in place of a real hash:
// commitment = a + b*r + c*r^2 for a fixed mixing coefficient r.
func bucketCommitment(api frontend.API, trustScoreFixed, factorsBits, nonce frontend.Variable) frontend.Variable {
	r := frontend.Variable(7)
	result := trustScoreFixed
	result = api.Add(result, api.Mul(factorsBits, r))
	r2 := api.Mul(r, r)
	result = api.Add(result, api.Mul(nonce, r2))
	return result
}
