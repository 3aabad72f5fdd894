package contracts

import "strings"

// RiskFactor is a single bit in the RiskFactors bitset.
type RiskFactor uint32

const (
	FactorHighVolatility RiskFactor = 1 << iota
	FactorThinLiquidity
	FactorOversizedPosition
	FactorStaleOracle
	FactorConsensusBreak
	FactorPolicyBreach
	FactorHallucinationDetected
	FactorTemporalError
	FactorFabricatedCitation
	FactorFactualContradiction
	FactorDetectorTimeout
	FactorHallucinationCritical
)

// orderedFactors fixes the iteration order used when rendering a
// RiskFactors value to names, so canonical encoding is deterministic.
var orderedFactors = []struct {
	Bit  RiskFactor
	Name string
}{
	{FactorHighVolatility, "HIGH_VOLATILITY"},
	{FactorThinLiquidity, "THIN_LIQUIDITY"},
	{FactorOversizedPosition, "OVERSIZED_POSITION"},
	{FactorStaleOracle, "STALE_ORACLE"},
	{FactorConsensusBreak, "CONSENSUS_BREAK"},
	{FactorPolicyBreach, "POLICY_BREACH"},
	{FactorHallucinationDetected, "HALLUCINATION_DETECTED"},
	{FactorTemporalError, "TEMPORAL_ERROR"},
	{FactorFabricatedCitation, "FABRICATED_CITATION"},
	{FactorFactualContradiction, "FACTUAL_CONTRADICTION"},
	{FactorDetectorTimeout, "DETECTOR_TIMEOUT"},
	{FactorHallucinationCritical, "HALLUCINATION_CRITICAL"},
}

// RiskFactors is a bitset of RiskFactor values.
type RiskFactors uint32

// Set returns a new RiskFactors with f added.
func (r RiskFactors) Set(f RiskFactor) RiskFactors { return RiskFactors(uint32(r) | uint32(f)) }

// Has reports whether f is present.
func (r RiskFactors) Has(f RiskFactor) bool { return uint32(r)&uint32(f) != 0 }

// Intersects reports whether r shares any bit with other.
func (r RiskFactors) Intersects(other RiskFactors) bool { return uint32(r)&uint32(other) != 0 }

// Names returns the human-readable names of every set bit, in a fixed
// declaration order (required for deterministic canonical encoding).
func (r RiskFactors) Names() []string {
	var out []string
	for _, e := range orderedFactors {
		if r.Has(e.Bit) {
			out = append(out, e.Name)
		}
	}
	return out
}

func (r RiskFactors) String() string { return strings.Join(r.Names(), "|") }

// ParseRiskFactor resolves a factor's canonical name (e.g.
// "POLICY_BREACH") back to its bit, for PolicyRule documents that name
// factors as strings.
func ParseRiskFactor(name string) (RiskFactor, bool) {
	for _, e := range orderedFactors {
		if e.Name == name {
			return e.Bit, true
		}
	}
	return 0, false
}
