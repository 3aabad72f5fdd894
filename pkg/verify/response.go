package verify

import (
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/detectors"
)

// hallucinationFactorMask is every bit a detector finding can set that
// should also raise the umbrella FactorHallucinationDetected flag.
// FactorDetectorTimeout is deliberately excluded: a timeout is an
// absence of signal, not a hallucination signal.
const hallucinationFactorMask = contracts.FactorTemporalError |
	contracts.FactorFabricatedCitation |
	contracts.FactorFactualContradiction |
	contracts.FactorHallucinationDetected

// foldFindings combines a detector pipeline's findings into a
// RiskFactors bitset, the maximum confidence across any firing
// detector (timeouts excluded, since they carry zero confidence by
// construction), and a per-finding Explanation trail.
func foldFindings(findings []detectors.Finding) (contracts.RiskFactors, float64, []contracts.Explanation) {
	var factors contracts.RiskFactors
	var maxConfidence float64
	explanations := make([]contracts.Explanation, 0, len(findings))

	for _, f := range findings {
		factors = factors.Set(f.Factor)
		if f.Factor != contracts.FactorDetectorTimeout && f.Confidence > maxConfidence {
			maxConfidence = f.Confidence
		}
		explanations = append(explanations, contracts.Explanation{Factor: f.Factor, Weight: f.Confidence, Message: f.Evidence})
	}
	if factors.Intersects(hallucinationFactorMask) {
		factors = factors.Set(contracts.FactorHallucinationDetected)
	}
	return factors, maxConfidence, explanations
}

// dangerTier buckets a Response's hallucination signal into a
// human-facing severity, scaled by both breadth (how many distinct
// kinds of hallucination fired) and depth (the strongest confidence
// among them).
type dangerTier string

const (
	dangerNone     dangerTier = "none"
	dangerLow      dangerTier = "low"
	dangerMedium   dangerTier = "medium"
	dangerHigh     dangerTier = "high"
	dangerCritical dangerTier = "critical"
)

// distinctHallucinationKinds counts how many independent detector
// categories fired. The judge is its own kind of signal but shares a
// bit with the umbrella flag, so it counts only when no specific
// detector fired alongside it.
func distinctHallucinationKinds(factors contracts.RiskFactors) int {
	distinctKinds := 0
	for _, bit := range []contracts.RiskFactor{
		contracts.FactorTemporalError,
		contracts.FactorFabricatedCitation,
		contracts.FactorFactualContradiction,
	} {
		if factors.Has(bit) {
			distinctKinds++
		}
	}
	if distinctKinds == 0 && factors.Has(contracts.FactorHallucinationDetected) {
		distinctKinds = 1
	}
	return distinctKinds
}

// responseDangerTier is the dangerTier a Response's folded findings land
// in, shared by dangerTierPenalty and the hard-block gate in Engine.Evaluate.
func responseDangerTier(factors contracts.RiskFactors, maxConfidence float64) dangerTier {
	return tierFor(distinctHallucinationKinds(factors), maxConfidence)
}

// dangerTierPenalty adds a fixed trust penalty on top of the
// confidence-proportional degradation, so two detectors independently
// corroborating a hallucination costs more than one detector alone
// even at the same confidence.
func dangerTierPenalty(factors contracts.RiskFactors, maxConfidence float64) float64 {
	switch responseDangerTier(factors, maxConfidence) {
	case dangerCritical:
		return 30
	case dangerHigh:
		return 20
	case dangerMedium:
		return 10
	case dangerLow:
		return 5
	default:
		return 0
	}
}

func tierFor(distinctKinds int, maxConfidence float64) dangerTier {
	switch {
	case distinctKinds >= 3 || maxConfidence >= 0.9:
		return dangerCritical
	case distinctKinds == 2 || maxConfidence >= 0.7:
		return dangerHigh
	case distinctKinds == 1 && maxConfidence >= 0.4:
		return dangerMedium
	case distinctKinds == 1:
		return dangerLow
	default:
		return dangerNone
	}
}

// aggregateResponseTrust degrades trust by the strongest detector
// confidence plus the danger-tier penalty, clamped to [0,100].
func aggregateResponseTrust(maxConfidence, tierPenalty float64) float64 {
	return clamp(100*(1-maxConfidence)-tierPenalty, 0, 100)
}
