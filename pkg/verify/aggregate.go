package verify

import "github.com/trustwrapper/core/pkg/contracts"

// mapRiskLevel buckets trust against the configured cut points. Ties
// land on the more conservative (higher-risk) side: a trust score
// exactly equal to a threshold does not qualify for the lower-risk
// bucket it names.
func mapRiskLevel(t contracts.RiskLevelThresholds, trust float64) contracts.RiskLevel {
	switch {
	case trust > t.Low:
		return contracts.RiskLow
	case trust > t.Medium:
		return contracts.RiskMedium
	case trust > t.High:
		return contracts.RiskHigh
	default:
		return contracts.RiskCritical
	}
}

// mapRecommendation applies reject > review > approve precedence:
// reject is decided first (hard block or trust below the reject
// ceiling), approve only if neither reject condition holds and trust
// clears the approve floor with no detector coverage gap, else review.
func mapRecommendation(cfg *contracts.PolicyConfig, trust float64, factors contracts.RiskFactors) contracts.Recommendation {
	if factors.Intersects(cfg.HardBlockSet) || trust < cfg.RejectCeiling {
		return contracts.RecommendReject
	}
	if trust >= cfg.ApproveFloor && !factors.Has(contracts.FactorDetectorTimeout) {
		return contracts.RecommendApprove
	}
	return contracts.RecommendReview
}
