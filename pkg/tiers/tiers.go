// Package tiers defines the feature and limit gates for TrustWrapper's
// three product tiers: Community, Professional and Enterprise.
package tiers

import "github.com/trustwrapper/core/pkg/contracts"

// Limits bounds what a tier may do per unit time or per batch.
type Limits struct {
	MaxVerifiesPerSecond int   // -1 = unlimited
	MaxBatchSize         int   // largest VerifyBatch request accepted
	AuditRetentionDays   int   // -1 = unlimited (kept forever)
	ConcurrentProvers    int   // worker-pool size for batch ZK proving
}

// Profile is one tier's name, limits and gated features.
type Profile struct {
	ID       contracts.Tier
	Name     string
	Limits   Limits
	Features []string
}

const (
	FeatureBatchProving       = "batch_proving"
	FeatureSNARKAttestation   = "snark_attestation"
	FeatureSTARKAttestation   = "stark_attestation"
	FeatureHTTPAdapter        = "http_adapter"
	FeatureComplianceExport   = "compliance_export"
	FeatureColdArchive        = "cold_archive"
	FeatureRedisMirror        = "redis_mirror"
	FeatureLLMJudgeDetector   = "llm_judge_detector"
)

var (
	Community = Profile{
		ID:   contracts.TierCommunity,
		Name: "Community",
		Limits: Limits{
			MaxVerifiesPerSecond: 10,
			MaxBatchSize:         1,
			AuditRetentionDays:   30,
			ConcurrentProvers:    1,
		},
		Features: []string{},
	}

	Professional = Profile{
		ID:   contracts.TierProfessional,
		Name: "Professional",
		Limits: Limits{
			MaxVerifiesPerSecond: 500,
			MaxBatchSize:         64,
			AuditRetentionDays:   365,
			ConcurrentProvers:    4,
		},
		Features: []string{
			FeatureBatchProving,
			FeatureSNARKAttestation,
			FeatureHTTPAdapter,
			FeatureRedisMirror,
			FeatureLLMJudgeDetector,
		},
	}

	Enterprise = Profile{
		ID:   contracts.TierEnterprise,
		Name: "Enterprise",
		Limits: Limits{
			MaxVerifiesPerSecond: -1,
			MaxBatchSize:         4096,
			AuditRetentionDays:   -1,
			ConcurrentProvers:    16,
		},
		Features: []string{
			FeatureBatchProving,
			FeatureSNARKAttestation,
			FeatureSTARKAttestation,
			FeatureHTTPAdapter,
			FeatureComplianceExport,
			FeatureColdArchive,
			FeatureRedisMirror,
			FeatureLLMJudgeDetector,
		},
	}

	all = map[contracts.Tier]Profile{
		contracts.TierCommunity:    Community,
		contracts.TierProfessional: Professional,
		contracts.TierEnterprise:   Enterprise,
	}
)

// Get returns the Profile for id, or nil if id is not a recognised tier.
func Get(id contracts.Tier) *Profile {
	p, ok := all[id]
	if !ok {
		return nil
	}
	return &p
}

// HasFeature reports whether p's tier gates feature on.
func (p *Profile) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// IsUnlimited reports whether a Limits field sentinel value (-1) means
// unbounded.
func IsUnlimited(limit int) bool { return limit < 0 }
