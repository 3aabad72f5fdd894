package contracts

import "time"

// Tier gates feature availability.
type Tier string

const (
	TierCommunity    Tier = "community"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

// PolicyConfig is the full set of recognised configuration knobs
// governing oracle consensus, verification, and runtime budgets.
// Loaded once at startup; hot-reload, when enabled, swaps the whole
// value atomically so readers never see a partial update.
//
//nolint:govet // fieldalignment: struct layout kept human-readable
type PolicyConfig struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`

	MinSources                 int                 `json:"min_sources" yaml:"min_sources"`
	SampleWindow               int                 `json:"sample_window" yaml:"sample_window"`
	MaxSampleAge               Duration            `json:"max_sample_age" yaml:"max_sample_age"`
	OutlierThreshold           float64             `json:"outlier_threshold" yaml:"outlier_threshold"`
	ManipulationAlertThreshold float64             `json:"manipulation_alert_threshold" yaml:"manipulation_alert_threshold"`
	ManipulationWeights        ManipulationWeights `json:"manipulation_weights" yaml:"manipulation_weights"`

	MaxMarketStaleness Duration `json:"max_market_staleness" yaml:"max_market_staleness"`

	CacheTTL         Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CacheBytesBudget int64    `json:"cache_bytes_budget" yaml:"cache_bytes_budget"`

	ApproveFloor  float64 `json:"approve_floor" yaml:"approve_floor"`
	RejectCeiling float64 `json:"reject_ceiling" yaml:"reject_ceiling"`

	RiskLevelThresholds RiskLevelThresholds `json:"risk_level_thresholds" yaml:"risk_level_thresholds"`

	MarketRiskThresholds MarketRiskThresholds `json:"market_risk_thresholds" yaml:"market_risk_thresholds"`

	HardBlockSet RiskFactors `json:"hard_block_set" yaml:"hard_block_set"`

	TrustWeights map[string]float64 `json:"trust_weights" yaml:"trust_weights"`

	PerDetectorDeadline Duration `json:"per_detector_deadline" yaml:"per_detector_deadline"`
	ProveDeadline       Duration `json:"prove_deadline" yaml:"prove_deadline"`
	TotalDeadline       Duration `json:"total_deadline" yaml:"total_deadline"`
	MinLatencyBudget    Duration `json:"min_latency_budget" yaml:"min_latency_budget"`
	Grace               Duration `json:"grace" yaml:"grace"`

	AuditBackpressureTimeout Duration `json:"audit_backpressure_timeout" yaml:"audit_backpressure_timeout"`

	Tier Tier `json:"tier" yaml:"tier"`

	PolicyVersion int `json:"policy_version" yaml:"policy_version"`
	CodeVersion   int `json:"code_version" yaml:"code_version"`

	EarlyBlock bool `json:"early_block" yaml:"early_block"`

	VolReference    float64 `json:"vol_reference" yaml:"vol_reference"`
	MaxPositionFrac float64 `json:"max_position_frac" yaml:"max_position_frac"`
	PortfolioValue  float64 `json:"portfolio_value" yaml:"portfolio_value"`

	AllowUnknown bool `json:"allow_unknown" yaml:"allow_unknown"`

	// PolicyRules holds CEL expressions for position-size / venue /
	// blacklist checks (pkg/policy compiles these).
	PolicyRules []PolicyRule `json:"policy_rules" yaml:"policy_rules"`
}

// ManipulationWeights are the α, β, γ weights applied to the three
// manipulation-score terms (max deviation, survivor fraction, volume
// anomaly); they must sum to 1.
type ManipulationWeights struct {
	Alpha float64 `json:"alpha" yaml:"alpha"`
	Beta  float64 `json:"beta" yaml:"beta"`
	Gamma float64 `json:"gamma" yaml:"gamma"`
}

// RiskLevelThresholds are the trust-score cut points used to map a
// Verdict's trust score to a risk level.
type RiskLevelThresholds struct {
	Low    float64 `json:"low" yaml:"low"`
	Medium float64 `json:"medium" yaml:"medium"`
	High   float64 `json:"high" yaml:"high"`
}

// MarketRiskThresholds are the per-sub-score cut points above which a
// Trade decision's market-risk scoring sets the corresponding RiskFactor
// bit (HIGH_VOLATILITY, THIN_LIQUIDITY, OVERSIZED_POSITION,
// CONSENSUS_BREAK).
type MarketRiskThresholds struct {
	Volatility   float64 `json:"volatility" yaml:"volatility"`
	Liquidity    float64 `json:"liquidity" yaml:"liquidity"`
	Oversize     float64 `json:"oversize" yaml:"oversize"`
	Manipulation float64 `json:"manipulation" yaml:"manipulation"`
}

// PolicyRule is a single named CEL governance rule, evaluated against a
// Decision+MarketContext binding by pkg/policy.
type PolicyRule struct {
	ID         string `json:"id" yaml:"id"`
	Expression string `json:"expression" yaml:"expression"`
	Factor     string `json:"factor" yaml:"factor"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
}

// Default returns a PolicyConfig populated with conservative,
// production-safe defaults.
func Default() *PolicyConfig {
	return &PolicyConfig{
		SchemaVersion:              "1.0.0",
		MinSources:                 3,
		SampleWindow:               32,
		MaxSampleAge:               Duration(60 * time.Second),
		OutlierThreshold:           0.02,
		ManipulationAlertThreshold: 0.8,
		ManipulationWeights:        ManipulationWeights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2},
		MaxMarketStaleness:         Duration(30 * time.Second),
		CacheTTL:                   Duration(60 * time.Second),
		CacheBytesBudget:           64 << 20,
		ApproveFloor:               80,
		RejectCeiling:              50,
		RiskLevelThresholds:        RiskLevelThresholds{Low: 85, Medium: 70, High: 50},
		MarketRiskThresholds:       MarketRiskThresholds{Volatility: 0.5, Liquidity: 0.5, Oversize: 0.5, Manipulation: 0.5},
		HardBlockSet: RiskFactors(0).
			Set(FactorPolicyBreach).
			Set(FactorConsensusBreak).
			Set(FactorHallucinationCritical),
		TrustWeights: map[string]float64{
			"volatility":   0.3,
			"liquidity":    0.2,
			"oversize":     0.3,
			"manipulation": 0.2,
		},
		PerDetectorDeadline:      Duration(150 * time.Millisecond),
		ProveDeadline:            Duration(500 * time.Millisecond),
		TotalDeadline:            Duration(1 * time.Second),
		MinLatencyBudget:         Duration(50 * time.Millisecond),
		Grace:                    Duration(100 * time.Millisecond),
		AuditBackpressureTimeout: Duration(200 * time.Millisecond),
		Tier:                     TierCommunity,
		PolicyVersion:            1,
		CodeVersion:              1,
		EarlyBlock:               true,
		VolReference:             1.0,
		MaxPositionFrac:          0.2,
		PortfolioValue:           100000,
	}
}
