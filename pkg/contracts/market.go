package contracts

import "time"

// MarketContext is the per-symbol market snapshot the Verification Engine
// consults when scoring a Trade decision. Produced by Oracle Consensus.
type MarketContext struct {
	AssetSymbol              string    `json:"asset_symbol"`
	SpotPrice                float64   `json:"spot_price"`
	Volatility24h            float64   `json:"volatility_24h"`
	Volume24h                float64   `json:"volume_24h"`
	LiquidityScore           float64   `json:"liquidity_score"`
	SentimentTag             string    `json:"sentiment_tag,omitempty"`
	SampledAt                time.Time `json:"sampled_at"`
	OracleConsensusConfidence float64  `json:"oracle_consensus_confidence"`
}

// IsStale reports whether this context is older than maxStaleness
// relative to evaluatedAt.
func (m *MarketContext) IsStale(evaluatedAt time.Time, maxStaleness time.Duration) bool {
	if m == nil {
		return true
	}
	return evaluatedAt.Sub(m.SampledAt) > maxStaleness
}

// OracleSample is one immutable price observation from one source.
type OracleSample struct {
	SourceID   string    `json:"source_id"`
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
	Signature  string    `json:"signature,omitempty"`
}

// Key returns the (source_id, reported_at) dedup key for this sample.
func (s OracleSample) Key() string {
	return s.SourceID + "@" + s.ReportedAt.UTC().Format(time.RFC3339Nano)
}

// ConsensusPrice is the derived, per-symbol aggregate produced by Oracle
// Consensus on each refresh tick.
type ConsensusPrice struct {
	Symbol                  string    `json:"symbol"`
	ConsensusPriceValue     float64   `json:"consensus_price"`
	DeviationMax            float64   `json:"deviation_max"`
	DeviationMean           float64   `json:"deviation_mean"`
	ContributingSourceCount int       `json:"contributing_sources_count"`
	ManipulationScore       float64   `json:"manipulation_score"`
	ComputedAt              time.Time `json:"computed_at"`
}
