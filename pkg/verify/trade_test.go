package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
)

func TestMarketRiskScoresFlagsHighVolatility(t *testing.T) {
	cfg := contracts.Default()
	market := &contracts.MarketContext{
		Volatility24h:  2.0, // 2x the reference -> clamped to 1.0
		LiquidityScore: 0.9, // liquidity_score = 1-0.9 = 0.1, below threshold
		SampledAt:      time.Now(),
	}
	trade := &contracts.Trade{Quantity: 1, Price: 1} // negligible vs portfolio

	scores, factors, explanations := marketRiskScores(cfg, trade, market, nil)

	require.Equal(t, 1.0, scores["volatility"])
	require.True(t, factors.Has(contracts.FactorHighVolatility))
	require.False(t, factors.Has(contracts.FactorThinLiquidity))
	require.NotEmpty(t, explanations)
}

func TestMarketRiskScoresFlagsOversizedPosition(t *testing.T) {
	cfg := contracts.Default()
	market := &contracts.MarketContext{LiquidityScore: 1, SampledAt: time.Now()}
	trade := &contracts.Trade{Quantity: 1000, Price: 100} // 100,000 notional == full portfolio

	_, factors, _ := marketRiskScores(cfg, trade, market, nil)

	require.True(t, factors.Has(contracts.FactorOversizedPosition))
}

func TestMarketRiskScoresFlagsConsensusBreakOnManipulation(t *testing.T) {
	cfg := contracts.Default()
	market := &contracts.MarketContext{LiquidityScore: 1, SampledAt: time.Now()}
	consensus := &contracts.ConsensusPrice{ManipulationScore: 0.95}

	_, factors, _ := marketRiskScores(cfg, &contracts.Trade{}, market, consensus)

	require.True(t, factors.Has(contracts.FactorConsensusBreak))
}

func TestAggregateTradeTrustWeightedMean(t *testing.T) {
	weights := map[string]float64{"volatility": 0.5, "liquidity": 0.5}
	scores := map[string]float64{"volatility": 0.2, "liquidity": 0.4}

	// 100 * (1 - (0.5*0.2 + 0.5*0.4)) = 100 * (1 - 0.3) = 70
	require.InDelta(t, 70.0, aggregateTradeTrust(weights, scores), 0.001)
}

func TestAggregateTradeTrustClampsToZero(t *testing.T) {
	weights := map[string]float64{"oversize": 2.0}
	scores := map[string]float64{"oversize": 1.0}

	require.Equal(t, 0.0, aggregateTradeTrust(weights, scores))
}
