package verify

import (
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/finance"
)

// tradeQuoteCurrency is the quote currency PortfolioValue is denominated
// in. TrustWrapper has no per-trade quote currency field today, so every
// Trade is valued against the same portfolio currency.
const tradeQuoteCurrency = "USD"

// marketRiskScores derives the four market-risk sub-scores from a
// Trade's MarketContext and ConsensusPrice, and sets the RiskFactor
// bit for each sub-score that clears its configured threshold.
func marketRiskScores(
	cfg *contracts.PolicyConfig,
	trade *contracts.Trade,
	market *contracts.MarketContext,
	consensus *contracts.ConsensusPrice,
) (map[string]float64, contracts.RiskFactors, []contracts.Explanation) {
	var volatility, liquidity, oversize, manipulation float64

	if market != nil {
		if cfg.VolReference > 0 {
			volatility = clamp(market.Volatility24h/cfg.VolReference, 0, 1)
		}
		liquidity = clamp(1-market.LiquidityScore, 0, 1)
	}
	if trade != nil && cfg.PortfolioValue > 0 && cfg.MaxPositionFrac > 0 {
		notional := finance.Notional(trade.Quantity, trade.Price, tradeQuoteCurrency)
		positionFrac := finance.PositionFraction(notional, cfg.PortfolioValue)
		oversize = clamp(positionFrac/cfg.MaxPositionFrac, 0, 1)
	}
	if consensus != nil {
		manipulation = clamp(consensus.ManipulationScore, 0, 1)
	}

	scores := map[string]float64{
		"volatility":   volatility,
		"liquidity":    liquidity,
		"oversize":     oversize,
		"manipulation": manipulation,
	}

	t := cfg.MarketRiskThresholds
	var factors contracts.RiskFactors
	var explanations []contracts.Explanation

	if volatility > t.Volatility {
		factors = factors.Set(contracts.FactorHighVolatility)
		explanations = append(explanations, explanation(contracts.FactorHighVolatility, volatility, "24h volatility exceeds the configured reference"))
	}
	if liquidity > t.Liquidity {
		factors = factors.Set(contracts.FactorThinLiquidity)
		explanations = append(explanations, explanation(contracts.FactorThinLiquidity, liquidity, "market liquidity score is thin"))
	}
	if oversize > t.Oversize {
		factors = factors.Set(contracts.FactorOversizedPosition)
		explanations = append(explanations, explanation(contracts.FactorOversizedPosition, oversize, "position size exceeds the portfolio fraction cap"))
	}
	if manipulation > t.Manipulation {
		factors = factors.Set(contracts.FactorConsensusBreak)
		explanations = append(explanations, explanation(contracts.FactorConsensusBreak, manipulation, "oracle consensus shows signs of manipulation"))
	}

	return scores, factors, explanations
}

// aggregateTradeTrust computes the weighted-mean trust score
// `100 * (1 - sum(w_i * s_i))`, clamped to [0,100]. weights need not
// sum to exactly 1 for the arithmetic to hold, but PolicyConfig
// validation (pkg/config) rejects configs where they don't.
func aggregateTradeTrust(weights map[string]float64, scores map[string]float64) float64 {
	sum := 0.0
	for k, w := range weights {
		sum += w * scores[k]
	}
	return clamp(100*(1-sum), 0, 100)
}

func explanation(factor contracts.RiskFactor, weight float64, message string) contracts.Explanation {
	return contracts.Explanation{Factor: factor, Weight: weight, Message: message}
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
