package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/policy"
)

func tradeDecision(qty, price float64, venue string) *contracts.Decision {
	return &contracts.Decision{
		Kind:  contracts.DecisionKindTrade,
		Agent: "agent-1",
		Trade: &contracts.Trade{
			Action:      contracts.ActionBuy,
			AssetSymbol: "ETH",
			Quantity:    qty,
			Price:       price,
			Confidence:  0.9,
			Venue:       venue,
		},
		IssuedAt: time.Now(),
	}
}

func TestEvaluateMatchingRuleSetsFactor(t *testing.T) {
	e, err := policy.NewEngine()
	require.NoError(t, err)

	err = e.LoadRules([]contracts.PolicyRule{
		{ID: "blacklisted-venue", Expression: `trade.venue == "darkpool-x"`, Factor: "POLICY_BREACH", Enabled: true},
	})
	require.NoError(t, err)

	breaches, factors, err := e.Evaluate(tradeDecision(1, 100, "darkpool-x"), nil)
	require.NoError(t, err)
	require.Len(t, breaches, 1)
	require.True(t, factors.Has(contracts.FactorPolicyBreach))
}

func TestEvaluateNonMatchingRuleProducesNoBreach(t *testing.T) {
	e, err := policy.NewEngine()
	require.NoError(t, err)

	err = e.LoadRules([]contracts.PolicyRule{
		{ID: "blacklisted-venue", Expression: `trade.venue == "darkpool-x"`, Factor: "POLICY_BREACH", Enabled: true},
	})
	require.NoError(t, err)

	breaches, factors, err := e.Evaluate(tradeDecision(1, 100, "coinbase"), nil)
	require.NoError(t, err)
	require.Empty(t, breaches)
	require.False(t, factors.Has(contracts.FactorPolicyBreach))
}

func TestEvaluateDisabledRuleIsSkipped(t *testing.T) {
	e, err := policy.NewEngine()
	require.NoError(t, err)

	err = e.LoadRules([]contracts.PolicyRule{
		{ID: "always-true", Expression: `true`, Factor: "POLICY_BREACH", Enabled: false},
	})
	require.NoError(t, err)

	breaches, factors, err := e.Evaluate(tradeDecision(1, 100, "coinbase"), nil)
	require.NoError(t, err)
	require.Empty(t, breaches)
	require.False(t, factors.Has(contracts.FactorPolicyBreach))
}

func TestLoadRulesRejectsBadExpression(t *testing.T) {
	e, err := policy.NewEngine()
	require.NoError(t, err)

	err = e.LoadRules([]contracts.PolicyRule{
		{ID: "bad", Expression: "invalid syntax ((", Factor: "POLICY_BREACH", Enabled: true},
	})
	require.Error(t, err)
}

func TestEvaluatePositionSizeRuleAgainstMarket(t *testing.T) {
	e, err := policy.NewEngine()
	require.NoError(t, err)

	err = e.LoadRules([]contracts.PolicyRule{
		{ID: "oversize", Expression: `trade.quantity * trade.price > market.spot_price * 1000.0`, Factor: "OVERSIZED_POSITION", Enabled: true},
	})
	require.NoError(t, err)

	market := &contracts.MarketContext{AssetSymbol: "ETH", SpotPrice: 2000}
	breaches, factors, err := e.Evaluate(tradeDecision(10, 2500, "coinbase"), market)
	require.NoError(t, err)
	require.Len(t, breaches, 1)
	require.True(t, factors.Has(contracts.FactorOversizedPosition))
}
