// Package budget tracks per-agent position-risk exposure across a
// trading session: a risk-weighted score cap, a running position-size
// fraction of portfolio value, and a trust discount that grows as the
// Verification Engine sees rising uncertainty from the agent. A denial
// is reported by the Wrapper Runtime as an Explanation tagged
// FactorOversizedPosition; the factor bit itself is not set.
package budget

import (
	"fmt"
	"sync"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// RiskWeights maps trust-score risk levels to a cost multiplier used
// when charging an action against an agent's risk-score cap.
var RiskWeights = map[contracts.RiskLevel]float64{
	contracts.RiskLow:      1.0,
	contracts.RiskMedium:   2.0,
	contracts.RiskHigh:     5.0,
	contracts.RiskCritical: 10.0,
}

// PositionBudget is one agent's risk-weighted exposure budget for a
// trading session.
type PositionBudget struct {
	AgentHandle      contracts.AgentHandle `json:"agent_handle"`
	RiskScoreCap     float64               `json:"risk_score_cap"`
	RiskScoreUsed    float64               `json:"risk_score_used"`
	PositionFracCap  float64               `json:"position_frac_cap"`
	PositionFracUsed float64               `json:"position_frac_used"`
	TrustDiscount    float64               `json:"trust_discount"` // 0 = none, 1 = fully discounted
	UncertaintyScore float64               `json:"uncertainty_score"`
}

// Decision is the result of a position-budget check.
type Decision struct {
	Allowed       bool    `json:"allowed"`
	Reason        string  `json:"reason"`
	RiskCost      float64 `json:"risk_cost"`
	TrustDiscount float64 `json:"trust_discount,omitempty"`
}

// Enforcer tracks PositionBudgets for every agent seen this session.
type Enforcer struct {
	mu      sync.Mutex
	budgets map[contracts.AgentHandle]*PositionBudget
	clock   func() time.Time
}

// NewEnforcer creates an empty position-risk enforcer.
func NewEnforcer() *Enforcer {
	return &Enforcer{
		budgets: make(map[contracts.AgentHandle]*PositionBudget),
		clock:   time.Now,
	}
}

// WithClock overrides the enforcer's clock, for deterministic tests.
func (e *Enforcer) WithClock(clock func() time.Time) *Enforcer {
	e.clock = clock
	return e
}

// SetBudget installs or replaces the budget for an agent.
func (e *Enforcer) SetBudget(b *PositionBudget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.budgets[b.AgentHandle] = b
}

// GetBudget returns the current budget for an agent.
func (e *Enforcer) GetBudget(agent contracts.AgentHandle) (*PositionBudget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.budgets[agent]
	if !ok {
		return nil, fmt.Errorf("budget: no position budget for agent %q", agent)
	}
	return b, nil
}

// CheckAndReserve evaluates whether a proposed trade's risk level and
// position fraction fit within the agent's budget, reserving the cost
// on success. Fails closed: an agent with no configured budget is denied.
func (e *Enforcer) CheckAndReserve(agent contracts.AgentHandle, riskLevel contracts.RiskLevel, positionFrac float64) *Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.budgets[agent]
	if !ok {
		return &Decision{Allowed: false, Reason: "no position budget configured"}
	}

	weight := RiskWeights[riskLevel]
	riskCost := weight * (1.0 + b.TrustDiscount)

	if b.RiskScoreUsed+riskCost > b.RiskScoreCap {
		return &Decision{
			Allowed:  false,
			Reason:   fmt.Sprintf("risk score %.2f would exceed cap %.2f", b.RiskScoreUsed+riskCost, b.RiskScoreCap),
			RiskCost: riskCost,
		}
	}
	if b.PositionFracUsed+positionFrac > b.PositionFracCap {
		return &Decision{
			Allowed:  false,
			Reason:   fmt.Sprintf("position fraction %.4f would exceed cap %.4f", b.PositionFracUsed+positionFrac, b.PositionFracCap),
			RiskCost: riskCost,
		}
	}

	b.RiskScoreUsed += riskCost
	b.PositionFracUsed += positionFrac
	return &Decision{Allowed: true, Reason: "within position budget", RiskCost: riskCost}
}

// ApplyUncertainty raises or lowers an agent's trust discount in
// proportion to a new uncertainty signal (e.g. a hallucination
// detector firing on the agent's last Response). Clamped to [0,1]:
// at uncertainty 0 the discount is 0, at uncertainty 1 every
// subsequent risk cost is doubled.
func (e *Enforcer) ApplyUncertainty(agent contracts.AgentHandle, uncertaintyDelta float64) (*Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.budgets[agent]
	if !ok {
		return nil, fmt.Errorf("budget: no position budget for agent %q", agent)
	}

	b.UncertaintyScore += uncertaintyDelta
	b.UncertaintyScore = clamp01(b.UncertaintyScore)
	b.TrustDiscount = b.UncertaintyScore

	return &Decision{
		Allowed:       true,
		Reason:        fmt.Sprintf("trust discount now %.2f (uncertainty %.2f)", b.TrustDiscount, b.UncertaintyScore),
		TrustDiscount: b.TrustDiscount,
	}, nil
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
