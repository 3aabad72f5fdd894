// Package verify implements the Verification Engine (C2): it scores a
// Trade decision's market risk, screens a Response decision for
// hallucinations, enforces policy, and aggregates the result into a
// Verdict — all as a pure function of its inputs plus the currently
// loaded PolicyConfig, with no network egress of its own.
package verify

import (
	"context"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/detectors"
	"github.com/trustwrapper/core/pkg/policy"
)

// PolicyChecker is the narrow slice of pkg/policy.Engine the
// Verification Engine needs: evaluating CEL governance rules against a
// Decision and its MarketContext. Declared here so tests can supply a
// fake without standing up the CEL runtime.
type PolicyChecker interface {
	Evaluate(decision *contracts.Decision, market *contracts.MarketContext) ([]policy.Breach, contracts.RiskFactors, error)
}

// Engine computes Verdicts. It is safe for concurrent use: Evaluate
// takes no lock of its own and mutates nothing but its arguments'
// copies, relying on the caller to swap cfg atomically on policy
// reload (see pkg/config).
type Engine struct {
	cfg                 *contracts.PolicyConfig
	policy              PolicyChecker
	detectors           []detectors.Detector
	detectorConcurrency int
	now                 func() time.Time
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock overrides the engine's time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDetectorConcurrency bounds how many hallucination detectors run
// at once. Zero means unbounded; NewEngine's default is 8.
func WithDetectorConcurrency(n int) Option {
	return func(e *Engine) { e.detectorConcurrency = n }
}

// NewEngine builds an Engine. policyChecker may be nil, in which case the
// POLICY stage is skipped entirely (useful for Response-only
// deployments with no trading surface). dets is the hallucination
// detector pipeline consulted for Response decisions; it may be empty.
func NewEngine(cfg *contracts.PolicyConfig, policyChecker PolicyChecker, dets []detectors.Detector, opts ...Option) *Engine {
	e := &Engine{
		cfg:                 cfg,
		policy:              policyChecker,
		detectors:           dets,
		detectorConcurrency: 8,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the INIT -> POLICY -> MARKET_RISK|HALLUCINATION ->
// AGGREGATE -> DONE pipeline for one Decision and returns its Verdict.
// It never returns a partial Verdict: any internal failure is folded
// into a RiskFactor and a conservative recommendation rather than
// propagated, except for malformed input and policy misconfiguration,
// which are reported as errors because no Verdict can be trusted.
func (e *Engine) Evaluate(ctx context.Context, decision *contracts.Decision, market *contracts.MarketContext, consensus *contracts.ConsensusPrice) (*contracts.Verdict, error) {
	if err := decision.Validate(); err != nil {
		return nil, err
	}
	now := e.now()
	cfg := e.cfg

	var factors contracts.RiskFactors
	var explanations []contracts.Explanation

	// STATE: POLICY
	if e.policy != nil {
		breaches, policyFactors, err := e.policy.Evaluate(decision, market)
		if err != nil {
			return nil, contracts.NewVerifyError(contracts.ErrConfigInvalid, "policy evaluation failed", err)
		}
		factors |= policyFactors
		if len(breaches) > 0 {
			factors = factors.Set(contracts.FactorPolicyBreach)
		}
		for _, b := range breaches {
			explanations = append(explanations, contracts.Explanation{Factor: contracts.FactorPolicyBreach, Message: b.Message})
		}
	}

	hardBlocked := cfg.EarlyBlock && factors.Intersects(cfg.HardBlockSet)

	var trust float64
	switch decision.Kind {
	case contracts.DecisionKindTrade:
		if !hardBlocked {
			scores, marketFactors, marketExplanations := marketRiskScores(cfg, decision.Trade, market, consensus)
			factors |= marketFactors
			explanations = append(explanations, marketExplanations...)

			if market == nil || market.IsStale(now, cfg.MaxMarketStaleness.Std()) {
				factors = factors.Set(contracts.FactorStaleOracle)
			}
			hardBlocked = cfg.EarlyBlock && factors.Intersects(cfg.HardBlockSet)
			if !hardBlocked {
				trust = aggregateTradeTrust(cfg.TrustWeights, scores)
			}
		}
	case contracts.DecisionKindResponse:
		if !hardBlocked {
			findings := detectors.Run(ctx, e.detectors, decision.Response, now, cfg.PerDetectorDeadline.Std(), e.detectorConcurrency)
			hallucinationFactors, maxConfidence, hallucinationExplanations := foldFindings(findings)
			factors |= hallucinationFactors
			explanations = append(explanations, hallucinationExplanations...)

			if responseDangerTier(hallucinationFactors, maxConfidence) == dangerCritical {
				factors = factors.Set(contracts.FactorHallucinationCritical)
			}

			hardBlocked = cfg.EarlyBlock && factors.Intersects(cfg.HardBlockSet)
			if !hardBlocked {
				trust = aggregateResponseTrust(maxConfidence, dangerTierPenalty(hallucinationFactors, maxConfidence))
			}
		}
	default:
		return nil, contracts.NewVerifyError(contracts.ErrInputMalformed, "unknown decision kind", nil)
	}

	riskLevel := mapRiskLevel(cfg.RiskLevelThresholds, trust)
	recommendation := mapRecommendation(cfg, trust, factors)

	return &contracts.Verdict{
		TrustScore:     trust,
		RiskLevel:      riskLevel,
		Recommendation: recommendation,
		Factors:        factors,
		Explanations:   explanations,
		EvaluatedAt:    now,
		PolicyVersion:  cfg.PolicyVersion,
		CodeVersion:    cfg.CodeVersion,
	}, nil
}
