// Package policy compiles and evaluates the CEL governance rules named
// in a PolicyConfig against a Decision and its MarketContext, producing
// the POLICY_BREACH-family risk factors the Verification Engine folds
// into a Verdict.
package policy

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Engine holds a compiled CEL program per loaded PolicyRule.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]cel.Program
	rules    map[string]contracts.PolicyRule
}

// NewEngine builds the CEL environment with the variables every rule
// may reference: decision, trade, response and market, each exposed as
// a dynamically-typed map so rule authors need no Go-side schema.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("decision", types.NewMapType(types.StringType, types.DynType)),
			decls.NewVariable("trade", types.NewMapType(types.StringType, types.DynType)),
			decls.NewVariable("response", types.NewMapType(types.StringType, types.DynType)),
			decls.NewVariable("market", types.NewMapType(types.StringType, types.DynType)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL env: %w", err)
	}
	return &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
		rules:    make(map[string]contracts.PolicyRule),
	}, nil
}

// LoadRules compiles every enabled rule, replacing whatever was
// previously loaded. A rule that fails to compile aborts the whole
// load rather than silently running with a stale rule set.
func (e *Engine) LoadRules(rules []contracts.PolicyRule) error {
	programs := make(map[string]cel.Program, len(rules))
	byID := make(map[string]contracts.PolicyRule, len(rules))

	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		ast, issues := e.env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("policy: compile rule %q: %w", r.ID, issues.Err())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("policy: build program for rule %q: %w", r.ID, err)
		}
		programs[r.ID] = prg
		byID[r.ID] = r
	}

	e.mu.Lock()
	e.programs = programs
	e.rules = byID
	e.mu.Unlock()
	return nil
}

// Breach is one rule whose CEL expression evaluated true (or errored,
// which is treated as a breach: fail closed).
type Breach struct {
	RuleID  string
	Factor  contracts.RiskFactor
	Message string
}

// Evaluate runs every loaded rule against decision/market, returning
// one Breach per rule that matched. A rule whose Factor name is not a
// recognised RiskFactor still breaches the rule but contributes no
// bit — callers should treat that as a configuration defect.
func (e *Engine) Evaluate(decision *contracts.Decision, market *contracts.MarketContext) ([]Breach, contracts.RiskFactors, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	input := map[string]any{
		"decision": decisionVars(decision),
		"trade":    tradeVars(decision),
		"response": responseVars(decision),
		"market":   marketVars(market),
	}

	var breaches []Breach
	var factors contracts.RiskFactors
	for id, prg := range e.programs {
		rule := e.rules[id]
		out, _, err := prg.Eval(input)
		if err != nil {
			breaches = append(breaches, Breach{RuleID: id, Message: fmt.Sprintf("evaluation error (fail-closed): %v", err)})
			if bit, ok := contracts.ParseRiskFactor(rule.Factor); ok {
				factors = factors.Set(bit)
			}
			continue
		}
		matched, ok := out.Value().(bool)
		if !ok || !matched {
			continue
		}
		breaches = append(breaches, Breach{RuleID: id, Message: fmt.Sprintf("rule %q matched", id)})
		if bit, ok := contracts.ParseRiskFactor(rule.Factor); ok {
			factors = factors.Set(bit)
		}
	}
	return breaches, factors, nil
}

func decisionVars(d *contracts.Decision) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return map[string]any{
		"kind":  string(d.Kind),
		"agent": string(d.Agent),
	}
}

func tradeVars(d *contracts.Decision) map[string]any {
	if d == nil || d.Trade == nil {
		return map[string]any{}
	}
	t := d.Trade
	return map[string]any{
		"action":       string(t.Action),
		"asset_symbol": t.AssetSymbol,
		"quantity":     t.Quantity,
		"price":        t.Price,
		"confidence":   t.Confidence,
		"strategy_tag": t.StrategyTag,
		"venue":        t.Venue,
	}
}

func responseVars(d *contracts.Decision) map[string]any {
	if d == nil || d.Response == nil {
		return map[string]any{}
	}
	r := d.Response
	return map[string]any{
		"text":      r.Text,
		"model_tag": r.ModelTag,
	}
}

func marketVars(m *contracts.MarketContext) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any{
		"asset_symbol":    m.AssetSymbol,
		"spot_price":      m.SpotPrice,
		"volatility_24h":  m.Volatility24h,
		"volume_24h":      m.Volume24h,
		"liquidity_score": m.LiquidityScore,
	}
}
