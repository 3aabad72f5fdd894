// Package wrapper implements the Wrapper Runtime (C1): the single
// entry point that turns a Decision plus its caller credentials into a
// Result, orchestrating every other component (cache, oracle, the
// verification engine, attestation, audit) under one bounded deadline.
package wrapper

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/trustwrapper/core/pkg/attestation"
	"github.com/trustwrapper/core/pkg/audit"
	"github.com/trustwrapper/core/pkg/auth"
	"github.com/trustwrapper/core/pkg/budget"
	"github.com/trustwrapper/core/pkg/cache"
	"github.com/trustwrapper/core/pkg/canonicalize"
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/finance"
	"github.com/trustwrapper/core/pkg/observability"
)

// Engine is the narrow slice of pkg/verify.Engine the Wrapper needs.
type Engine interface {
	Evaluate(ctx context.Context, decision *contracts.Decision, market *contracts.MarketContext, consensus *contracts.ConsensusPrice) (*contracts.Verdict, error)
}

// OracleReader is the narrow slice of pkg/oracle.Engine the Wrapper
// needs for non-blocking reads of the latest published snapshots.
type OracleReader interface {
	Latest(symbol string, maxStaleness time.Duration, now time.Time) (contracts.ConsensusPrice, bool)
	LatestMarketContext(symbol string, maxStaleness time.Duration, now time.Time) (*contracts.MarketContext, bool)
	Generation(symbol string) uint64
}

// Result is what Verify and VerifyBatch return for one Decision: a
// Verdict that is always present, and an Attestation that is present
// unless the caller requested verify-only or attestation failed
// (never a reason to withhold the Verdict itself).
type Result struct {
	Verdict     contracts.Verdict
	Attestation *contracts.Attestation
}

// Options configures a Wrapper at construction time. Validator, Cache
// and Engine are required; everything else is optional and its
// absence degrades gracefully rather than blocking verification.
type Options struct {
	Validator       *auth.CallerValidator
	Cache           *cache.Cache
	Engine          Engine
	Oracle          OracleReader
	Attestor        *attestation.Attestor
	AuditWriter     *audit.Writer
	Budget          *budget.Enforcer
	ExposureTracker finance.ExposureTracker
	Provider        *observability.Provider
	PolicyConfig    *contracts.PolicyConfig
	Now             func() time.Time
}

// Wrapper is the Wrapper Runtime: the orchestration layer callers use
// either directly (Verify/VerifyBatch) or through the thin HTTP adapter
// in serve.go.
type Wrapper struct {
	validator *auth.CallerValidator
	cache     *cache.Cache
	engine    Engine
	oracle    OracleReader
	attestor  *attestation.Attestor
	auditW    *audit.Writer
	budget    *budget.Enforcer
	exposure  finance.ExposureTracker
	obs       *observability.Provider
	cfg       *contracts.PolicyConfig
	now       func() time.Time
}

// New builds a Wrapper from opts. Validator, Cache, Engine and
// PolicyConfig are required; New panics if any is nil, since those are
// programming errors, not runtime conditions.
func New(opts Options) *Wrapper {
	if opts.Validator == nil || opts.Cache == nil || opts.Engine == nil || opts.PolicyConfig == nil {
		panic("wrapper: Validator, Cache, Engine and PolicyConfig are required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Wrapper{
		validator: opts.Validator,
		cache:     opts.Cache,
		engine:    opts.Engine,
		oracle:    opts.Oracle,
		attestor:  opts.Attestor,
		auditW:    opts.AuditWriter,
		budget:    opts.Budget,
		exposure:  opts.ExposureTracker,
		obs:       opts.Provider,
		cfg:       opts.PolicyConfig,
		now:       now,
	}
}

// Request is one call into Verify: a Decision, the caller's bearer
// token (caller_meta), the deadline the caller is willing to wait
// until, and whether an Attestation is wanted at all.
type Request struct {
	Decision        contracts.Decision
	CallerToken     string
	Deadline        time.Time
	SkipAttestation bool
}

// Verify authenticates the caller, consults the fingerprint cache, and
// on a miss drives the full pipeline: oracle read, C2 evaluation,
// position-budget gating, C4 attestation, C5 audit append. It always
// returns a Verdict unless caller_meta fails validation or the
// Decision itself is malformed; every other component error downgrades
// the Verdict instead of failing the call.
func (w *Wrapper) Verify(ctx context.Context, req Request) (Result, error) {
	claims, err := w.validator.Validate(req.CallerToken)
	if err != nil {
		return Result{}, contracts.NewVerifyError(contracts.ErrInputMalformed, "caller_meta validation failed", err)
	}
	if claims.AgentHandle != string(req.Decision.Agent) {
		return Result{}, contracts.NewVerifyError(contracts.ErrInputMalformed, "caller_meta agent_handle does not match decision.agent", nil)
	}
	if err := req.Decision.Validate(); err != nil {
		return Result{}, err
	}

	deadline, err := w.effectiveDeadline(req.Deadline)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ctx, finish := w.trackOperation(ctx, "verify", claims)
	var finishErr error
	defer func() { finish(finishErr) }()

	result, err := w.verifyOnce(ctx, &req.Decision, req.SkipAttestation)
	finishErr = err
	return result, err
}

// VerifyBatch verifies each Decision independently and concurrently;
// one Decision's failure never aborts the others, and the returned
// slice preserves input ordering.
func (w *Wrapper) VerifyBatch(ctx context.Context, reqs []Request) ([]Result, []error) {
	results := make([]Result, len(reqs))
	errs := make([]error, len(reqs))

	type outcome struct {
		idx    int
		result Result
		err    error
	}
	out := make(chan outcome, len(reqs))
	for i, req := range reqs {
		go func(i int, req Request) {
			r, err := w.Verify(ctx, req)
			out <- outcome{idx: i, result: r, err: err}
		}(i, req)
	}
	for range reqs {
		o := <-out
		results[o.idx] = o.result
		errs[o.idx] = o.err
	}
	return results, errs
}

// effectiveDeadline validates the requested deadline against the
// policy's minimum latency budget and returns DEADLINE_TOO_TIGHT if
// there is not enough time left to do meaningful work.
func (w *Wrapper) effectiveDeadline(requested time.Time) (time.Time, error) {
	now := w.now()
	if requested.IsZero() {
		return now.Add(w.cfg.TotalDeadline.Std()), nil
	}
	if requested.Sub(now) < w.cfg.MinLatencyBudget.Std() {
		return time.Time{}, contracts.NewVerifyError(contracts.ErrDeadlineTooTight,
			fmt.Sprintf("deadline %s is less than min_latency_budget %s away", requested, w.cfg.MinLatencyBudget.Std()), nil)
	}
	return requested, nil
}

// verifyOnce runs the cache-check-then-compute pipeline for one
// Decision. On a deadline overrun during compute, it returns a
// conservative Verdict with DeadlineHit set rather than propagating a
// partial result.
func (w *Wrapper) verifyOnce(ctx context.Context, decision *contracts.Decision, skipAttestation bool) (Result, error) {
	fingerprint, err := decision.Fingerprint(canonicalize.JCS)
	if err != nil {
		return Result{}, contracts.NewVerifyError(contracts.ErrInputMalformed, "fingerprint decision", err)
	}

	var contextEpoch uint64
	if decision.Kind == contracts.DecisionKindTrade && w.oracle != nil {
		contextEpoch = w.oracle.Generation(decision.Trade.AssetSymbol)
	}
	cacheKey := cacheKeyFor(fingerprint, w.cfg.PolicyVersion, contextEpoch)

	now := w.now()
	entry, _, err := w.cache.GetOrCompute(ctx, cacheKey, now, w.cfg.MaxMarketStaleness.Std(), func(ctx context.Context) (*cache.Entry, error) {
		return w.compute(ctx, decision, now)
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{Verdict: w.deadlineVerdict()}, nil
		}
		return Result{}, err
	}

	if skipAttestation {
		return Result{Verdict: entry.Verdict}, nil
	}
	return Result{Verdict: entry.Verdict, Attestation: entry.Attestation}, nil
}

// compute runs the full pipeline for a cache miss: oracle read,
// Verification Engine, position-budget gating, attestation, audit
// append. Its result is cached by the caller (Cache.GetOrCompute)
// before being returned.
func (w *Wrapper) compute(ctx context.Context, decision *contracts.Decision, now time.Time) (*cache.Entry, error) {
	var market *contracts.MarketContext
	var consensus contracts.ConsensusPrice
	var marketSampledAt time.Time

	if decision.Kind == contracts.DecisionKindTrade && w.oracle != nil {
		symbol := decision.Trade.AssetSymbol
		if mc, ok := w.oracle.LatestMarketContext(symbol, w.cfg.MaxMarketStaleness.Std(), now); ok {
			market = mc
			marketSampledAt = mc.SampledAt
		}
		if cp, ok := w.oracle.Latest(symbol, w.cfg.MaxMarketStaleness.Std(), now); ok {
			consensus = cp
		}
	}

	verdict, err := w.engine.Evaluate(ctx, decision, market, &consensus)
	if err != nil {
		return nil, err
	}

	if decision.Kind == contracts.DecisionKindTrade {
		if w.budget != nil {
			w.applyBudget(decision, verdict)
		}
		if w.exposure != nil {
			w.applyExposure(ctx, decision, verdict)
		}
	}

	w.appendAudit(ctx, decision, verdict, fingerprintOf(decision), now)

	entry := &cache.Entry{Verdict: *verdict, CachedAt: now, MarketSampledAt: marketSampledAt}
	if w.attestor != nil && verdict.Recommendation != contracts.RecommendReject {
		att, err := w.attestor.Attest(ctx, verdict)
		if err == nil {
			entry.Attestation = att
		}
		// A PROVE_TIMEOUT/SCHEME_UNAVAILABLE failure never blocks the
		// Verdict; the caller simply gets one without an Attestation.
	}
	return entry, nil
}

// applyBudget checks the trade's position size against the agent's
// session-level PositionBudget, on top of the single-decision
// oversize_score the Verification Engine already computed. A denial
// downgrades the Verdict's recommendation to review without altering
// its trust score or factors — the budget gate is a session-scoped
// guard, not part of the per-decision scoring model.
func (w *Wrapper) applyBudget(decision *contracts.Decision, verdict *contracts.Verdict) {
	agent := decision.Agent
	if _, err := w.budget.GetBudget(agent); err != nil {
		return // no budget configured for this agent: nothing to enforce
	}
	positionFrac := 0.0
	if w.cfg.PortfolioValue > 0 {
		notional := finance.Notional(decision.Trade.Quantity, decision.Trade.Price, "USD")
		positionFrac = finance.PositionFraction(notional, w.cfg.PortfolioValue)
	}
	dec := w.budget.CheckAndReserve(agent, verdict.RiskLevel, positionFrac)
	if !dec.Allowed && verdict.Recommendation == contracts.RecommendApprove {
		verdict.Recommendation = contracts.RecommendReview
		verdict.Explanations = append(verdict.Explanations, contracts.Explanation{
			Factor:  contracts.FactorOversizedPosition,
			Weight:  dec.RiskCost,
			Message: "position-budget: " + dec.Reason,
		})
	}
}

// applyExposure enforces a session-persistent, cross-instance exposure
// cap (finance.ExposureTracker) on top of the in-process PositionBudget
// check: an agent with no exposure cap configured is left alone, since
// that tracker is opt-in per deployment, not every agent. A denial
// downgrades the same way applyBudget's does; a tracker error degrades
// to a review recommendation rather than failing the request outright,
// since the underlying Verdict is still trustworthy on its own.
func (w *Wrapper) applyExposure(ctx context.Context, decision *contracts.Decision, verdict *contracts.Verdict) {
	if verdict.Recommendation != contracts.RecommendApprove {
		return
	}
	notional := finance.Notional(decision.Trade.Quantity, decision.Trade.Price, "USD")
	ok, err := w.exposure.Check(string(decision.Agent), notional)
	if err != nil {
		observability.AddSpanEvent(ctx, "exposure.check_error")
		verdict.Recommendation = contracts.RecommendReview
		return
	}
	if !ok {
		verdict.Recommendation = contracts.RecommendReview
		verdict.Explanations = append(verdict.Explanations, contracts.Explanation{
			Factor:  contracts.FactorOversizedPosition,
			Message: "exposure: would exceed the agent's session exposure cap",
		})
		return
	}
	if err := w.exposure.Consume(string(decision.Agent), notional); err != nil {
		observability.AddSpanEvent(ctx, "exposure.consume_error")
	}
}

func (w *Wrapper) appendAudit(ctx context.Context, decision *contracts.Decision, verdict *contracts.Verdict, fingerprint [32]byte, now time.Time) {
	if w.auditW == nil {
		return
	}
	record := &contracts.AuditRecord{
		RecordID:            fmt.Sprintf("verify:%s:%d", decision.Agent, now.UnixNano()),
		DecisionFingerprint: fingerprint,
		Verdict:             *verdict,
		LatencyNS:           time.Since(now).Nanoseconds(),
		OutcomeTag:          string(verdict.Recommendation),
		WallTime:            now,
	}
	if err := w.auditW.Enqueue(ctx, record); err != nil {
		// Backpressure on the audit log degrades, it never fails the call:
		// the caller's Verdict stands, observability records the warning.
		observability.AddSpanEvent(ctx, "audit.backpressure")
	}
}

func fingerprintOf(decision *contracts.Decision) [32]byte {
	fp, _ := decision.Fingerprint(canonicalize.JCS)
	return fp
}

// cacheKeyFor folds a decision's fingerprint together with the policy
// version and context epoch (oracle consensus generation) under which
// it would be evaluated. Keying on the fingerprint alone would let a
// policy hot-reload keep serving Verdicts computed under the
// superseded policy_version for up to cache_ttl; folding policyVersion
// and contextEpoch in makes a reload (or a new oracle tick) a guaranteed
// cache miss instead.
func cacheKeyFor(fingerprint [32]byte, policyVersion int, contextEpoch uint64) [32]byte {
	h := sha256.New()
	h.Write(fingerprint[:])
	var versionBuf [4]byte
	binary.BigEndian.PutUint32(versionBuf[:], uint32(policyVersion))
	h.Write(versionBuf[:])
	var epochBuf [8]byte
	binary.BigEndian.PutUint64(epochBuf[:], contextEpoch)
	h.Write(epochBuf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (w *Wrapper) deadlineVerdict() contracts.Verdict {
	return contracts.Verdict{
		Recommendation: contracts.RecommendReview,
		RiskLevel:      contracts.RiskHigh,
		DeadlineHit:    true,
		EvaluatedAt:    w.now(),
		PolicyVersion:  w.cfg.PolicyVersion,
		CodeVersion:    w.cfg.CodeVersion,
	}
}

func (w *Wrapper) trackOperation(ctx context.Context, name string, claims *auth.CallerClaims) (context.Context, func(error)) {
	if w.obs == nil {
		return ctx, func(error) {}
	}
	attrs := observability.VerdictOperation("", claims.AgentHandle, "", "", 0)
	return w.obs.TrackOperation(ctx, name, attrs...)
}
