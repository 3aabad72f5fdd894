package oracle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/trustwrapper/core/pkg/contracts"
)

// AuditSink is the narrow slice of pkg/audit.Writer the engine needs:
// enqueueing a manipulation alert for sealing and persistence.
type AuditSink interface {
	Enqueue(ctx context.Context, record *contracts.AuditRecord) error
}

// Mirror is an optional cross-instance cache for the latest
// ConsensusPrice per symbol. Engine calls Put after every Tick and
// never calls Get, so each instance still polls every source itself.
type Mirror interface {
	Put(ctx context.Context, price contracts.ConsensusPrice) error
	Get(ctx context.Context, symbol string) (contracts.ConsensusPrice, bool, error)
}

// symbolState holds everything the engine tracks for one asset symbol.
type symbolState struct {
	mu       sync.Mutex
	ring     *ring
	baseline *volumeBaseline
	latest   atomic.Pointer[contracts.ConsensusPrice]
	market   atomic.Pointer[contracts.MarketContext]
	gen      atomic.Uint64
}

// Engine is Oracle Consensus: it ingests OracleSamples into a bounded
// per-symbol window and derives a manipulation-aware ConsensusPrice on
// every refresh tick.
type Engine struct {
	cfg     *contracts.PolicyConfig
	sources []Source
	audit   AuditSink
	mirror  Mirror
	now     clock

	mu     sync.RWMutex
	states map[string]*symbolState
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithMirror attaches a cross-instance ConsensusPrice mirror.
func WithMirror(m Mirror) Option {
	return func(e *Engine) { e.mirror = m }
}

// NewEngine builds an Engine. audit may be nil, in which case
// manipulation alerts are computed but never persisted (useful for
// tests and for lite/offline deployments).
func NewEngine(cfg *contracts.PolicyConfig, sources []Source, audit AuditSink, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		sources: sources,
		audit:   audit,
		now:     time.Now,
		states:  make(map[string]*symbolState),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) stateFor(symbol string) *symbolState {
	e.mu.RLock()
	st, ok := e.states[symbol]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[symbol]; ok {
		return st
	}
	st = &symbolState{
		ring:     newRing(e.cfg.SampleWindow),
		baseline: newVolumeBaseline(),
	}
	e.states[symbol] = st
	return st
}

// Observe ingests one sample into its symbol's window. It does not, by
// itself, recompute ConsensusPrice; callers (typically Run's poll loop)
// call Tick after a batch of Observes to control refresh cadence.
func (e *Engine) Observe(sample contracts.OracleSample) {
	st := e.stateFor(sample.Symbol)
	st.mu.Lock()
	st.ring.Add(sample)
	st.mu.Unlock()
}

// Tick recomputes ConsensusPrice for symbol from the samples currently
// in its window, publishes the result, and raises a manipulation alert
// to the audit log if the score exceeds manipulation_alert_threshold.
func (e *Engine) Tick(ctx context.Context, symbol string) (contracts.ConsensusPrice, error) {
	st := e.stateFor(symbol)

	st.mu.Lock()
	samples := st.ring.Snapshot()
	totalVolume := 0.0
	for _, s := range samples {
		totalVolume += s.Volume
	}
	anomaly := st.baseline.Observe(totalVolume)
	st.mu.Unlock()

	now := e.now()
	price, stale := computeConsensus(e.cfg, symbol, samples, now, anomaly)
	st.latest.Store(&price)
	st.gen.Add(1)

	if e.mirror != nil {
		if err := e.mirror.Put(ctx, price); err != nil {
			return price, fmt.Errorf("oracle: mirror consensus price for %s: %w", symbol, err)
		}
	}

	if !stale && price.ManipulationScore > e.cfg.ManipulationAlertThreshold {
		if err := e.raiseAlert(ctx, price); err != nil {
			return price, err
		}
	}
	return price, nil
}

func (e *Engine) raiseAlert(ctx context.Context, price contracts.ConsensusPrice) error {
	if e.audit == nil {
		return nil
	}
	risk := contracts.RiskHigh
	recommendation := contracts.RecommendReview
	if price.ManipulationScore >= 0.95 {
		risk = contracts.RiskCritical
		recommendation = contracts.RecommendReject
	}
	record := &contracts.AuditRecord{
		RecordID: fmt.Sprintf("oracle-manipulation:%s:%s", price.Symbol, price.ComputedAt.UTC().Format(time.RFC3339Nano)),
		Verdict: contracts.Verdict{
			TrustScore:     clamp01(1-price.ManipulationScore) * 100,
			RiskLevel:      risk,
			Recommendation: recommendation,
		},
		OutcomeTag: "oracle_manipulation_alert",
		WallTime:   price.ComputedAt,
	}
	return e.audit.Enqueue(ctx, record)
}

// Latest returns the most recent ConsensusPrice for symbol, provided it
// is not older than maxStaleness relative to now. The second return
// value is false when there is no fresh snapshot (None per the
// freshness contract), signalling the caller to fall back to
// STALE_ORACLE.
func (e *Engine) Latest(symbol string, maxStaleness time.Duration, now time.Time) (contracts.ConsensusPrice, bool) {
	st := e.stateFor(symbol)
	p := st.latest.Load()
	if p == nil || now.Sub(p.ComputedAt) > maxStaleness {
		return contracts.ConsensusPrice{}, false
	}
	return *p, true
}

// Generation returns the number of consensus recomputations symbol has
// gone through so far. The Wrapper Runtime folds this into its
// fingerprint cache key as a context epoch, so a Trade decision cached
// against one consensus snapshot is never served again once a new Tick
// has changed the picture, even within the same cache_ttl window.
func (e *Engine) Generation(symbol string) uint64 {
	return e.stateFor(symbol).gen.Load()
}

// PublishMarketContext installs mc as the latest MarketContext for its
// asset symbol. Unlike ConsensusPrice, volatility/volume/liquidity are
// not derived from price samples alone, so callers (typically a
// separate market-data feed) publish it directly rather than it being
// computed by Tick.
func (e *Engine) PublishMarketContext(mc *contracts.MarketContext) {
	if mc == nil {
		return
	}
	st := e.stateFor(mc.AssetSymbol)
	cp := *mc
	st.market.Store(&cp)
}

// LatestMarketContext returns the most recently published MarketContext
// for symbol, provided it is not older than maxStaleness relative to
// now. The second return value is false when there is none, or it has
// gone stale — the caller (the Wrapper Runtime) proceeds with a nil
// MarketContext rather than blocking, letting the Verification Engine
// set STALE_ORACLE.
func (e *Engine) LatestMarketContext(symbol string, maxStaleness time.Duration, now time.Time) (*contracts.MarketContext, bool) {
	st := e.stateFor(symbol)
	mc := st.market.Load()
	if mc == nil || now.Sub(mc.SampledAt) > maxStaleness {
		return nil, false
	}
	cp := *mc
	return &cp, true
}

// Run polls every configured Source for every symbol on its own
// rate-limited schedule until ctx is cancelled, calling Tick after each
// poll round. A single Source's failure is logged to onSourceError (may
// be nil) and does not interrupt polling of the others.
func (e *Engine) Run(ctx context.Context, symbols []string, pollInterval time.Duration, onSourceError func(sourceID, symbol string, err error)) {
	limiters := make([]*rate.Limiter, len(e.sources))
	for i := range e.sources {
		limiters[i] = rate.NewLimiter(rate.Every(pollInterval), 1)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, symbol := range symbols {
				for i, src := range e.sources {
					if err := limiters[i].Wait(ctx); err != nil {
						return
					}
					sample, err := src.Poll(ctx, symbol)
					if err != nil {
						if onSourceError != nil {
							onSourceError(src.ID(), symbol, err)
						}
						continue
					}
					e.Observe(sample)
				}
				if _, err := e.Tick(ctx, symbol); err != nil && onSourceError != nil {
					onSourceError("engine", symbol, err)
				}
			}
		}
	}
}
