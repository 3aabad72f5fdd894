package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // Postgres driver, registered for pkg/audit.PostgresSink

	"github.com/trustwrapper/core/pkg/attestation"
	"github.com/trustwrapper/core/pkg/audit"
	"github.com/trustwrapper/core/pkg/auth"
	"github.com/trustwrapper/core/pkg/cache"
	"github.com/trustwrapper/core/pkg/config"
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/detectors"
	"github.com/trustwrapper/core/pkg/finance"
	"github.com/trustwrapper/core/pkg/observability"
	"github.com/trustwrapper/core/pkg/policy"
	"github.com/trustwrapper/core/pkg/verify"
	"github.com/trustwrapper/core/pkg/wrapper"
)

// deployment bundles everything buildWrapper wires up, so callers can
// close what needs closing once they're done with the Wrapper.
type deployment struct {
	Wrapper   *wrapper.Wrapper
	Validator *auth.CallerValidator
	KeySet    *auth.InMemoryKeySet
	closers   []func() error
}

func (d *deployment) Close() error {
	var first error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// buildWrapper assembles a Wrapper from process configuration: loads the
// PolicyConfig document, resolves the proof scheme, and wires an audit
// sink (Postgres if TRUSTWRAPPER_AUDIT_DSN is set, in-memory otherwise).
// It wires no oracle reader into the Wrapper and runs no background
// oracle polling, so Trade decisions are evaluated without a
// MarketContext or ConsensusPrice and carry STALE_ORACLE.
func buildWrapper(ctx context.Context, proc *config.ProcessConfig) (*deployment, error) {
	loader, err := config.NewLoader(proc.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load policy document %s: %w", proc.PolicyPath, err)
	}
	cfg := loader.Current()

	schemeTag, err := parseProofScheme(proc.ProofScheme)
	if err != nil {
		return nil, err
	}
	scheme, err := attestation.New(schemeTag, cfg.RiskLevelThresholds)
	if err != nil {
		return nil, fmt.Errorf("build proof scheme: %w", err)
	}
	if err := scheme.Setup(); err != nil {
		return nil, fmt.Errorf("set up proof scheme: %w", err)
	}
	attestor := attestation.NewAttestor(scheme)

	policyEngine, err := policy.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("build policy engine: %w", err)
	}
	if err := policyEngine.LoadRules(cfg.PolicyRules); err != nil {
		return nil, fmt.Errorf("load policy rules: %w", err)
	}

	dets := []detectors.Detector{
		detectors.NewCitationDetector(),
		detectors.NewContradictionDetector(),
		detectors.NewTemporalDetector(),
		detectors.NewFactualDetector(nil),
	}
	verifyEngine := verify.NewEngine(cfg, policyEngine, dets)

	keySet, err := auth.NewInMemoryKeySet()
	if err != nil {
		return nil, fmt.Errorf("generate caller_meta signing key: %w", err)
	}
	validator := auth.NewCallerValidator(keySet)

	d := &deployment{Validator: validator, KeySet: keySet}

	sink, sinkCloser, err := buildAuditSink(proc)
	if err != nil {
		return nil, err
	}
	if sinkCloser != nil {
		d.closers = append(d.closers, sinkCloser)
	}

	writer, err := audit.NewWriter(ctx, sink, 256, cfg.AuditBackpressureTimeout.Std(), nil)
	if err != nil {
		return nil, fmt.Errorf("start audit writer: %w", err)
	}
	d.closers = append(d.closers, func() error { writer.Close(); return nil })

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = false
	provider, err := observability.New(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability provider: %w", err)
	}
	d.closers = append(d.closers, func() error { return provider.Shutdown(ctx) })

	exposure, exposureCloser, err := buildExposureTracker(proc)
	if err != nil {
		return nil, err
	}
	if exposureCloser != nil {
		d.closers = append(d.closers, exposureCloser)
	}

	d.Wrapper = wrapper.New(wrapper.Options{
		Validator:       validator,
		Cache:           cache.New(10_000, cfg.CacheBytesBudget, cfg.CacheTTL.Std()),
		Engine:          verifyEngine,
		Attestor:        attestor,
		AuditWriter:     writer,
		ExposureTracker: exposure,
		Provider:        provider,
		PolicyConfig:    cfg,
	})
	return d, nil
}

// buildExposureTracker wires a Postgres-backed ExposureTracker when
// TRUSTWRAPPER_EXPOSURE_DSN is configured. Without it, nil is returned
// and the Wrapper simply skips cross-instance exposure enforcement —
// the in-process PositionBudget check still applies if one was set up
// by the caller separately.
func buildExposureTracker(proc *config.ProcessConfig) (finance.ExposureTracker, func() error, error) {
	if proc.ExposureDSN == "" {
		return nil, nil, nil
	}
	db, err := sql.Open("postgres", proc.ExposureDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open exposure database: %w", err)
	}
	return finance.NewPostgresExposureTracker(db), db.Close, nil
}

func buildAuditSink(proc *config.ProcessConfig) (audit.Sink, func() error, error) {
	if proc.AuditSinkDSN == "" {
		return audit.NewMemorySink(), nil, nil
	}
	db, err := sql.Open("postgres", proc.AuditSinkDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit database: %w", err)
	}
	sink, err := audit.NewPostgresSink(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("init postgres audit sink: %w", err)
	}
	return sink, sink.Close, nil
}

func parseProofScheme(s string) (contracts.ProofSchemeTag, error) {
	switch s {
	case "HASH_BINDING_ONLY":
		return contracts.SchemeHashBindingOnly, nil
	case "SNARK_GROTH16_STYLE":
		return contracts.SchemeSNARKGroth16Style, nil
	case "STARK_STYLE":
		return contracts.SchemeSTARKStyle, nil
	default:
		return 0, contracts.NewVerifyError(contracts.ErrConfigInvalid, "unknown TRUSTWRAPPER_PROOF_SCHEME: "+s, nil)
	}
}

// issueCallerToken signs a caller_meta token for agent using d's own
// key set. Single-process CLI invocations have no separate identity
// provider to delegate to, so the CLI is its own caller_meta issuer —
// the same trust boundary as a developer running `verify` against their
// own local policy document.
func (d *deployment) issueCallerToken(ctx context.Context, agent contracts.AgentHandle) (string, error) {
	claims := &auth.CallerClaims{AgentHandle: string(agent), Scopes: []string{"verify"}}
	claims.Subject = string(agent)
	return d.KeySet.Sign(ctx, claims)
}
