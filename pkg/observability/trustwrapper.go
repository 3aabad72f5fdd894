// Package observability provides TrustWrapper-specific instrumentation helpers.
package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TrustWrapper-specific semantic convention attributes.
var (
	// Decision/Verdict attributes
	AttrDecisionID  = attribute.Key("trustwrapper.decision.id")
	AttrAgentHandle = attribute.Key("trustwrapper.agent.handle")
	AttrRiskLevel   = attribute.Key("trustwrapper.verdict.risk_level")
	AttrTrustScore  = attribute.Key("trustwrapper.verdict.trust_score")
	AttrRecomm      = attribute.Key("trustwrapper.verdict.recommendation")

	// Oracle consensus attributes
	AttrOracleSourceID = attribute.Key("trustwrapper.oracle.source_id")
	AttrOracleQuorum   = attribute.Key("trustwrapper.oracle.quorum_met")
	AttrOracleVariance = attribute.Key("trustwrapper.oracle.variance")

	// Attestation attributes
	AttrProofScheme  = attribute.Key("trustwrapper.attestation.scheme")
	AttrProveMs      = attribute.Key("trustwrapper.attestation.prove_ms")
	AttrAttestFailed = attribute.Key("trustwrapper.attestation.failed")

	// Policy attributes
	AttrPolicyVersion = attribute.Key("trustwrapper.policy.version")
	AttrCodeVersion   = attribute.Key("trustwrapper.policy.code_version")
)

// VerdictOperation creates attributes for a completed verification.
func VerdictOperation(decisionID, agentHandle, riskLevel, recommendation string, trustScore float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrDecisionID.String(decisionID),
		AttrAgentHandle.String(agentHandle),
		AttrRiskLevel.String(riskLevel),
		AttrRecomm.String(recommendation),
		AttrTrustScore.Float64(trustScore),
	}
}

// OracleOperation creates attributes for an oracle consensus round.
func OracleOperation(sourceID string, quorumMet bool, variance float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrOracleSourceID.String(sourceID),
		AttrOracleQuorum.Bool(quorumMet),
		AttrOracleVariance.Float64(variance),
	}
}

// AttestationOperation creates attributes for a proof generation attempt.
func AttestationOperation(scheme string, proveMs float64, failed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrProofScheme.String(scheme),
		AttrProveMs.Float64(proveMs),
		AttrAttestFailed.Bool(failed),
	}
}

// PolicyOperation creates attributes for the policy version bound to a call.
func PolicyOperation(policyVersion, codeVersion int) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrPolicyVersion.Int(policyVersion),
		AttrCodeVersion.Int(codeVersion),
	}
}

// SpanFromContext extracts the span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetSpanStatus records an error against the current span, if any.
func SetSpanStatus(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
	}
}
