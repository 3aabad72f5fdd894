package attestation

import (
	"fmt"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// Report is attestation verification's auditor-facing output: every
// field is meant to be evidence-grade, so a counterparty rejecting an
// Attestation can say exactly which check failed instead of a single
// opaque false.
type Report struct {
	SchemeTag  contracts.ProofSchemeTag `json:"scheme_tag"`
	Verified   bool                     `json:"verified"`
	Timestamp  time.Time                `json:"timestamp"`
	Checks     []Check                  `json:"checks"`
	Summary    string                   `json:"summary"`
	IssueCount int                      `json:"issue_count"`
}

// Check is one named pass/fail verification step.
type Check struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Reason string `json:"reason,omitempty"`
}

// VerifyWithReport runs the same verification VerifyAttestation does,
// against the independently-supplied verdict, plus its individual
// preconditions, as separately named checks.
func VerifyWithReport(scheme ProofScheme, verdict *contracts.Verdict, att *contracts.Attestation) *Report {
	report := &Report{SchemeTag: att.SchemeTag, Timestamp: time.Now().UTC()}

	schemeMatch := att.SchemeTag == scheme.Tag()
	report.add(Check{
		Name:   "scheme_tag_match",
		Pass:   schemeMatch,
		Reason: reasonUnless(schemeMatch, "attestation scheme tag does not match verifier"),
	})

	_, marshalErr := att.PublicInputs.MarshalBinary()
	wellFormed := marshalErr == nil
	report.add(Check{
		Name:   "public_inputs_well_formed",
		Pass:   wellFormed,
		Reason: reasonUnless(wellFormed, errString(marshalErr)),
	})

	expected, commitErr := expectedPublicInputs(verdict, att.PublicInputs.Timestamp)
	commitmentBound := wellFormed && commitErr == nil && expected.VerdictCommitment == att.VerdictCommitment
	report.add(Check{
		Name:   "verdict_commitment_bound",
		Pass:   commitmentBound,
		Reason: reasonUnless(commitmentBound, "attestation's verdict_commitment does not match the commitment recomputed from the supplied verdict"),
	})

	boundToVerdict := commitmentBound && expected == att.PublicInputs
	report.add(Check{
		Name:   "public_inputs_match_verdict",
		Pass:   boundToVerdict,
		Reason: reasonUnless(boundToVerdict, "public inputs do not match those independently derived from the supplied verdict; attestation may belong to a different verdict"),
	})

	if schemeMatch {
		ok, err := scheme.Verify(att.ProofBlob, att.PublicInputs)
		reason := ""
		switch {
		case err != nil:
			reason = err.Error()
		case !ok:
			reason = "proof does not verify against public inputs"
		}
		report.add(Check{Name: "proof_verifies", Pass: ok && err == nil, Reason: reason})
	} else {
		report.add(Check{Name: "proof_verifies", Pass: false, Reason: "skipped: scheme tag mismatch"})
	}

	failed := 0
	for _, c := range report.Checks {
		if !c.Pass {
			failed++
		}
	}
	report.IssueCount = failed
	report.Verified = failed == 0
	if report.Verified {
		report.Summary = fmt.Sprintf("PASS: %d/%d checks passed", len(report.Checks), len(report.Checks))
	} else {
		report.Summary = fmt.Sprintf("FAIL: %d/%d checks failed", failed, len(report.Checks))
	}
	return report
}

func (r *Report) add(c Check) { r.Checks = append(r.Checks, c) }

func reasonUnless(pass bool, reason string) string {
	if pass {
		return ""
	}
	return reason
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
