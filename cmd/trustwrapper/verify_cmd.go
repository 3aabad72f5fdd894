package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/trustwrapper/core/pkg/config"
	"github.com/trustwrapper/core/pkg/contracts"
	"github.com/trustwrapper/core/pkg/wrapper"
)

// runVerifyCmd implements `trustwrapper verify`: reads one Decision from
// --in, verifies it through a freshly wired Wrapper Runtime, and prints
// the resulting Verdict (and Attestation, unless --skip-attestation).
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		inPath          string
		deadlineMS      int64
		skipAttestation bool
	)
	cmd.StringVar(&inPath, "in", "", "Path to a Decision JSON file (REQUIRED)")
	cmd.Int64Var(&deadlineMS, "deadline-ms", 0, "Deadline in milliseconds from now (0 = policy default)")
	cmd.BoolVar(&skipAttestation, "skip-attestation", false, "Verify only, skip ZK attestation")

	if err := cmd.Parse(args); err != nil {
		return exitConfigError
	}
	if inPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --in is required")
		return exitConfigError
	}

	decision, err := loadDecision(inPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}

	ctx := context.Background()
	proc := config.LoadProcess()
	dep, err := buildWrapper(ctx, proc)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}
	defer func() { _ = dep.Close() }()

	token, err := dep.issueCallerToken(ctx, decision.Agent)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}

	req := wrapper.Request{Decision: *decision, CallerToken: token, SkipAttestation: skipAttestation}
	if deadlineMS > 0 {
		req.Deadline = time.Now().Add(time.Duration(deadlineMS) * time.Millisecond)
	}

	result, err := dep.Wrapper.Verify(ctx, req)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: verification failed: %v\n", err)
		return exitCodeFor(err)
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))

	if result.Verdict.DeadlineHit {
		return exitDeadlineExceeded
	}
	if result.Verdict.Recommendation == contracts.RecommendReject {
		return exitVerificationError
	}
	return exitOK
}

func loadDecision(path string) (*contracts.Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var d contracts.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &d, nil
}

// exitCodeFor maps a VerifyError's code to this CLI's exit-code
// vocabulary; anything else is a generic configuration/runtime error.
func exitCodeFor(err error) int {
	verr, ok := err.(*contracts.VerifyError)
	if !ok {
		return exitConfigError
	}
	switch verr.Code {
	case contracts.ErrDeadlineTooTight, contracts.ErrDeadlineExceeded:
		return exitDeadlineExceeded
	case contracts.ErrAuditDegraded:
		return exitAuditDegraded
	case contracts.ErrInputMalformed, contracts.ErrConfigInvalid, contracts.ErrPolicyVersionMismatch:
		return exitConfigError
	default:
		return exitVerificationError
	}
}
