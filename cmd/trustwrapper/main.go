// Command trustwrapper is the reference CLI over the Wrapper Runtime:
// single-shot verify/verify-batch calls against a JSON decision file,
// one-shot oracle and audit inspection, and a long-running HTTP server.
package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes. 0 is the only code meaning "nothing to report"; every
// other code tells an operator or a script which stage failed without
// having to parse stderr.
const (
	exitOK                = 0
	exitConfigError       = 2
	exitDeadlineExceeded  = 3
	exitVerificationError = 4
	exitAuditDegraded     = 5
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the dispatcher; broken out from main so tests can drive it
// without touching the process's real stdout/stderr/exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return exitConfigError
	}

	switch args[1] {
	case "verify":
		return runVerifyCmd(args[2:], stdout, stderr)
	case "verify-batch":
		return runVerifyBatchCmd(args[2:], stdout, stderr)
	case "oracle-status":
		return runOracleStatusCmd(args[2:], stdout, stderr)
	case "audit-range":
		return runAuditRangeCmd(args[2:], stdout, stderr)
	case "serve":
		return runServeCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return exitConfigError
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "trustwrapper - AI agent decision verification")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  trustwrapper verify --in <decision.json> [--deadline-ms N] [--skip-attestation]")
	fmt.Fprintln(w, "  trustwrapper verify-batch --in <dir-of-decision.json>")
	fmt.Fprintln(w, "  trustwrapper oracle-status --symbol <SYM> [--simulate]")
	fmt.Fprintln(w, "  trustwrapper audit-range --from <RFC3339> --to <RFC3339>")
	fmt.Fprintln(w, "  trustwrapper serve")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  TRUSTWRAPPER_CONFIG        policy document path (default policy.yaml)")
	fmt.Fprintln(w, "  TRUSTWRAPPER_LOG_LEVEL     log level (default INFO)")
	fmt.Fprintln(w, "  TRUSTWRAPPER_PROOF_SCHEME  HASH_BINDING_ONLY | SNARK_GROTH16_STYLE | STARK_STYLE")
	fmt.Fprintln(w, "  TRUSTWRAPPER_AUDIT_DSN     Postgres DSN for the audit log (in-memory if unset)")
	fmt.Fprintln(w, "  TRUSTWRAPPER_LISTEN_ADDR   serve's listen address (default :8080)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Exit codes: 0 ok, 2 configuration error, 3 deadline exceeded, 4 verification error, 5 audit degraded")
}
