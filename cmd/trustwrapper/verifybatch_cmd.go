package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/trustwrapper/core/pkg/config"
	"github.com/trustwrapper/core/pkg/wrapper"
)

// runVerifyBatchCmd implements `trustwrapper verify-batch`: verifies
// every *.json Decision file in --in concurrently and prints one
// result line per file, in the same order the files were listed.
func runVerifyBatchCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify-batch", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var inDir string
	cmd.StringVar(&inDir, "in", "", "Path to a directory of Decision JSON files (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return exitConfigError
	}
	if inDir == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --in is required")
		return exitConfigError
	}

	paths, err := filepath.Glob(filepath.Join(inDir, "*.json"))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		_, _ = fmt.Fprintf(stderr, "Error: no *.json decisions found in %s\n", inDir)
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

	reqs := make([]wrapper.Request, len(paths))
	for i, p := range paths {
		decision, err := loadDecision(p)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitConfigError
		}
		token, err := dep.issueCallerToken(ctx, decision.Agent)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitConfigError
		}
		reqs[i] = wrapper.Request{Decision: *decision, CallerToken: token}
	}

	results, errs := dep.Wrapper.VerifyBatch(ctx, reqs)

	worst := exitOK
	for i, p := range paths {
		if errs[i] != nil {
			_, _ = fmt.Fprintf(stdout, "%s: ERROR %v\n", p, errs[i])
			if c := exitCodeFor(errs[i]); c > worst {
				worst = c
			}
			continue
		}
		data, _ := json.Marshal(results[i])
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", p, string(data))
		if results[i].Verdict.DeadlineHit && exitDeadlineExceeded > worst {
			worst = exitDeadlineExceeded
		}
	}
	return worst
}
