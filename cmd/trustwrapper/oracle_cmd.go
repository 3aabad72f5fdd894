package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/trustwrapper/core/pkg/config"
	"github.com/trustwrapper/core/pkg/oracle"
)

// runOracleStatusCmd implements `trustwrapper oracle-status`: a
// one-shot poll-and-consensus round for --symbol, printed as the
// ConsensusPrice it would have handed the Verification Engine. It
// requires --simulate: no live feed is configured for a one-shot call,
// so without that flag it exits with a configuration error.
func runOracleStatusCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("oracle-status", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		symbol    string
		simulate  bool
		basePrice float64
	)
	cmd.StringVar(&symbol, "symbol", "", "Asset symbol to report on (REQUIRED)")
	cmd.BoolVar(&simulate, "simulate", false, "Use a simulated source instead of a live feed")
	cmd.Float64Var(&basePrice, "base-price", 100, "Simulated source base price")
	if err := cmd.Parse(args); err != nil {
		return exitConfigError
	}
	if symbol == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --symbol is required")
		return exitConfigError
	}
	if !simulate {
		_, _ = fmt.Fprintln(stderr, "Error: no live oracle sources are configured for a one-shot CLI call; pass --simulate, or use `trustwrapper serve` for a live feed")
		return exitConfigError
	}

	ctx := context.Background()
	proc := config.LoadProcess()
	loader, err := config.NewLoader(proc.PolicyPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}
	cfg := loader.Current()

	sources := []oracle.Source{
		oracle.NewSimulatedSource("cli-sim-1", basePrice, 0.01, 1),
		oracle.NewSimulatedSource("cli-sim-2", basePrice, 0.01, 2),
		oracle.NewSimulatedSource("cli-sim-3", basePrice, 0.01, 3),
	}
	engine := oracle.NewEngine(cfg, sources, nil)

	for _, src := range sources {
		sample, err := src.Poll(ctx, symbol)
		if err != nil {
			continue
		}
		engine.Observe(sample)
	}
	price, err := engine.Tick(ctx, symbol)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitVerificationError
	}

	data, _ := json.MarshalIndent(price, "", "  ")
	_, _ = fmt.Fprintln(stdout, string(data))
	return exitOK
}
