package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/trustwrapper/core/pkg/audit"
	"github.com/trustwrapper/core/pkg/config"
)

// runAuditRangeCmd implements `trustwrapper audit-range`: lists every
// AuditRecord between --from and --to from the configured audit sink.
// Without TRUSTWRAPPER_AUDIT_DSN there is nothing to query — a one-shot
// process never shares a MemorySink with anything else that could have
// written to it.
func runAuditRangeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit-range", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var from, to string
	cmd.StringVar(&from, "from", "", "Range start, RFC3339 (REQUIRED)")
	cmd.StringVar(&to, "to", "", "Range end, RFC3339 (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return exitConfigError
	}
	if from == "" || to == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --from and --to are required")
		return exitConfigError
	}
	fromT, err := time.Parse(time.RFC3339, from)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: --from: %v\n", err)
		return exitConfigError
	}
	toT, err := time.Parse(time.RFC3339, to)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: --to: %v\n", err)
		return exitConfigError
	}

	proc := config.LoadProcess()
	if proc.AuditSinkDSN == "" {
		_, _ = fmt.Fprintln(stderr, "Error: TRUSTWRAPPER_AUDIT_DSN is not set; there is no persistent audit log to query")
		return exitConfigError
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", proc.AuditSinkDSN)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: open audit database: %v\n", err)
		return exitConfigError
	}
	defer func() { _ = db.Close() }()

	sink, err := audit.NewPostgresSink(db)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: init audit sink: %v\n", err)
		return exitConfigError
	}

	records, err := sink.Range(ctx, audit.Range{From: fromT, To: toT})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: query audit range: %v\n", err)
		return exitAuditDegraded
	}

	for _, r := range records {
		data, _ := json.Marshal(r)
		_, _ = fmt.Fprintln(stdout, string(data))
	}
	_, _ = fmt.Fprintf(stderr, "%d record(s)\n", len(records))
	return exitOK
}
