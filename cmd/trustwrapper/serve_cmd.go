package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trustwrapper/core/pkg/auth"
	"github.com/trustwrapper/core/pkg/config"
	"github.com/trustwrapper/core/pkg/wrapper"
)

// runServeCmd implements `trustwrapper serve`: a long-running HTTP
// adapter over a Wrapper, shut down gracefully on SIGINT/SIGTERM. It
// requires the loaded PolicyConfig's tier to carry
// tiers.FeatureHTTPAdapter (Professional or Enterprise); a Community
// policy document is rejected with a configuration error rather than
// silently serving an unsupported surface.
func runServeCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var rps float64
	var burst int
	cmd.Float64Var(&rps, "rate-limit-rps", 50, "Per-caller requests-per-second limit")
	cmd.IntVar(&burst, "rate-limit-burst", 100, "Per-caller burst size")
	if err := cmd.Parse(args); err != nil {
		return exitConfigError
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	proc := config.LoadProcess()
	dep, err := buildWrapper(ctx, proc)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}
	defer func() { _ = dep.Close() }()

	limiter := auth.NewLimiterStore(rps, burst)
	srv, err := wrapper.NewServer(dep.Wrapper, dep.Validator, limiter)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConfigError
	}

	httpServer := &http.Server{
		Addr:              proc.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		_, _ = fmt.Fprintf(stdout, "trustwrapper listening on %s\n", proc.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitConfigError
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: shutdown: %v\n", err)
			return exitConfigError
		}
	}
	return exitOK
}
