// Package oracle implements Oracle Consensus: it polls independent
// price sources, maintains a bounded per-symbol sample window, and
// derives a manipulation-aware ConsensusPrice the Verification Engine
// consults for market risk.
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// ErrSourceUnavailable is returned by a Source when it cannot produce a
// sample for a symbol right now (network error, RPC timeout, symbol not
// carried by this feed). The caller treats it as reduced redundancy,
// not a fatal failure.
var ErrSourceUnavailable = errors.New("oracle: source unavailable")

// Source is one opaque price feed. Implementations may read a
// blockchain RPC, a signed HTTPS feed, or generate simulated data; the
// consensus engine never branches on concrete type.
type Source interface {
	// ID is the source_id recorded on every sample this Source produces.
	ID() string
	// Poll fetches the latest sample for symbol. Returns
	// ErrSourceUnavailable (or a wrapped form of it) on transient
	// failure.
	Poll(ctx context.Context, symbol string) (contracts.OracleSample, error)
}

// clock lets tests substitute a fixed time source.
type clock func() time.Time
