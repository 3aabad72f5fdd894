// Package audit implements the tamper-evident audit log (C5): an
// append-only, hash-chained sequence of AuditRecords with pluggable
// backends (in-memory, SQLite, Postgres, cold archival to S3/GCS) and
// a single-writer queue enforcing append ordering under backpressure.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// ErrRecordNotFound is returned when a lookup by ID or hash misses.
var ErrRecordNotFound = errors.New("audit: record not found")

// Range bounds a Sink.Range query. Zero values are unbounded.
type Range struct {
	From time.Time
	To   time.Time
	// StartSeq/EndSeq are inclusive sequence bounds; zero means unbounded.
	StartSeq uint64
	EndSeq   uint64
	Limit    int
}

// Sink is the storage contract for the audit log. Implementations
// append records one at a time, in order; the write side is always
// single-threaded (enforced by Writer, not by Sink itself), so Sink
// implementations need not provide their own append-level locking
// beyond what's required for concurrent Range readers.
type Sink interface {
	// Append persists r, which must already be sealed (PrevHash and
	// RecordHash populated) by the caller — normally Writer.
	Append(ctx context.Context, r *contracts.AuditRecord) error
	// Head returns the RecordHash of the most recently appended
	// record, or the genesis hash if the log is empty.
	Head(ctx context.Context) (string, error)
	// Range returns records matching the given bounds, ordered by
	// sequence of append.
	Range(ctx context.Context, r Range) ([]*contracts.AuditRecord, error)
	// Get retrieves a single record by ID.
	Get(ctx context.Context, recordID string) (*contracts.AuditRecord, error)
}
