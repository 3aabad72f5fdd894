package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// ErrBackpressure is returned by Enqueue when the append queue stays
// full for the configured backpressure timeout. Callers treat this as
// a PIPELINE_DEGRADED warning, not a verification failure: the Wrapper
// never blocks a caller on the audit log.
var ErrBackpressure = errors.New("audit: append queue backpressure exceeded")

// Writer is the single-writer front for a Sink: all chain sealing
// (PrevHash/RecordHash assignment) happens on one goroutine so append
// order is exactly enqueue order, with no risk of two concurrent
// callers racing to seal against the same head.
type Writer struct {
	sink    Sink
	queue   chan *contracts.AuditRecord
	timeout time.Duration
	onError func(r *contracts.AuditRecord, err error)

	mu     sync.Mutex
	head   string
	closed chan struct{}
	wg     sync.WaitGroup
}

// NewWriter creates a Writer fronting sink with the given queue depth
// and backpressure timeout, and starts its drain goroutine. onError,
// if non-nil, is invoked (off the caller's path) whenever a record
// cannot be sealed or persisted after its retry.
func NewWriter(ctx context.Context, sink Sink, queueDepth int, backpressureTimeout time.Duration, onError func(*contracts.AuditRecord, error)) (*Writer, error) {
	head, err := sink.Head(ctx)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		sink:    sink,
		queue:   make(chan *contracts.AuditRecord, queueDepth),
		timeout: backpressureTimeout,
		onError: onError,
		head:    head,
		closed:  make(chan struct{}),
	}
	w.wg.Add(1)
	go w.drain()
	return w, nil
}

// Enqueue submits r for sealing and append. It blocks only up to the
// writer's backpressure timeout (or ctx's deadline, whichever is
// sooner) if the queue is currently full.
func (w *Writer) Enqueue(ctx context.Context, r *contracts.AuditRecord) error {
	cctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	select {
	case w.queue <- r:
		return nil
	case <-cctx.Done():
		return ErrBackpressure
	}
}

// Close stops accepting new work is not provided here deliberately:
// callers stop calling Enqueue, then call Close to drain whatever is
// already queued before shutdown.
func (w *Writer) Close() {
	close(w.closed)
	w.wg.Wait()
}

func (w *Writer) drain() {
	defer w.wg.Done()
	for {
		select {
		case r := <-w.queue:
			w.append(r)
		case <-w.closed:
			w.drainRemaining()
			return
		}
	}
}

func (w *Writer) drainRemaining() {
	for {
		select {
		case r := <-w.queue:
			w.append(r)
		default:
			return
		}
	}
}

// append seals r against the current head and persists it, retrying
// once after a short backoff on a transient sink error before giving
// up and reporting via onError — the record is never silently dropped.
func (w *Writer) append(r *contracts.AuditRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := sealRecord(r, w.head); err != nil {
		w.report(r, err)
		return
	}

	ctx := context.Background()
	err := w.sink.Append(ctx, r)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		err = w.sink.Append(ctx, r)
	}
	if err != nil {
		w.report(r, err)
		return
	}
	w.head = r.RecordHash
}

func (w *Writer) report(r *contracts.AuditRecord, err error) {
	if w.onError != nil {
		w.onError(r, err)
	}
}
