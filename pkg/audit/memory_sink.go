package audit

import (
	"context"
	"sync"

	"github.com/trustwrapper/core/pkg/contracts"
)

// MemorySink is an in-process Sink used by tests and by Community-tier
// deployments that don't need durability across restarts.
type MemorySink struct {
	mu      sync.RWMutex
	records []*contracts.AuditRecord
	byID    map[string]*contracts.AuditRecord
	head    string
}

// NewMemorySink creates an empty in-memory audit log.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		byID: make(map[string]*contracts.AuditRecord),
		head: genesisHash,
	}
}

func (s *MemorySink) Append(ctx context.Context, r *contracts.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byID[r.RecordID]; dup {
		return nil // at-most-once: retried appends of an already-committed record are a no-op
	}

	cp := *r
	s.records = append(s.records, &cp)
	s.byID[cp.RecordID] = &cp
	s.head = cp.RecordHash
	return nil
}

func (s *MemorySink) Head(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head, nil
}

func (s *MemorySink) Get(ctx context.Context, recordID string) (*contracts.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[recordID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemorySink) Range(ctx context.Context, rg Range) ([]*contracts.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*contracts.AuditRecord, 0)
	for i, r := range s.records {
		seq := uint64(i + 1)
		if rg.StartSeq > 0 && seq < rg.StartSeq {
			continue
		}
		if rg.EndSeq > 0 && seq > rg.EndSeq {
			continue
		}
		if !rg.From.IsZero() && r.WallTime.Before(rg.From) {
			continue
		}
		if !rg.To.IsZero() && r.WallTime.After(rg.To) {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if rg.Limit > 0 && len(out) >= rg.Limit {
			break
		}
	}
	return out, nil
}
