package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trustwrapper/core/pkg/artifacts"
	"github.com/trustwrapper/core/pkg/contracts"
)

// ColdArchiver moves a closed range of AuditRecords into
// content-addressed cold storage (Enterprise-tier retention), freeing
// the primary Sink from holding every record forever.
type ColdArchiver struct {
	store artifacts.Store
}

// NewColdArchiver wraps a content-addressed Store (file, S3, or GCS —
// see pkg/artifacts) as the archival backend.
func NewColdArchiver(store artifacts.Store) *ColdArchiver {
	return &ColdArchiver{store: store}
}

// Bundle is the archived unit: a contiguous, chain-verified slice of
// the audit log plus the metadata needed to locate it again.
type Bundle struct {
	ArchivedAt time.Time               `json:"archived_at"`
	StartSeq   uint64                  `json:"start_sequence,omitempty"`
	EndSeq     uint64                  `json:"end_sequence,omitempty"`
	Records    []*contracts.AuditRecord `json:"records"`
}

// ArchiveRange verifies records form an intact chain segment, then
// persists them as one content-addressed bundle and returns its hash.
func (a *ColdArchiver) ArchiveRange(ctx context.Context, records []*contracts.AuditRecord) (string, error) {
	if len(records) == 0 {
		return "", fmt.Errorf("audit: cannot archive an empty range")
	}
	if err := VerifyChain(records); err != nil {
		return "", fmt.Errorf("audit: refusing to archive a broken chain segment: %w", err)
	}

	bundle := Bundle{
		ArchivedAt: time.Now().UTC(),
		Records:    records,
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("audit: marshal archive bundle: %w", err)
	}

	hash, err := a.store.Store(ctx, data)
	if err != nil {
		return "", fmt.Errorf("audit: store archive bundle: %w", err)
	}
	return hash, nil
}

// FetchBundle retrieves and verifies a previously archived bundle.
func (a *ColdArchiver) FetchBundle(ctx context.Context, hash string) (*Bundle, error) {
	data, err := a.store.Get(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("audit: fetch archive bundle: %w", err)
	}
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("audit: corrupt archive bundle %s: %w", hash, err)
	}
	if err := VerifyChain(bundle.Records); err != nil {
		return nil, fmt.Errorf("audit: archived bundle %s failed chain verification: %w", hash, err)
	}
	return &bundle, nil
}
