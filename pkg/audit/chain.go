package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/trustwrapper/core/pkg/contracts"
)

// ErrChainBroken is returned by VerifyChain when a record's stored
// hash does not match its recomputed value, or its PrevHash does not
// match the preceding record's RecordHash.
var ErrChainBroken = errors.New("audit: hash chain is broken")

// genesisHash seeds the chain for the first record appended to an
// empty log.
const genesisHash = "genesis"

type hashable struct {
	RecordID            string  `json:"record_id"`
	DecisionFingerprint string  `json:"decision_fingerprint"`
	TrustScore          float64 `json:"trust_score"`
	RiskLevel           string  `json:"risk_level"`
	Recommendation      string  `json:"recommendation"`
	AttestationID       string  `json:"attestation_id,omitempty"`
	LatencyNS           int64   `json:"latency_ns"`
	OutcomeTag          string  `json:"outcome_tag"`
	WallTimeUnixNano    int64   `json:"wall_time_unix_nano"`
	PrevHash            string  `json:"prev_hash"`
}

// computeRecordHash binds a record to its predecessor: record N's hash
// commits to record N-1's hash, so altering or reordering any past
// record changes every hash after it.
func computeRecordHash(r *contracts.AuditRecord) (string, error) {
	h := hashable{
		RecordID:            r.RecordID,
		DecisionFingerprint: hex.EncodeToString(r.DecisionFingerprint[:]),
		TrustScore:          r.Verdict.TrustScore,
		RiskLevel:           string(r.Verdict.RiskLevel),
		Recommendation:      string(r.Verdict.Recommendation),
		AttestationID:       r.AttestationID,
		LatencyNS:           r.LatencyNS,
		OutcomeTag:          r.OutcomeTag,
		WallTimeUnixNano:    r.WallTime.UnixNano(),
		PrevHash:            r.PrevHash,
	}
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("audit: marshal record for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

// sealRecord stamps r with the previous record's hash and computes its
// own RecordHash, mutating r in place.
func sealRecord(r *contracts.AuditRecord, prevHash string) error {
	r.PrevHash = prevHash
	hash, err := computeRecordHash(r)
	if err != nil {
		return err
	}
	r.RecordHash = hash
	return nil
}

// VerifyChain checks that records form an unbroken, tamper-evident
// chain in append order. It is shared by every Sink implementation so
// "is my log intact" means the same thing regardless of backend.
func VerifyChain(records []*contracts.AuditRecord) error {
	prev := genesisHash
	for i, r := range records {
		if r.PrevHash != prev {
			return fmt.Errorf("%w: record %d (%s) has prev_hash %s, expected %s",
				ErrChainBroken, i, r.RecordID, r.PrevHash, prev)
		}
		computed, err := computeRecordHash(r)
		if err != nil {
			return fmt.Errorf("%w: record %d hash computation failed: %w", ErrChainBroken, i, err)
		}
		if computed != r.RecordHash {
			return fmt.Errorf("%w: record %d (%s) hash mismatch: computed %s, stored %s",
				ErrChainBroken, i, r.RecordID, computed, r.RecordHash)
		}
		prev = r.RecordHash
	}
	return nil
}
