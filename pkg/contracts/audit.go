package contracts

import "time"

// AuditRecord is one append-only entry in the tamper-evident audit log.
// Records are linked by PrevHash into a rolling hash chain.
//
//nolint:govet // fieldalignment: struct layout kept human-readable
type AuditRecord struct {
	RecordID            string    `json:"record_id"`
	DecisionFingerprint  [32]byte  `json:"decision_fingerprint"`
	Verdict              Verdict   `json:"verdict"`
	AttestationID        string    `json:"attestation_id,omitempty"`
	LatencyNS            int64     `json:"latency_ns"`
	OutcomeTag           string    `json:"outcome_tag"`
	WallTime             time.Time `json:"wall_time"`
	PrevHash             string    `json:"prev_hash"`
	RecordHash           string    `json:"record_hash"`
}
