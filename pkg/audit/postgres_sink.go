package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trustwrapper/core/pkg/contracts"
)

// PostgresSink is the multi-instance durable Sink: many TrustWrapper
// processes append to one database, so Head/VerifyChain observe a
// consistent view regardless of which instance served a given verify
// call. The caller owns driver registration (blank-import
// github.com/lib/pq) and connection pooling.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink wraps an existing *sql.DB and ensures the schema
// exists.
func NewPostgresSink(db *sql.DB) (*PostgresSink, error) {
	s := &PostgresSink{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_records (
		sequence             BIGSERIAL PRIMARY KEY,
		record_id            TEXT UNIQUE NOT NULL,
		decision_fingerprint TEXT NOT NULL,
		verdict              JSONB NOT NULL,
		attestation_id       TEXT,
		latency_ns           BIGINT NOT NULL,
		outcome_tag          TEXT NOT NULL,
		wall_time            TIMESTAMPTZ NOT NULL,
		prev_hash            TEXT NOT NULL,
		record_hash           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_records_wall_time ON audit_records(wall_time);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

func (s *PostgresSink) Append(ctx context.Context, r *contracts.AuditRecord) error {
	verdictJSON, err := json.Marshal(r.Verdict)
	if err != nil {
		return fmt.Errorf("audit: marshal verdict: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			record_id, decision_fingerprint, verdict, attestation_id,
			latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (record_id) DO NOTHING`,
		r.RecordID,
		hex.EncodeToString(r.DecisionFingerprint[:]),
		string(verdictJSON),
		r.AttestationID,
		r.LatencyNS,
		r.OutcomeTag,
		r.WallTime.UTC(),
		r.PrevHash,
		r.RecordHash,
	)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

func (s *PostgresSink) Head(ctx context.Context) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_hash FROM audit_records ORDER BY sequence DESC LIMIT 1`,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return genesisHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("audit: head: %w", err)
	}
	return hash, nil
}

func (s *PostgresSink) Get(ctx context.Context, recordID string) (*contracts.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT record_id, decision_fingerprint, verdict, attestation_id,
		       latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		FROM audit_records WHERE record_id = $1`, recordID)
	r, err := scanPostgresRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return r, err
}

func (s *PostgresSink) Range(ctx context.Context, rg Range) ([]*contracts.AuditRecord, error) {
	query := `
		SELECT record_id, decision_fingerprint, verdict, attestation_id,
		       latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		FROM audit_records WHERE TRUE`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !rg.From.IsZero() {
		query += " AND wall_time >= " + arg(rg.From.UTC())
	}
	if !rg.To.IsZero() {
		query += " AND wall_time <= " + arg(rg.To.UTC())
	}
	if rg.StartSeq > 0 {
		query += " AND sequence >= " + arg(rg.StartSeq)
	}
	if rg.EndSeq > 0 {
		query += " AND sequence <= " + arg(rg.EndSeq)
	}
	query += " ORDER BY sequence ASC"
	if rg.Limit > 0 {
		query += " LIMIT " + arg(rg.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: range query: %w", err)
	}
	defer rows.Close()

	var out []*contracts.AuditRecord
	for rows.Next() {
		r, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: range scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanPostgresRecord(row rowScanner) (*contracts.AuditRecord, error) {
	var (
		recordID, fingerprintHex, verdictJSON string
		attestationID, outcomeTag             string
		latencyNS                             int64
		wallTime                              time.Time
		prevHash, recordHash                  string
	)
	if err := row.Scan(&recordID, &fingerprintHex, &verdictJSON, &attestationID,
		&latencyNS, &outcomeTag, &wallTime, &prevHash, &recordHash); err != nil {
		return nil, err
	}

	var fingerprint [32]byte
	raw, err := hex.DecodeString(fingerprintHex)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("audit: corrupt decision_fingerprint for record %s", recordID)
	}
	copy(fingerprint[:], raw)

	var verdict contracts.Verdict
	if err := json.Unmarshal([]byte(verdictJSON), &verdict); err != nil {
		return nil, fmt.Errorf("audit: corrupt verdict for record %s: %w", recordID, err)
	}

	return &contracts.AuditRecord{
		RecordID:            recordID,
		DecisionFingerprint: fingerprint,
		Verdict:             verdict,
		AttestationID:       attestationID,
		LatencyNS:           latencyNS,
		OutcomeTag:          outcomeTag,
		WallTime:            wallTime,
		PrevHash:            prevHash,
		RecordHash:          recordHash,
	}, nil
}

// Close releases the underlying database handle.
func (s *PostgresSink) Close() error { return s.db.Close() }
