package audit

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/trustwrapper/core/pkg/contracts"
)

// SQLiteSink is the local-first, single-node durable Sink: one SQLite
// file, no external services, suitable for an embedded TrustWrapper
// deployment running alongside the agent it verifies.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (creating if necessary) a SQLite-backed audit
// log at path and ensures its schema exists.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_records (
		sequence             INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id            TEXT UNIQUE NOT NULL,
		decision_fingerprint TEXT NOT NULL,
		verdict              TEXT NOT NULL,
		attestation_id       TEXT,
		latency_ns           INTEGER NOT NULL,
		outcome_tag          TEXT NOT NULL,
		wall_time            TEXT NOT NULL,
		prev_hash            TEXT NOT NULL,
		record_hash          TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_records_wall_time ON audit_records(wall_time);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

func (s *SQLiteSink) Append(ctx context.Context, r *contracts.AuditRecord) error {
	verdictJSON, err := json.Marshal(r.Verdict)
	if err != nil {
		return fmt.Errorf("audit: marshal verdict: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			record_id, decision_fingerprint, verdict, attestation_id,
			latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id) DO NOTHING`,
		r.RecordID,
		hex.EncodeToString(r.DecisionFingerprint[:]),
		string(verdictJSON),
		r.AttestationID,
		r.LatencyNS,
		r.OutcomeTag,
		r.WallTime.UTC().Format(time.RFC3339Nano),
		r.PrevHash,
		r.RecordHash,
	)
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Head(ctx context.Context) (string, error) {
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

func (s *SQLiteSink) Get(ctx context.Context, recordID string) (*contracts.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT record_id, decision_fingerprint, verdict, attestation_id,
		       latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		FROM audit_records WHERE record_id = ?`, recordID)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	return r, err
}

func (s *SQLiteSink) Range(ctx context.Context, rg Range) ([]*contracts.AuditRecord, error) {
	query := `
		SELECT record_id, decision_fingerprint, verdict, attestation_id,
		       latency_ns, outcome_tag, wall_time, prev_hash, record_hash
		FROM audit_records WHERE 1=1`
	var args []any

	if !rg.From.IsZero() {
		query += " AND wall_time >= ?"
		args = append(args, rg.From.UTC().Format(time.RFC3339Nano))
	}
	if !rg.To.IsZero() {
		query += " AND wall_time <= ?"
		args = append(args, rg.To.UTC().Format(time.RFC3339Nano))
	}
	if rg.StartSeq > 0 {
		query += " AND sequence >= ?"
		args = append(args, rg.StartSeq)
	}
	if rg.EndSeq > 0 {
		query += " AND sequence <= ?"
		args = append(args, rg.EndSeq)
	}
	query += " ORDER BY sequence ASC"
	if rg.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, rg.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: range query: %w", err)
	}
	defer rows.Close()

	var out []*contracts.AuditRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: range scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*contracts.AuditRecord, error) {
	var (
		recordID, fingerprintHex, verdictJSON string
		attestationID, outcomeTag             string
		latencyNS                             int64
		wallTimeStr, prevHash, recordHash     string
	)
	if err := row.Scan(&recordID, &fingerprintHex, &verdictJSON, &attestationID,
		&latencyNS, &outcomeTag, &wallTimeStr, &prevHash, &recordHash); err != nil {
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

	wallTime, err := time.Parse(time.RFC3339Nano, wallTimeStr)
	if err != nil {
		return nil, fmt.Errorf("audit: corrupt wall_time for record %s: %w", recordID, err)
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
func (s *SQLiteSink) Close() error { return s.db.Close() }
