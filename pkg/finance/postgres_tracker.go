package finance

import (
	"database/sql"
	"errors"
	"fmt"
)

// ExposureTracker persists and enforces per-agent cumulative position
// exposure across a trading session.
type ExposureTracker interface {
	Check(agentHandle string, notional Money) (bool, error)
	Consume(agentHandle string, notional Money) error
}

// PostgresExposureTracker implements ExposureTracker backed by
// PostgreSQL, using SELECT FOR UPDATE to serialize concurrent
// exposure checks for the same agent so two in-flight verifications
// can never both approve an over-limit pair of trades.
type PostgresExposureTracker struct {
	db *sql.DB
}

// NewPostgresExposureTracker creates a PostgreSQL-backed exposure tracker.
func NewPostgresExposureTracker(db *sql.DB) *PostgresExposureTracker {
	return &PostgresExposureTracker{db: db}
}

// Check reports whether notional fits within the agent's remaining
// exposure cap, without consuming it.
func (t *PostgresExposureTracker) Check(agentHandle string, notional Money) (bool, error) {
	var currency string
	var capMinor, usedMinor int64

	err := t.db.QueryRow(
		`SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1`,
		agentHandle,
	).Scan(&currency, &capMinor, &usedMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, errors.New("finance: no exposure cap configured for agent")
		}
		return false, fmt.Errorf("finance: exposure check: %w", err)
	}
	if currency != notional.Currency {
		return false, fmt.Errorf("finance: currency mismatch: cap in %s, notional in %s", currency, notional.Currency)
	}
	return usedMinor+notional.AmountMinor <= capMinor, nil
}

// Consume atomically reserves notional against the agent's exposure
// cap, locking the row for the duration of the transaction.
func (t *PostgresExposureTracker) Consume(agentHandle string, notional Money) error {
	tx, err := t.db.Begin()
	if err != nil {
		return fmt.Errorf("finance: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currency string
	var capMinor, usedMinor int64
	err = tx.QueryRow(
		`SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1 FOR UPDATE`,
		agentHandle,
	).Scan(&currency, &capMinor, &usedMinor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("finance: no exposure cap configured for agent")
		}
		return fmt.Errorf("finance: exposure lock: %w", err)
	}
	if currency != notional.Currency {
		return fmt.Errorf("finance: currency mismatch: cap in %s, notional in %s", currency, notional.Currency)
	}
	if usedMinor+notional.AmountMinor > capMinor {
		return errors.New("finance: exposure cap exceeded")
	}

	if _, err := tx.Exec(
		`UPDATE position_exposure SET used_minor = used_minor + $1 WHERE agent_handle = $2`,
		notional.AmountMinor, agentHandle,
	); err != nil {
		return fmt.Errorf("finance: exposure update: %w", err)
	}
	return tx.Commit()
}
