package finance_test

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/trustwrapper/core/pkg/finance"
)

func TestPostgresExposureTrackerCheckWithinCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tracker := finance.NewPostgresExposureTracker(db)

	rows := sqlmock.NewRows([]string{"currency", "cap_minor", "used_minor"}).
		AddRow("USD", int64(1_000_000), int64(200_000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1")).
		WithArgs("agent-1").
		WillReturnRows(rows)

	ok, err := tracker.Check("agent-1", finance.NewMoney(100_000, "USD"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestPostgresExposureTrackerCheckOverCap(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tracker := finance.NewPostgresExposureTracker(db)

	rows := sqlmock.NewRows([]string{"currency", "cap_minor", "used_minor"}).
		AddRow("USD", int64(1_000_000), int64(950_000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1")).
		WithArgs("agent-1").
		WillReturnRows(rows)

	ok, err := tracker.Check("agent-1", finance.NewMoney(100_000, "USD"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPostgresExposureTrackerConsumeLocksAndUpdates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tracker := finance.NewPostgresExposureTracker(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"currency", "cap_minor", "used_minor"}).
		AddRow("USD", int64(1_000_000), int64(200_000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1 FOR UPDATE")).
		WithArgs("agent-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE position_exposure SET used_minor = used_minor + $1 WHERE agent_handle = $2")).
		WithArgs(int64(100_000), "agent-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tracker.Consume("agent-1", finance.NewMoney(100_000, "USD"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresExposureTrackerConsumeOverCapRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tracker := finance.NewPostgresExposureTracker(db)

	mock.ExpectBegin()
	rows := sqlmock.NewRows([]string{"currency", "cap_minor", "used_minor"}).
		AddRow("USD", int64(1_000_000), int64(950_000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT currency, cap_minor, used_minor FROM position_exposure WHERE agent_handle = $1 FOR UPDATE")).
		WithArgs("agent-1").
		WillReturnRows(rows)
	mock.ExpectRollback()

	err = tracker.Consume("agent-1", finance.NewMoney(100_000, "USD"))
	require.Error(t, err)
}
