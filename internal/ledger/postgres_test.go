package ledger

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLedger(t *testing.T) (*PostgresLedger, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresCheck_Available(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectQuery(`SELECT enrich_credits FROM credit_ledgers`).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"enrich_credits"}).AddRow(int64(5)))

	ok, remaining, err := l.Check(context.Background(), "org-1", CreditTypeEnrich)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheck_Exhausted(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectQuery(`SELECT enrich_credits FROM credit_ledgers`).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"enrich_credits"}).AddRow(int64(0)))

	ok, remaining, err := l.Check(context.Background(), "org-1", CreditTypeEnrich)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(0), remaining)
}

func TestPostgresCheck_UnknownOrg(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectQuery(`SELECT search_credits FROM credit_ledgers`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, _, err := l.Check(context.Background(), "ghost", CreditTypeSearch)

	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrUnknownOrg))
}

func TestPostgresSettle_Decrements(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectExec(`UPDATE credit_ledgers SET enrich_credits = enrich_credits - \$1`).
		WithArgs(int64(1), "org-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	settled, err := l.Settle(context.Background(), "org-1", CreditTypeEnrich, 1)

	require.NoError(t, err)
	assert.True(t, settled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSettle_LostRace(t *testing.T) {
	t.Parallel()

	// The conditional WHERE matched no row: balance already spent.
	l, mock := newMockLedger(t)
	mock.ExpectExec(`UPDATE credit_ledgers`).
		WithArgs(int64(1), "org-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	settled, err := l.Settle(context.Background(), "org-1", CreditTypeEnrich, 1)

	require.NoError(t, err)
	assert.False(t, settled)
}

func TestPostgresSettle_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	l, _ := newMockLedger(t)
	_, err := l.Settle(context.Background(), "org-1", CreditTypeEnrich, 0)
	require.Error(t, err)
	_, err = l.Settle(context.Background(), "org-1", CreditTypeEnrich, -3)
	require.Error(t, err)
}

func TestPostgresSettle_UnknownCreditType(t *testing.T) {
	t.Parallel()

	l, _ := newMockLedger(t)
	_, err := l.Settle(context.Background(), "org-1", CreditType("premium"), 1)
	require.Error(t, err)
}

func TestPostgresGrant_Upserts(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectExec(`INSERT INTO credit_ledgers`).
		WithArgs("org-2", int64(10)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, l.Grant(context.Background(), "org-2", CreditTypeEnrich, 10))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBalance(t *testing.T) {
	t.Parallel()

	l, mock := newMockLedger(t)
	mock.ExpectQuery(`SELECT search_credits, enrich_credits FROM credit_ledgers`).
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"search_credits", "enrich_credits"}).AddRow(int64(7), int64(2)))

	b, err := l.Balance(context.Background(), "org-1")

	require.NoError(t, err)
	assert.Equal(t, int64(7), b.SearchCredits)
	assert.Equal(t, int64(2), b.EnrichCredits)
}
