package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteLedger implements Ledger using modernc.org/sqlite, for local and
// single-operator use where running Postgres is overkill.
type SQLiteLedger struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS credit_ledgers (
	org_id         TEXT PRIMARY KEY,
	search_credits INTEGER NOT NULL DEFAULT 0 CHECK (search_credits >= 0),
	enrich_credits INTEGER NOT NULL DEFAULT 0 CHECK (enrich_credits >= 0),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// NewSQLite opens a SQLite ledger at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: sqlite exec %s", pragma)
		}
	}
	return &SQLiteLedger{db: db}, nil
}

// Migrate creates the ledger schema.
func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "ledger: sqlite migrate")
	}
	return nil
}

func (l *SQLiteLedger) Check(ctx context.Context, orgID string, t CreditType) (bool, int64, error) {
	col, err := column(t)
	if err != nil {
		return false, 0, err
	}

	var remaining int64
	query := fmt.Sprintf(`SELECT %s FROM credit_ledgers WHERE org_id = ?`, col)
	if err := l.db.QueryRowContext(ctx, query, orgID).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, 0, ErrUnknownOrg
		}
		return false, 0, eris.Wrap(err, "ledger: sqlite check")
	}
	return remaining >= 1, remaining, nil
}

func (l *SQLiteLedger) Settle(ctx context.Context, orgID string, t CreditType, amount int64) (bool, error) {
	if amount <= 0 {
		return false, eris.Errorf("ledger: settle amount must be positive, got %d", amount)
	}
	col, err := column(t)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(
		`UPDATE credit_ledgers SET %[1]s = %[1]s - ?, updated_at = datetime('now') WHERE org_id = ? AND %[1]s >= ?`,
		col,
	)
	res, err := l.db.ExecContext(ctx, query, amount, orgID, amount)
	if err != nil {
		return false, eris.Wrap(err, "ledger: sqlite settle")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "ledger: sqlite settle rows affected")
	}
	return n == 1, nil
}

func (l *SQLiteLedger) Grant(ctx context.Context, orgID string, t CreditType, amount int64) error {
	if amount <= 0 {
		return eris.Errorf("ledger: grant amount must be positive, got %d", amount)
	}
	col, err := column(t)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO credit_ledgers (org_id, %[1]s) VALUES (?, ?)
		ON CONFLICT (org_id) DO UPDATE SET %[1]s = %[1]s + excluded.%[1]s, updated_at = datetime('now')`,
		col,
	)
	if _, err := l.db.ExecContext(ctx, query, orgID, amount); err != nil {
		return eris.Wrap(err, "ledger: sqlite grant")
	}
	return nil
}

func (l *SQLiteLedger) Balance(ctx context.Context, orgID string) (*Balance, error) {
	b := &Balance{OrgID: orgID}
	err := l.db.QueryRowContext(ctx,
		`SELECT search_credits, enrich_credits FROM credit_ledgers WHERE org_id = ?`,
		orgID,
	).Scan(&b.SearchCredits, &b.EnrichCredits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownOrg
		}
		return nil, eris.Wrap(err, "ledger: sqlite balance")
	}
	return b, nil
}

func (l *SQLiteLedger) Close() {
	_ = l.db.Close()
}
