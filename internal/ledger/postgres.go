package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the ledger uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger implements Ledger on pgxpool.
type PostgresLedger struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS credit_ledgers (
	org_id         TEXT PRIMARY KEY,
	search_credits BIGINT NOT NULL DEFAULT 0 CHECK (search_credits >= 0),
	enrich_credits BIGINT NOT NULL DEFAULT 0 CHECK (enrich_credits >= 0),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgres creates a PostgresLedger with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresLedger, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: parse postgres config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "ledger: ping")
	}
	return &PostgresLedger{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool (used by tests with pgxmock).
func NewPostgresFromPool(pool Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

// Migrate creates the ledger schema.
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "ledger: migrate")
	}
	return nil
}

func (l *PostgresLedger) Check(ctx context.Context, orgID string, t CreditType) (bool, int64, error) {
	col, err := column(t)
	if err != nil {
		return false, 0, err
	}

	var remaining int64
	query := fmt.Sprintf(`SELECT %s FROM credit_ledgers WHERE org_id = $1`, col)
	if err := l.pool.QueryRow(ctx, query, orgID).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, 0, ErrUnknownOrg
		}
		return false, 0, eris.Wrap(err, "ledger: check")
	}
	return remaining >= 1, remaining, nil
}

// Settle runs the conditional decrement as one statement. The WHERE guard
// makes over-spending impossible under concurrency: of N+K racing requests
// against N credits, exactly N updates match a row.
func (l *PostgresLedger) Settle(ctx context.Context, orgID string, t CreditType, amount int64) (bool, error) {
	if amount <= 0 {
		return false, eris.Errorf("ledger: settle amount must be positive, got %d", amount)
	}
	col, err := column(t)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(
		`UPDATE credit_ledgers SET %[1]s = %[1]s - $1, updated_at = now() WHERE org_id = $2 AND %[1]s >= $1`,
		col,
	)
	tag, err := l.pool.Exec(ctx, query, amount, orgID)
	if err != nil {
		return false, eris.Wrap(err, "ledger: settle")
	}
	return tag.RowsAffected() == 1, nil
}

func (l *PostgresLedger) Grant(ctx context.Context, orgID string, t CreditType, amount int64) error {
	if amount <= 0 {
		return eris.Errorf("ledger: grant amount must be positive, got %d", amount)
	}
	col, err := column(t)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO credit_ledgers (org_id, %[1]s) VALUES ($1, $2)
		ON CONFLICT (org_id) DO UPDATE SET %[1]s = credit_ledgers.%[1]s + $2, updated_at = now()`,
		col,
	)
	if _, err := l.pool.Exec(ctx, query, orgID, amount); err != nil {
		return eris.Wrap(err, "ledger: grant")
	}
	return nil
}

func (l *PostgresLedger) Balance(ctx context.Context, orgID string) (*Balance, error) {
	b := &Balance{OrgID: orgID}
	err := l.pool.QueryRow(ctx,
		`SELECT search_credits, enrich_credits FROM credit_ledgers WHERE org_id = $1`,
		orgID,
	).Scan(&b.SearchCredits, &b.EnrichCredits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownOrg
		}
		return nil, eris.Wrap(err, "ledger: balance")
	}
	return b, nil
}

func (l *PostgresLedger) Close() {
	if l.closeFn != nil {
		l.closeFn()
	}
}
