package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// SQLMaintenance runs the housekeeping statements over database/sql with the
// lib/pq driver, separate from the request-serving pool.
type SQLMaintenance struct {
	db *sql.DB
}

// OpenSQLMaintenance connects with a lib/pq key/value connection string.
func OpenSQLMaintenance(ctx context.Context, connString string) (*SQLMaintenance, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open maintenance db: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping maintenance db: %w", err)
	}
	return &SQLMaintenance{db: db}, nil
}

func NewSQLMaintenance(db *sql.DB) *SQLMaintenance {
	return &SQLMaintenance{db: db}
}

func (m *SQLMaintenance) Close() error { return m.db.Close() }

// CountExpiredLinks counts active links whose expiry has passed. It never
// writes: expiry is enforced per request and is_active belongs to the owner.
func (m *SQLMaintenance) CountExpiredLinks(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := m.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM shared_payout_links
		WHERE is_active AND expires_at IS NOT NULL AND expires_at <= $1`, now).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired links: %w", err)
	}
	return n, nil
}

// LedgerOwners lists owners with at least one transaction, restricted to
// only when it is non-empty.
func (m *SQLMaintenance) LedgerOwners(ctx context.Context, only []string) ([]string, error) {
	if only == nil {
		only = []string{}
	}
	rows, err := m.db.QueryContext(ctx, `
		SELECT DISTINCT user_id::text
		FROM transactions
		WHERE cardinality($1::text[]) = 0 OR user_id::text = ANY($1::text[])
		ORDER BY 1`, pq.Array(only))
	if err != nil {
		return nil, fmt.Errorf("list ledger owners: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan ledger owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (m *SQLMaintenance) Ping(ctx context.Context) error { return m.db.PingContext(ctx) }
