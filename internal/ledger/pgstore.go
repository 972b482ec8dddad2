package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgStore is the Postgres-backed ledger.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const transactionColumns = `
	id::text, user_id::text, type, amount::text, currency, category_id::text,
	COALESCE(description, ''), date, COALESCE(issued_to, ''),
	COALESCE(amount_in_words, ''), created_at, updated_at`

func (s *PgStore) LinkByToken(ctx context.Context, token string) (*SharedPayoutLink, error) {
	query := `
		SELECT id::text, token, user_id::text, COALESCE(name, ''), is_active, expires_at, link_type
		FROM shared_payout_links
		WHERE token = $1
		LIMIT 1`
	var (
		l        SharedPayoutLink
		linkType string
	)
	err := s.pool.QueryRow(ctx, query, token).Scan(
		&l.ID, &l.Token, &l.OwnerID, &l.Name, &l.IsActive, &l.ExpiresAt, &linkType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query link by token: %w", err)
	}
	l.LinkType = LinkType(linkType)
	if l.LinkType == "" {
		l.LinkType = LinkStandard
	}
	return &l, nil
}

func (s *PgStore) ExpenseCategories(ctx context.Context, ownerID string) ([]Category, error) {
	return s.queryCategories(ctx, `
		SELECT id::text, user_id::text, name, type, COALESCE(sort_order, 0)
		FROM categories
		WHERE user_id = $1 AND type = 'expense'
		ORDER BY sort_order, name`, ownerID)
}

func (s *PgStore) Categories(ctx context.Context, ownerID string) ([]Category, error) {
	return s.queryCategories(ctx, `
		SELECT id::text, user_id::text, name, type, COALESCE(sort_order, 0)
		FROM categories
		WHERE user_id = $1
		ORDER BY type, sort_order, name`, ownerID)
}

func (s *PgStore) queryCategories(ctx context.Context, query string, args ...any) ([]Category, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var (
			c   Category
			typ string
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = TransactionType(typ)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PgStore) CategoryOwner(ctx context.Context, categoryID string) (string, error) {
	var owner string
	err := s.pool.QueryRow(ctx, `SELECT user_id::text FROM categories WHERE id = $1`, categoryID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query category owner: %w", err)
	}
	return owner, nil
}

func (s *PgStore) InsertTransaction(ctx context.Context, t Transaction) (string, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt

	query := `
		INSERT INTO transactions (
			id, user_id, type, amount, currency, category_id,
			description, date, issued_to, amount_in_words, created_at, updated_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id::text`
	var id string
	err := s.pool.QueryRow(ctx, query,
		t.ID, t.OwnerID, string(t.Type), t.Amount.String(), t.Currency, t.CategoryID,
		t.Description, t.Date, t.IssuedTo, t.AmountInWords, t.CreatedAt, t.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (s *PgStore) Transactions(ctx context.Context, ownerID string) ([]Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY date, created_at`, ownerID)
}

func (s *PgStore) FindPending(ctx context.Context, ownerID, tag string, limit int) ([]Transaction, error) {
	// strpos keeps the submitter name from being read as a LIKE pattern
	return s.queryTransactions(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE user_id = $1
		  AND type = 'expense'
		  AND strpos(description, $2) > 0
		ORDER BY created_at DESC
		LIMIT $3`, ownerID, tag, limit)
}

func (s *PgStore) TransactionByID(ctx context.Context, ownerID, id string) (*Transaction, error) {
	txs, err := s.queryTransactions(ctx, `
		SELECT`+transactionColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, ErrNotFound
	}
	return &txs[0], nil
}

// ClearPendingTag strips tag in a single conditional update so a record that
// lost its tag (or changed owner) in between is never touched.
func (s *PgStore) ClearPendingTag(ctx context.Context, ownerID, id, tag string, now time.Time) (bool, error) {
	res, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET description = btrim(replace(description, $3, ''), $5),
		    updated_at = $4
		WHERE id = $1
		  AND user_id = $2
		  AND strpos(description, $3) > 0`, id, ownerID, tag, now, PendingTrimSet)
	if err != nil {
		return false, fmt.Errorf("clear pending tag: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

func (s *PgStore) queryTransactions(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer rows.Close()

	txs := []Transaction{}
	for rows.Next() {
		var (
			t         Transaction
			typ       string
			amountStr string
		)
		if err := rows.Scan(
			&t.ID, &t.OwnerID, &typ, &amountStr, &t.Currency, &t.CategoryID,
			&t.Description, &t.Date, &t.IssuedTo, &t.AmountInWords, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
		}
		t.Type = TransactionType(typ)
		t.Amount = amount
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
