package receipt

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const receiptsTable = "receipts"

var receiptColumns = []string{
	"id", "user_id", "merchant", "date", "total", "subtotal", "tax", "items", "category", "image_url", "created_at",
}

const createReceiptsTable = `CREATE TABLE IF NOT EXISTS receipts (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	merchant   TEXT NOT NULL,
	date       TEXT NOT NULL DEFAULT '',
	total      DOUBLE PRECISION NOT NULL,
	subtotal   DOUBLE PRECISION NOT NULL DEFAULT 0,
	tax        DOUBLE PRECISION NOT NULL DEFAULT 0,
	items      TEXT NOT NULL,
	category   TEXT NOT NULL,
	image_url  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS receipts_user_created_idx ON receipts (user_id, created_at DESC);`

// PostgresDB implements the DB interface on PostgreSQL
type PostgresDB struct {
	pool *pgxpool.Pool
}

// NewPostgresDB connects to dsn and makes sure the receipts table exists
func NewPostgresDB(ctx context.Context, dsn string) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, createReceiptsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating receipts table: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

func insertReceiptQuery(r *StoredReceipt) (string, []any, error) {
	return squirrel.Insert(receiptsTable).
		Columns(receiptColumns...).
		Values(r.ID, r.UserID, r.Merchant, r.Date, r.Total, r.Subtotal, r.Tax, r.Items, r.Category, r.ImageURL, r.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func listReceiptsQuery(userID string) (string, []any, error) {
	return squirrel.Select(receiptColumns...).
		From(receiptsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

// CreateReceipt inserts a receipt row
func (p *PostgresDB) CreateReceipt(ctx context.Context, receipt *StoredReceipt) error {
	sql, args, err := insertReceiptQuery(receipt)
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}
	return nil
}

// ListReceipts returns a user's receipts, newest first
func (p *PostgresDB) ListReceipts(ctx context.Context, userID string) ([]*StoredReceipt, error) {
	sql, args, err := listReceiptsQuery(userID)
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*StoredReceipt, 0)
	for rows.Next() {
		var r StoredReceipt
		if err := rows.Scan(&r.ID, &r.UserID, &r.Merchant, &r.Date, &r.Total, &r.Subtotal, &r.Tax, &r.Items, &r.Category, &r.ImageURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		receipts = append(receipts, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating receipts: %w", err)
	}
	return receipts, nil
}

// Close closes the connection pool
func (p *PostgresDB) Close() error {
	p.pool.Close()
	return nil
}
