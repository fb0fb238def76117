package returns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore is the production Store backed by PostgreSQL. The
// pending-to-terminal transition is a single conditional UPDATE, so two
// concurrent approvals resolve to one winner at the database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and verifies it.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection pool.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the requests table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS return_replace_requests (
    id             TEXT PRIMARY KEY,
    order_id       TEXT NOT NULL,
    order_item_id  TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    brand_id       TEXT NOT NULL,
    request_type   TEXT NOT NULL CHECK (request_type IN ('return', 'replace')),
    new_variant_id TEXT,
    reason         TEXT,
    comment        TEXT,
    images         TEXT[] NOT NULL DEFAULT '{}',
    status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    shipment_id    TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_rrr_status ON return_replace_requests (status);
CREATE INDEX IF NOT EXISTS idx_rrr_user ON return_replace_requests (user_id);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating returns schema: %w", err)
	}
	return nil
}

// Create persists a new request.
func (s *PostgresStore) Create(ctx context.Context, r *Request) error {
	query := `
        INSERT INTO return_replace_requests
            (id, order_id, order_item_id, user_id, brand_id, request_type, new_variant_id, reason, comment, images, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING created_at`
	err := s.db.QueryRowContext(ctx, query,
		r.ID, r.OrderID, r.OrderItemID, r.UserID, r.BrandID, string(r.Type),
		nullString(r.NewVariantID), nullString(r.Reason), nullString(r.Comment),
		pq.Array(r.Images), string(r.Status),
	).Scan(&r.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// Get returns the request with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Request, error) {
	query := selectRequest + ` WHERE id = $1`
	return scanRequest(s.db.QueryRowContext(ctx, query, id))
}

// List returns matching requests plus the total match count.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Request, int, error) {
	const where = `
        WHERE ($1 = '' OR status = $1)
          AND ($2 = '' OR request_type = $2)
          AND ($3 = '' OR brand_id = $3)
          AND ($4 = '' OR user_id = $4)
          AND ($5 = '' OR order_id = $5)`

	var count int
	countQuery := `SELECT count(*) FROM return_replace_requests` + where
	err := s.db.QueryRowContext(ctx, countQuery,
		string(f.Status), string(f.Type), f.BrandID, f.UserID, f.OrderID).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := selectRequest + where + ` ORDER BY created_at DESC LIMIT $6 OFFSET $7`
	rows, err := s.db.QueryContext(ctx, query,
		string(f.Status), string(f.Type), f.BrandID, f.UserID, f.OrderID, limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, r)
	}
	return result, count, rows.Err()
}

// TransitionStatus atomically moves the request between statuses. The
// WHERE clause carries the expected prior status, so a lost race shows up
// as zero affected rows, never as a double transition.
func (s *PostgresStore) TransitionStatus(ctx context.Context, id string, from, to Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE return_replace_requests SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("transitioning request status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish a missing row from a lost race.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// AttachShipment records the carrier waybill on an approved request.
func (s *PostgresStore) AttachShipment(ctx context.Context, id, waybill string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE return_replace_requests SET shipment_id = $2 WHERE id = $1 AND status = 'approved'`,
		id, waybill)
	if err != nil {
		return fmt.Errorf("attaching shipment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// ListUnfulfilled returns approved requests without a waybill.
func (s *PostgresStore) ListUnfulfilled(ctx context.Context) ([]*Request, error) {
	query := selectRequest + `
        WHERE status = 'approved' AND (shipment_id IS NULL OR shipment_id = '')
        ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

const selectRequest = `
        SELECT id, order_id, order_item_id, user_id, brand_id, request_type,
               new_variant_id, reason, comment, images, status, shipment_id, created_at
        FROM return_replace_requests`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var requestType, status string
	var newVariantID, reason, comment, shipmentID sql.NullString
	err := row.Scan(&r.ID, &r.OrderID, &r.OrderItemID, &r.UserID, &r.BrandID,
		&requestType, &newVariantID, &reason, &comment, pq.Array(&r.Images),
		&status, &shipmentID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Type = RequestType(requestType)
	r.Status = Status(status)
	r.NewVariantID = newVariantID.String
	r.Reason = reason.String
	r.Comment = comment.String
	r.ShipmentID = shipmentID.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
