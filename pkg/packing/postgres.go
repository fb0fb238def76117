package packing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Postgres error codes surfaced by constraints.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore is the production Store backed by PostgreSQL.
// Rule uniqueness and template references are enforced by constraints,
// not application-level locking.
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

// DB exposes the connection pool so sibling stores can share it.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the packing tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS packing_templates (
    id          TEXT PRIMARY KEY,
    name        TEXT,
    base_length DOUBLE PRECISION NOT NULL CHECK (base_length >= 0),
    base_width  DOUBLE PRECISION NOT NULL CHECK (base_width >= 0),
    base_height DOUBLE PRECISION NOT NULL CHECK (base_height >= 0),
    extra_cm    DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (extra_cm >= 0),
    is_default  BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS packing_rules (
    brand_id        TEXT NOT NULL,
    product_type_id TEXT NOT NULL,
    template_id     TEXT REFERENCES packing_templates(id) ON DELETE RESTRICT,
    is_fragile      BOOLEAN NOT NULL DEFAULT FALSE,
    ships_in_own_box BOOLEAN NOT NULL DEFAULT FALSE,
    can_override    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (brand_id, product_type_id)
);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating packing schema: %w", err)
	}
	return nil
}

// CreateTemplate inserts a template.
func (s *PostgresStore) CreateTemplate(ctx context.Context, t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	query := `
        INSERT INTO packing_templates (id, name, base_length, base_width, base_height, extra_cm, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		t.ID, nullString(t.Name), t.BaseLength, t.BaseWidth, t.BaseHeight, t.ExtraCm, t.IsDefault,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting template: %w", err)
	}
	return nil
}

// GetTemplate returns the template with the given ID.
func (s *PostgresStore) GetTemplate(ctx context.Context, id string) (*Template, error) {
	query := `
        SELECT id, name, base_length, base_width, base_height, extra_cm, is_default, created_at, updated_at
        FROM packing_templates WHERE id = $1`
	return scanTemplate(s.db.QueryRowContext(ctx, query, id))
}

// UpdateTemplate replaces a template's attributes.
func (s *PostgresStore) UpdateTemplate(ctx context.Context, t *Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	query := `
        UPDATE packing_templates
        SET name = $2, base_length = $3, base_width = $4, base_height = $5,
            extra_cm = $6, is_default = $7, updated_at = now()
        WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query,
		t.ID, nullString(t.Name), t.BaseLength, t.BaseWidth, t.BaseHeight, t.ExtraCm, t.IsDefault)
	if err != nil {
		return fmt.Errorf("updating template: %w", err)
	}
	return requireAffected(res, ErrTemplateNotFound)
}

// DeleteTemplate removes a template; the FK restriction surfaces as ErrTemplateInUse.
func (s *PostgresStore) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM packing_templates WHERE id = $1`, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation {
			return ErrTemplateInUse
		}
		return fmt.Errorf("deleting template: %w", err)
	}
	return requireAffected(res, ErrTemplateNotFound)
}

// ListTemplates returns all templates.
func (s *PostgresStore) ListTemplates(ctx context.Context) ([]*Template, error) {
	query := `
        SELECT id, name, base_length, base_width, base_height, extra_cm, is_default, created_at, updated_at
        FROM packing_templates ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// DefaultTemplate returns the smallest template marked as default.
func (s *PostgresStore) DefaultTemplate(ctx context.Context) (*Template, error) {
	query := `
        SELECT id, name, base_length, base_width, base_height, extra_cm, is_default, created_at, updated_at
        FROM packing_templates
        WHERE is_default
        ORDER BY base_length * base_width * base_height ASC
        LIMIT 1`
	t, err := scanTemplate(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, ErrTemplateNotFound) {
		return nil, ErrNoDefaultTemplate
	}
	return t, err
}

// CreateRule inserts a rule; the primary key surfaces duplicates as ErrDuplicateRule.
func (s *PostgresStore) CreateRule(ctx context.Context, r *Rule) error {
	query := `
        INSERT INTO packing_rules (brand_id, product_type_id, template_id, is_fragile, ships_in_own_box, can_override)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		r.BrandID, r.ProductTypeID, nullString(r.TemplateID), r.IsFragile, r.ShipsInOwnBox, r.CanOverride,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch string(pqErr.Code) {
			case pgUniqueViolation:
				return ErrDuplicateRule
			case pgForeignKeyViolation:
				return ErrTemplateNotFound
			}
		}
		return fmt.Errorf("inserting rule: %w", err)
	}
	return nil
}

// GetRule returns the rule for the pair.
func (s *PostgresStore) GetRule(ctx context.Context, brandID, productTypeID string) (*Rule, error) {
	query := `
        SELECT brand_id, product_type_id, template_id, is_fragile, ships_in_own_box, can_override, created_at, updated_at
        FROM packing_rules WHERE brand_id = $1 AND product_type_id = $2`
	return scanRule(s.db.QueryRowContext(ctx, query, brandID, productTypeID))
}

// UpdateRule replaces a rule's attributes.
func (s *PostgresStore) UpdateRule(ctx context.Context, r *Rule) error {
	query := `
        UPDATE packing_rules
        SET template_id = $3, is_fragile = $4, ships_in_own_box = $5, can_override = $6, updated_at = now()
        WHERE brand_id = $1 AND product_type_id = $2`
	res, err := s.db.ExecContext(ctx, query,
		r.BrandID, r.ProductTypeID, nullString(r.TemplateID), r.IsFragile, r.ShipsInOwnBox, r.CanOverride)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("updating rule: %w", err)
	}
	return requireAffected(res, ErrRuleNotFound)
}

// DeleteRule removes the rule for the pair.
func (s *PostgresStore) DeleteRule(ctx context.Context, brandID, productTypeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM packing_rules WHERE brand_id = $1 AND product_type_id = $2`, brandID, productTypeID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	return requireAffected(res, ErrRuleNotFound)
}

// ListRules returns rules, optionally filtered by brand.
func (s *PostgresStore) ListRules(ctx context.Context, brandID string) ([]*Rule, error) {
	query := `
        SELECT brand_id, product_type_id, template_id, is_fragile, ships_in_own_box, can_override, created_at, updated_at
        FROM packing_rules
        WHERE ($1 = '' OR brand_id = $1)
        ORDER BY brand_id, product_type_id`
	rows, err := s.db.QueryContext(ctx, query, brandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var t Template
	var name sql.NullString
	err := row.Scan(&t.ID, &name, &t.BaseLength, &t.BaseWidth, &t.BaseHeight,
		&t.ExtraCm, &t.IsDefault, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Name = name.String
	return &t, nil
}

func scanRule(row rowScanner) (*Rule, error) {
	var r Rule
	var templateID sql.NullString
	err := row.Scan(&r.BrandID, &r.ProductTypeID, &templateID, &r.IsFragile,
		&r.ShipsInOwnBox, &r.CanOverride, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	r.TemplateID = templateID.String
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
