package packing

import (
	"context"
)

// Catalog is the storage interface for packing templates.
type Catalog interface {
	// CreateTemplate adds a new template. The template must pass Validate.
	CreateTemplate(ctx context.Context, t *Template) error

	// GetTemplate returns the template with the given ID, or ErrTemplateNotFound.
	GetTemplate(ctx context.Context, id string) (*Template, error)

	// UpdateTemplate replaces an existing template's attributes.
	UpdateTemplate(ctx context.Context, t *Template) error

	// DeleteTemplate removes a template. Fails with ErrTemplateInUse while
	// any rule still references it.
	DeleteTemplate(ctx context.Context, id string) error

	// ListTemplates returns all templates.
	ListTemplates(ctx context.Context) ([]*Template, error)

	// DefaultTemplate returns the smallest template marked as default,
	// or ErrNoDefaultTemplate.
	DefaultTemplate(ctx context.Context) (*Template, error)
}

// RuleStore is the storage interface for packing rules.
type RuleStore interface {
	// CreateRule adds a rule. Creating a second rule for the same
	// (brand, product type) pair fails with ErrDuplicateRule and leaves
	// the original untouched.
	CreateRule(ctx context.Context, r *Rule) error

	// GetRule returns the rule for the pair, or ErrRuleNotFound.
	GetRule(ctx context.Context, brandID, productTypeID string) (*Rule, error)

	// UpdateRule replaces an existing rule's attributes.
	UpdateRule(ctx context.Context, r *Rule) error

	// DeleteRule removes the rule for the pair.
	DeleteRule(ctx context.Context, brandID, productTypeID string) error

	// ListRules returns rules, optionally filtered by brand.
	ListRules(ctx context.Context, brandID string) ([]*Rule, error)
}

// Store combines the catalog and rule store, which production backends
// implement together so referential checks can be enforced in one place.
type Store interface {
	Catalog
	RuleStore
}
