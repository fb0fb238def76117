package packing

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and mock mode.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]*Template
	rules     map[string]*Rule // keyed by brandID + "\x00" + productTypeID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]*Template),
		rules:     make(map[string]*Rule),
	}
}

func ruleKey(brandID, productTypeID string) string {
	return brandID + "\x00" + productTypeID
}

// CreateTemplate adds a new template.
func (s *MemoryStore) CreateTemplate(ctx context.Context, t *Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

// GetTemplate returns the template with the given ID.
func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

// UpdateTemplate replaces an existing template's attributes.
func (s *MemoryStore) UpdateTemplate(ctx context.Context, t *Template) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.templates[t.ID]
	if !ok {
		return ErrTemplateNotFound
	}
	cp := *t
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.templates[t.ID] = &cp
	return nil
}

// DeleteTemplate removes a template unless a rule still references it.
func (s *MemoryStore) DeleteTemplate(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	for _, r := range s.rules {
		if r.TemplateID == id {
			return ErrTemplateInUse
		}
	}
	delete(s.templates, id)
	return nil
}

// ListTemplates returns all templates.
func (s *MemoryStore) ListTemplates(ctx context.Context) ([]*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Template, 0, len(s.templates))
	for _, t := range s.templates {
		cp := *t
		result = append(result, &cp)
	}
	return result, nil
}

// DefaultTemplate returns the smallest template marked as default.
func (s *MemoryStore) DefaultTemplate(ctx context.Context) (*Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var smallest *Template
	for _, t := range s.templates {
		if !t.IsDefault {
			continue
		}
		if smallest == nil || t.Volume() < smallest.Volume() {
			smallest = t
		}
	}
	if smallest == nil {
		return nil, ErrNoDefaultTemplate
	}
	cp := *smallest
	return &cp, nil
}

// CreateRule adds a rule; duplicates for the same pair fail.
func (s *MemoryStore) CreateRule(ctx context.Context, r *Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ruleKey(r.BrandID, r.ProductTypeID)
	if _, ok := s.rules[key]; ok {
		return ErrDuplicateRule
	}
	if r.TemplateID != "" {
		if _, ok := s.templates[r.TemplateID]; !ok {
			return ErrTemplateNotFound
		}
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	cp := *r
	s.rules[key] = &cp
	return nil
}

// GetRule returns the rule for the pair.
func (s *MemoryStore) GetRule(ctx context.Context, brandID, productTypeID string) (*Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleKey(brandID, productTypeID)]
	if !ok {
		return nil, ErrRuleNotFound
	}
	cp := *r
	return &cp, nil
}

// UpdateRule replaces an existing rule's attributes.
func (s *MemoryStore) UpdateRule(ctx context.Context, r *Rule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ruleKey(r.BrandID, r.ProductTypeID)
	existing, ok := s.rules[key]
	if !ok {
		return ErrRuleNotFound
	}
	if r.TemplateID != "" {
		if _, ok := s.templates[r.TemplateID]; !ok {
			return ErrTemplateNotFound
		}
	}
	cp := *r
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	s.rules[key] = &cp
	return nil
}

// DeleteRule removes the rule for the pair.
func (s *MemoryStore) DeleteRule(ctx context.Context, brandID, productTypeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ruleKey(brandID, productTypeID)
	if _, ok := s.rules[key]; !ok {
		return ErrRuleNotFound
	}
	delete(s.rules, key)
	return nil
}

// ListRules returns rules, optionally filtered by brand.
func (s *MemoryStore) ListRules(ctx context.Context, brandID string) ([]*Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if brandID != "" && r.BrandID != brandID {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	return result, nil
}

var _ Store = (*MemoryStore)(nil)
