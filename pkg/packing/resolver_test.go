package packing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *packing.MemoryStore {
	t.Helper()
	store := packing.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-small", Name: "Small", BaseLength: 20, BaseWidth: 15, BaseHeight: 10, ExtraCm: 2, IsDefault: true,
	}))
	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-large", Name: "Large", BaseLength: 60, BaseWidth: 40, BaseHeight: 40, ExtraCm: 3,
	}))
	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-nobox", Name: "Ships bare",
	}))
	return store
}

func TestResolver_TemplateRule(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "mug", TemplateID: "tpl-small", IsFragile: true,
	}))

	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "mug", nil)
	require.NoError(t, err)

	// Base plus cushioning on every axis.
	assert.Equal(t, packing.Dimensions{Length: 22, Width: 17, Height: 12}, res.Dimensions)
	assert.True(t, res.IsFragile)
	assert.False(t, res.ShipsInOwnBox)
	assert.Equal(t, "tpl-small", res.TemplateID)
	assert.Empty(t, res.Warnings)
}

func TestResolver_NoRuleFallsBackToDefault(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	res, err := packing.NewResolver(store).Resolve(ctx, "brand-unknown", "mug", nil)
	require.NoError(t, err)

	assert.Equal(t, "tpl-small", res.TemplateID)
	assert.Equal(t, packing.Dimensions{Length: 22, Width: 17, Height: 12}, res.Dimensions)
	assert.False(t, res.IsFragile)
	assert.False(t, res.ShipsInOwnBox)
}

func TestResolver_NoDefaultTemplate(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	_, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "mug", nil)
	assert.ErrorIs(t, err, packing.ErrNoDefaultTemplate)
}

func TestResolver_ShipsInOwnBox(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "suitcase", ShipsInOwnBox: true, IsFragile: true,
	}))

	declared := &packing.Dimensions{Length: 70, Width: 45, Height: 30}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "suitcase", declared)
	require.NoError(t, err)

	assert.True(t, res.ShipsInOwnBox)
	assert.True(t, res.IsFragile)
	assert.Equal(t, *declared, res.Dimensions)
	assert.Empty(t, res.TemplateID)
}

func TestResolver_NoBoxTemplateBehavesLikeOwnBox(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "rug", TemplateID: "tpl-nobox",
	}))

	declared := &packing.Dimensions{Length: 120, Width: 20, Height: 20}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "rug", declared)
	require.NoError(t, err)

	assert.True(t, res.ShipsInOwnBox)
	assert.Equal(t, *declared, res.Dimensions)
}

func TestResolver_RuleWithoutTemplateUsesDeclared(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "poster",
	}))

	declared := &packing.Dimensions{Length: 90, Width: 10, Height: 10}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "poster", declared)
	require.NoError(t, err)

	assert.Equal(t, *declared, res.Dimensions)
	assert.False(t, res.ShipsInOwnBox)
	assert.Empty(t, res.TemplateID)
}

func TestResolver_OverrideAllowedTakesLargerPerAxis(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "lamp", TemplateID: "tpl-small", CanOverride: true,
	}))

	// Longer than the box on one axis only.
	declared := &packing.Dimensions{Length: 50, Width: 10, Height: 10}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "lamp", declared)
	require.NoError(t, err)

	assert.Equal(t, packing.Dimensions{Length: 50, Width: 17, Height: 12}, res.Dimensions)
	assert.Empty(t, res.Warnings)
}

func TestResolver_OverrideForbiddenKeepsBoxAndWarns(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "lamp", TemplateID: "tpl-small", CanOverride: false,
	}))

	declared := &packing.Dimensions{Length: 50, Width: 10, Height: 10}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "lamp", declared)
	require.NoError(t, err)

	assert.Equal(t, packing.Dimensions{Length: 22, Width: 17, Height: 12}, res.Dimensions)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "overrides are not permitted")
}

func TestResolver_SmallerDeclaredNeverShrinksBox(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "mug", TemplateID: "tpl-small", CanOverride: true,
	}))

	declared := &packing.Dimensions{Length: 5, Width: 5, Height: 5}
	res, err := packing.NewResolver(store).Resolve(ctx, "brand-1", "mug", declared)
	require.NoError(t, err)

	assert.Equal(t, packing.Dimensions{Length: 22, Width: 17, Height: 12}, res.Dimensions)
	assert.Empty(t, res.Warnings)
}

func TestResolver_DanglingTemplateIsIntegrityError(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "mug", TemplateID: "tpl-small",
	}))

	// A store whose rule references a template that no longer exists.
	dangling := &danglingTemplateStore{Store: store}
	_, err := packing.NewResolver(dangling).Resolve(ctx, "brand-1", "mug", nil)
	require.Error(t, err)

	var integrity *packing.IntegrityError
	require.True(t, errors.As(err, &integrity))
	assert.Equal(t, "tpl-small", integrity.TemplateID)
	assert.ErrorIs(t, err, packing.ErrTemplateNotFound)
}

type danglingTemplateStore struct {
	packing.Store
}

func (s *danglingTemplateStore) GetTemplate(ctx context.Context, id string) (*packing.Template, error) {
	return nil, packing.ErrTemplateNotFound
}

func TestResolver_ResolutionIsDeterministic(t *testing.T) {
	store := newCatalog(t)
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{
		BrandID: "brand-1", ProductTypeID: "mug", TemplateID: "tpl-large", IsFragile: true,
	}))

	r := packing.NewResolver(store)
	first, err := r.Resolve(ctx, "brand-1", "mug", nil)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "brand-1", "mug", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
