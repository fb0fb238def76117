package packing_test

import (
	"context"
	"testing"

	"github.com/knitkart/fulfillment/pkg/packing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_TemplateLifecycle(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	tmpl := &packing.Template{ID: "tpl-1", Name: "Medium", BaseLength: 30, BaseWidth: 20, BaseHeight: 15, ExtraCm: 2}
	require.NoError(t, store.CreateTemplate(ctx, tmpl))

	got, err := store.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Medium", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	got.Name = "Medium v2"
	got.ExtraCm = 3
	require.NoError(t, store.UpdateTemplate(ctx, got))

	updated, err := store.GetTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "Medium v2", updated.Name)
	assert.Equal(t, 3.0, updated.ExtraCm)
	assert.Equal(t, got.CreatedAt, updated.CreatedAt)

	require.NoError(t, store.DeleteTemplate(ctx, "tpl-1"))
	_, err = store.GetTemplate(ctx, "tpl-1")
	assert.ErrorIs(t, err, packing.ErrTemplateNotFound)
}

func TestMemoryStore_CreateTemplate_RejectsNegativeDimensions(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	err := store.CreateTemplate(ctx, &packing.Template{ID: "tpl-bad", BaseLength: -1})
	assert.ErrorIs(t, err, packing.ErrInvalidDimensions)

	err = store.CreateTemplate(ctx, &packing.Template{ID: "tpl-bad", ExtraCm: -0.5})
	assert.ErrorIs(t, err, packing.ErrInvalidDimensions)
}

func TestMemoryStore_DeleteTemplate_InUse(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{ID: "tpl-1", BaseLength: 10, BaseWidth: 10, BaseHeight: 10}))
	require.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1", TemplateID: "tpl-1"}))

	err := store.DeleteTemplate(ctx, "tpl-1")
	assert.ErrorIs(t, err, packing.ErrTemplateInUse)

	// Deleting the referencing rule unblocks the template.
	require.NoError(t, store.DeleteRule(ctx, "b1", "pt1"))
	assert.NoError(t, store.DeleteTemplate(ctx, "tpl-1"))
}

func TestMemoryStore_DuplicateRule(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	rule := &packing.Rule{BrandID: "b1", ProductTypeID: "pt1"}
	require.NoError(t, store.CreateRule(ctx, rule))

	err := store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1", IsFragile: true})
	assert.ErrorIs(t, err, packing.ErrDuplicateRule)

	// The original rule is untouched.
	got, err := store.GetRule(ctx, "b1", "pt1")
	require.NoError(t, err)
	assert.False(t, got.IsFragile)

	// The same product type under another brand is a distinct pair.
	assert.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b2", ProductTypeID: "pt1"}))
}

func TestMemoryStore_CreateRule_UnknownTemplate(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	err := store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1", TemplateID: "ghost"})
	assert.ErrorIs(t, err, packing.ErrTemplateNotFound)
}

func TestMemoryStore_UpdateRule(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1"}))

	err := store.UpdateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1", CanOverride: true})
	require.NoError(t, err)

	got, err := store.GetRule(ctx, "b1", "pt1")
	require.NoError(t, err)
	assert.True(t, got.CanOverride)

	err = store.UpdateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "missing"})
	assert.ErrorIs(t, err, packing.ErrRuleNotFound)
}

func TestMemoryStore_ListRules_BrandFilter(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt1"}))
	require.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b1", ProductTypeID: "pt2"}))
	require.NoError(t, store.CreateRule(ctx, &packing.Rule{BrandID: "b2", ProductTypeID: "pt1"}))

	all, err := store.ListRules(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	b1, err := store.ListRules(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, b1, 2)
}

func TestMemoryStore_DefaultTemplate_PicksSmallest(t *testing.T) {
	store := packing.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-big", BaseLength: 50, BaseWidth: 50, BaseHeight: 50, IsDefault: true,
	}))
	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-small", BaseLength: 10, BaseWidth: 10, BaseHeight: 10, IsDefault: true,
	}))
	require.NoError(t, store.CreateTemplate(ctx, &packing.Template{
		ID: "tpl-tiny", BaseLength: 5, BaseWidth: 5, BaseHeight: 5,
	}))

	got, err := store.DefaultTemplate(ctx)
	require.NoError(t, err)
	// Smallest among the defaults, not overall.
	assert.Equal(t, "tpl-small", got.ID)
}
