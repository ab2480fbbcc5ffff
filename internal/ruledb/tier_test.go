package ruledb_test

import (
	"context"
	"testing"

	"github.com/HendryAvila/roobridge/internal/ruledb"
	"github.com/HendryAvila/roobridge/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTier_ApplyReplacesSameBucket(t *testing.T) {
	s := newTestStore(t)
	tier := ruledb.NewTier(s)
	ctx := context.Background()

	first := sample("a", "workspace", rules.Lang("js"))
	_, err := tier.Apply(ctx, first)
	require.NoError(t, err)

	second := first
	second.Content = map[string]any{"pattern": "second"}
	msg, err := tier.Apply(ctx, second)
	require.NoError(t, err)
	assert.Contains(t, msg, "workspace/js")

	// Same name in another scope is a different bucket.
	_, err = tier.Apply(ctx, sample("a", "global", rules.Lang("js")))
	require.NoError(t, err)

	listed, err := tier.List(ctx, rules.Filter{Scope: "workspace"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "second", listed[0].Content["pattern"])

	all, err := tier.List(ctx, rules.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTier_ApplyValidates(t *testing.T) {
	tier := ruledb.NewTier(newTestStore(t))
	r := sample("a", "workspace", nil)
	r.Content = map[string]any{}
	_, err := tier.Apply(context.Background(), r)
	assert.ErrorIs(t, err, rules.ErrEmptyRuleContent)
}

func TestTier_Delete(t *testing.T) {
	tier := ruledb.NewTier(newTestStore(t))
	ctx := context.Background()

	res, err := tier.Delete(ctx, "nonexistent-rule", "")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, "Rule 'nonexistent-rule' not found in any scope", res.Message())

	_, err = tier.Apply(ctx, sample("a", "workspace", rules.Lang("go")))
	require.NoError(t, err)

	res, err = tier.Delete(ctx, "a", "python")
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = tier.Delete(ctx, "a", "go")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, "database/workspace/go", res.Location)

	listed, err := tier.List(ctx, rules.Filter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
