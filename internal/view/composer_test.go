package view

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-gallery/internal/cache"
	"github.com/prompt-gallery/internal/config"
	"github.com/prompt-gallery/internal/logger"
	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/storage/memory"
)

func newComposer(t *testing.T, withCache bool) (*Composer, *storage.Store) {
	t.Helper()
	store := memory.New()
	require.NoError(t, storage.Seed(context.Background(), store))

	var c *cache.Cache
	if withCache {
		mr := miniredis.RunT(t)
		var err error
		c, err = cache.New(context.Background(), config.CacheConfig{Enabled: true, RedisAddr: mr.Addr(), TTL: time.Minute}, logger.Discard())
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })
	}
	return NewComposer(store, c, logger.Discard()), store
}

func ids(prompts []model.FullPrompt) []string {
	out := make([]string, len(prompts))
	for i, p := range prompts {
		out[i] = p.ID
	}
	return out
}

func TestHome_ApprovedOnlyNewestFirst(t *testing.T) {
	c, store := newComposer(t, false)
	ctx := context.Background()
	require.NoError(t, store.Prompts.Create(ctx, &model.Prompt{ID: "p-pending", Text: "waiting for review", CategoryID: "cat-1", ImageID: "img_prompt_1"}))

	v, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2", "p-3", "p-4", "p-5", "p-6"}, ids(v.Prompts))
	assert.Len(t, v.Categories, 6)
	assert.Contains(t, v.AdCodes, "native-prompt-grid")
	assert.Nil(t, v.User)

	art, err := c.Home(ctx, nil, "cat-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-6"}, ids(art.Prompts))
}

func TestHome_FallbacksForMissingReferences(t *testing.T) {
	c, store := newComposer(t, false)
	ctx := context.Background()
	require.NoError(t, store.Prompts.Create(ctx, &model.Prompt{
		ID: "p-orphan", Text: "points at nothing", CategoryID: "cat-gone", ImageID: "img-gone",
		Status: model.PromptStatusApproved, CreatedAt: time.Now().Add(time.Hour),
	}))

	v, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	orphan := v.Prompts[0]
	assert.Equal(t, "p-orphan", orphan.ID)
	assert.Equal(t, model.Uncategorized(), orphan.Category)
	assert.Equal(t, model.PlaceholderImageURL, orphan.ImageURL)
	assert.Equal(t, model.PlaceholderImageHint, orphan.ImageHint)

	uncategorized, err := c.Home(ctx, nil, model.UncategorizedID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-orphan"}, ids(uncategorized.Prompts))
}

func TestHome_FavoritesAfterCache(t *testing.T) {
	c, store := newComposer(t, true)
	ctx := context.Background()
	u, err := store.Users.Create(ctx, &model.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	_, _, err = store.Prompts.ToggleFavorite(ctx, "p-2", u.ID)
	require.NoError(t, err)

	anon, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	for _, p := range anon.Prompts {
		assert.False(t, p.IsFavorite)
	}

	caller := &model.Claims{UserID: u.ID, Role: model.UserRoleUser}
	mine, err := c.Home(ctx, caller, "")
	require.NoError(t, err)
	require.NotNil(t, mine.User)
	assert.Equal(t, "Ann", mine.User.Name)
	for _, p := range mine.Prompts {
		assert.Equal(t, p.ID == "p-2", p.IsFavorite, p.ID)
	}
}

func TestHome_CacheInvalidation(t *testing.T) {
	c, store := newComposer(t, true)
	ctx := context.Background()

	first, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	require.Len(t, first.Prompts, 6)

	_, err = store.Prompts.Delete(ctx, "p-1")
	require.NoError(t, err)

	stale, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, stale.Prompts, 6)

	require.NoError(t, c.Invalidate(ctx))
	fresh, err := c.Home(ctx, nil, "")
	require.NoError(t, err)
	assert.Len(t, fresh.Prompts, 5)
}

func TestPromptDetail(t *testing.T) {
	c, store := newComposer(t, false)
	ctx := context.Background()
	u, err := store.Users.Create(ctx, &model.User{Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)

	for i, id := range []string{"p-7", "p-8", "p-9"} {
		require.NoError(t, store.Prompts.Create(ctx, &model.Prompt{
			ID: id, Text: "more art prompts", CategoryID: "cat-1", ImageID: "img_prompt_1",
			Status: model.PromptStatusApproved, SubmittedBy: &u.ID, CreatedAt: time.Now().Add(time.Duration(i+1) * time.Hour),
		}))
	}

	v, err := c.PromptDetail(ctx, nil, "p-9")
	require.NoError(t, err)
	assert.Equal(t, "p-9", v.Prompt.ID)
	assert.Equal(t, "Ann", v.Prompt.SubmitterName)
	assert.Len(t, v.Related, RelatedLimit)
	for _, r := range v.Related {
		assert.NotEqual(t, "p-9", r.ID)
		assert.Equal(t, "cat-1", r.Category.ID)
	}

	_, err = c.PromptDetail(ctx, nil, "p-missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPromptDetail_PendingVisibility(t *testing.T) {
	c, store := newComposer(t, true)
	ctx := context.Background()
	owner := "user-owner"
	require.NoError(t, store.Prompts.Create(ctx, &model.Prompt{ID: "p-new", Text: "waiting for review", CategoryID: "cat-1", ImageID: "img_prompt_1", SubmittedBy: &owner}))

	_, err := c.PromptDetail(ctx, nil, "p-new")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = c.PromptDetail(ctx, &model.Claims{UserID: "user-other", Role: model.UserRoleUser}, "p-new")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = c.PromptDetail(ctx, &model.Claims{UserID: owner, Role: model.UserRoleUser}, "p-new")
	assert.NoError(t, err)

	_, err = c.PromptDetail(ctx, &model.Claims{UserID: "user-admin", Role: model.UserRoleAdmin}, "p-new")
	assert.NoError(t, err)
}

func TestAdmin_PendingFirst(t *testing.T) {
	c, store := newComposer(t, false)
	ctx := context.Background()
	require.NoError(t, store.Prompts.Create(ctx, &model.Prompt{ID: "p-new", Text: "waiting for review", CategoryID: "cat-1", ImageID: "img_prompt_1", CreatedAt: time.Now().Add(-time.Hour)}))

	v, err := c.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "p-new", v.Prompts[0].ID)
	assert.Equal(t, 1, v.PendingCount)
	assert.Equal(t, 7, v.TotalCount)
	assert.Len(t, v.AdCodes, len(storage.AdPlacements))
}

func TestSubmit(t *testing.T) {
	c, _ := newComposer(t, false)

	v, err := c.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, v.Categories, 6)
	assert.Nil(t, v.User)
}

func TestCached_SkipsWriteAfterConcurrentInvalidate(t *testing.T) {
	c, _ := newComposer(t, true)
	ctx := context.Background()
	key := CachePrefix + "race"

	var built []string
	err := c.cached(ctx, key, &built, func() error {
		built = []string{"stale"}
		return c.Invalidate(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, built)

	var got []string
	hit, err := c.cache.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.cached(ctx, key, &built, func() error {
		built = []string{"fresh"}
		return nil
	}))
	hit, err = c.cache.GetJSON(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"fresh"}, got)
}
