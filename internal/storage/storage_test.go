package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-gallery/internal/config"
	"github.com/prompt-gallery/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := NewDatabase(&config.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations())
	return NewSQLStore(db)
}

func seedPrompt(t *testing.T, s *Store, categoryID string, status model.PromptStatus) *model.Prompt {
	t.Helper()
	ctx := context.Background()

	img := &model.Image{Description: "d", ImageURL: "https://example.com/a.png", ImageHint: "h"}
	require.NoError(t, s.Images.Create(ctx, img))

	p := &model.Prompt{Text: "a prompt long enough", CategoryID: categoryID, ImageID: img.ID, Status: status}
	require.NoError(t, s.Prompts.Create(ctx, p))
	return p
}

func TestMigrations_SentinelCategory(t *testing.T) {
	s := newTestStore(t)

	c, err := s.Categories.FindByID(context.Background(), model.UncategorizedID)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, model.Uncategorized(), *c)
}

func TestUserRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, &model.User{Name: "Ann", Email: "ann@example.com", Password: "hash"})
	require.NoError(t, err)
	assert.Contains(t, u.ID, "user-")
	assert.Equal(t, model.UserRoleUser, u.Role)

	_, err = s.Users.Create(ctx, &model.User{Name: "Dup", Email: "ann@example.com", Password: "hash"})
	assert.Error(t, err)

	found, err := s.Users.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)

	missing, err := s.Users.FindByID(ctx, "user-missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	admin, err := s.Users.EnsureAdmin(ctx, "ann@example.com", "other", "Ann")
	require.NoError(t, err)
	assert.Equal(t, u.ID, admin.ID)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "hash", admin.Password)

	count, err := s.Users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCategoryRepository_DeleteAndReassign(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cat := &model.Category{Name: "Art", Icon: "Palette"}
	require.NoError(t, s.Categories.Create(ctx, cat))
	other := &model.Category{Name: "Music", Icon: "Music"}
	require.NoError(t, s.Categories.Create(ctx, other))

	p1 := seedPrompt(t, s, cat.ID, model.PromptStatusApproved)
	p2 := seedPrompt(t, s, cat.ID, model.PromptStatusPending)
	p3 := seedPrompt(t, s, other.ID, model.PromptStatusApproved)

	n, err := s.Categories.DeleteAndReassign(ctx, cat.ID, model.UncategorizedID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	gone, err := s.Categories.FindByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	for _, id := range []string{p1.ID, p2.ID} {
		p, err := s.Prompts.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.UncategorizedID, p.CategoryID)
	}
	p, err := s.Prompts.FindByID(ctx, p3.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, p.CategoryID)
}

func TestCategoryRepository_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Categories.Update(context.Background(), &model.Category{ID: "cat-none", Name: "X", Icon: "Y"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromptRepository_ApproveAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPrompt(t, s, model.UncategorizedID, model.PromptStatusPending)

	ok, err := s.Prompts.Approve(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Prompts.Approve(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Prompts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PromptStatusApproved, got.Status)

	ok, err = s.Prompts.Approve(ctx, "p-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Prompts.ToggleFavorite(ctx, p.ID, "user-1")
	require.NoError(t, err)

	ok, err = s.Prompts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := s.Prompts.FavoritePromptIDs(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ok, err = s.Prompts.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromptRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"p-old", "p-new"} {
		p := &model.Prompt{ID: id, Text: "some prompt text", CategoryID: model.UncategorizedID, ImageID: "img", CreatedAt: now.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, s.Prompts.Create(ctx, p))
	}

	prompts, err := s.Prompts.List(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "p-new", prompts[0].ID)
	assert.Equal(t, model.PromptStatusPending, prompts[1].Status)

	pending, err := s.Prompts.CountByStatus(ctx, model.PromptStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
}

func TestPromptRepository_ToggleFavorite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPrompt(t, s, model.UncategorizedID, model.PromptStatusApproved)

	res, found, err := s.Prompts.ToggleFavorite(ctx, p.ID, "user-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, FavoriteResult{Favorited: true, Count: 1}, res)

	res, _, err = s.Prompts.ToggleFavorite(ctx, p.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, FavoriteResult{Favorited: true, Count: 2}, res)

	res, _, err = s.Prompts.ToggleFavorite(ctx, p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, FavoriteResult{Favorited: false, Count: 1}, res)

	_, found, err = s.Prompts.ToggleFavorite(ctx, "p-missing", "user-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPromptRepository_ToggleFavoriteConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPrompt(t, s, model.UncategorizedID, model.PromptStatusApproved)

	const users = 20
	var wg sync.WaitGroup
	for i := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Prompts.ToggleFavorite(ctx, p.ID, "user-"+string(rune('a'+i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Prompts.FindByID(ctx, p.ID)
	require.NoError(t, err)
	members, err := s.Prompts.CountFavorites(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, users, got.FavoritesCount)
	assert.Equal(t, members, got.FavoritesCount)
}

func TestPromptRepository_IncrementCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := seedPrompt(t, s, model.UncategorizedID, model.PromptStatusApproved)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Prompts.IncrementCopies(ctx, p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, found, err := s.Prompts.IncrementCopies(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 11, count)

	_, found, err = s.Prompts.IncrementCopies(ctx, "p-missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestImageRepository_ListOrphanUploads(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := "user-1"

	old := time.Now().UTC().Add(-2 * time.Hour)

	used := &model.Image{Description: "used", ImageURL: "/uploads/a.png", ImageHint: "user submission", UploadedBy: &owner, CreatedAt: old}
	orphan := &model.Image{Description: "orphan", ImageURL: "/uploads/b.png", ImageHint: "user submission", UploadedBy: &owner, CreatedAt: old}
	fresh := &model.Image{Description: "fresh", ImageURL: "/uploads/c.png", ImageHint: "user submission", UploadedBy: &owner}
	seeded := &model.Image{ID: "img_prompt_9", Description: "seeded", ImageURL: "https://picsum.photos/x", ImageHint: "x", CreatedAt: old}
	for _, img := range []*model.Image{used, orphan, fresh, seeded} {
		require.NoError(t, s.Images.Create(ctx, img))
	}
	assert.Contains(t, used.ID, "img_prompt_")

	require.NoError(t, s.Prompts.Create(ctx, &model.Prompt{Text: "uses the image", CategoryID: model.UncategorizedID, ImageID: used.ID}))

	orphans, err := s.Images.ListOrphanUploads(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)
	assert.True(t, orphans[0].IsUserUpload())

	// Uploads inside the grace window are kept even without a prompt.
	orphans, err = s.Images.ListOrphanUploads(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.ElementsMatch(t, []string{orphan.ID, fresh.ID}, []string{orphans[0].ID, orphans[1].ID})

	ok, err := s.Images.Delete(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdCodeRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, EnsureAdPlacements(ctx, s))

	ok, err := s.AdCodes.UpdateCode(ctx, "native-prompt-grid", "<script></script>")
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-running placement setup keeps stored code.
	require.NoError(t, EnsureAdPlacements(ctx, s))

	ads, err := s.AdCodes.List(ctx)
	require.NoError(t, err)
	require.Len(t, ads, len(AdPlacements))
	for _, ad := range ads {
		if ad.ID == "native-prompt-grid" {
			assert.Equal(t, "<script></script>", ad.Code)
		}
	}

	ok, err = s.AdCodes.UpdateCode(ctx, "missing", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSeed_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s))
	require.NoError(t, Seed(ctx, s))

	categories, err := s.Categories.List(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	prompts, err := s.Prompts.List(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 6)
	assert.Equal(t, "p-1", prompts[0].ID)
	for _, p := range prompts {
		assert.True(t, p.IsApproved())
	}
}
