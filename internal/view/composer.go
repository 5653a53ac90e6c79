// Package view assembles the read models the pages render. Lists are loaded
// whole and joined in memory; a reference to a missing category or image
// falls back to the sentinel category or the placeholder image.
package view

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/cache"
	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/storage"
)

const (
	CachePrefix  = "view:"
	RelatedLimit = 3
)

type Composer struct {
	store *storage.Store
	cache *cache.Cache
	log   logrus.FieldLogger

	// gen counts invalidations so a build that raced one is not cached.
	mu  sync.RWMutex
	gen uint64
}

// NewComposer builds a Composer. c may be nil to disable caching.
func NewComposer(store *storage.Store, c *cache.Cache, log logrus.FieldLogger) *Composer {
	return &Composer{store: store, cache: c, log: log.WithField("component", "view")}
}

// Invalidate drops every cached view.
func (c *Composer) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.cache.InvalidatePrefix(ctx, CachePrefix)
}

// cached loads key into dst or builds it. Cache failures degrade to building.
func (c *Composer) cached(ctx context.Context, key string, dst any, build func() error) error {
	hit, err := c.cache.GetJSON(ctx, key, dst)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache read failed")
	}
	if hit {
		return nil
	}

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	if err := build(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen != gen {
		return nil
	}
	if err := c.cache.SetJSON(ctx, key, dst); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("view cache write failed")
	}
	return nil
}

type catalog struct {
	prompts    []model.Prompt
	categories []model.Category
	byCategory map[string]model.Category
	images     map[string]model.Image
	users      map[string]model.User
}

func (c *Composer) loadCatalog(ctx context.Context) (*catalog, error) {
	prompts, err := c.store.Prompts.List(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := c.store.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	images, err := c.store.Images.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := c.store.Users.List(ctx)
	if err != nil {
		return nil, err
	}

	cat := &catalog{
		prompts:    prompts,
		categories: categories,
		byCategory: make(map[string]model.Category, len(categories)),
		images:     make(map[string]model.Image, len(images)),
		users:      make(map[string]model.User, len(users)),
	}
	for _, x := range categories {
		cat.byCategory[x.ID] = x
	}
	for _, x := range images {
		cat.images[x.ID] = x
	}
	for _, x := range users {
		cat.users[x.ID] = x
	}
	return cat, nil
}

// full joins p with its references.
func (cat *catalog) full(p model.Prompt) model.FullPrompt {
	fp := model.FullPrompt{
		Prompt:    p,
		Category:  model.Uncategorized(),
		ImageURL:  model.PlaceholderImageURL,
		ImageHint: model.PlaceholderImageHint,
	}
	if c, ok := cat.byCategory[p.CategoryID]; ok {
		fp.Category = c
	}
	if img, ok := cat.images[p.ImageID]; ok {
		fp.ImageURL = img.ImageURL
		fp.ImageHint = img.ImageHint
	}
	if p.SubmittedBy != nil {
		if u, ok := cat.users[*p.SubmittedBy]; ok {
			fp.SubmitterName = u.Name
		}
	}
	return fp
}

func (c *Composer) adCodeMap(ctx context.Context) (map[string]string, error) {
	ads, err := c.store.AdCodes.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(ads))
	for _, ad := range ads {
		m[ad.ID] = ad.Code
	}
	return m, nil
}

// Home lists approved prompts, newest first. A non-empty categoryID keeps
// only prompts whose resolved category matches it.
func (c *Composer) Home(ctx context.Context, caller *model.Claims, categoryID string) (*model.HomeView, error) {
	var v model.HomeView
	err := c.cached(ctx, CachePrefix+"home:"+categoryID, &v, func() error {
		cat, err := c.loadCatalog(ctx)
		if err != nil {
			return err
		}
		v.Prompts = make([]model.FullPrompt, 0, len(cat.prompts))
		for _, p := range cat.prompts {
			if !p.IsApproved() {
				continue
			}
			fp := cat.full(p)
			if categoryID != "" && fp.Category.ID != categoryID {
				continue
			}
			v.Prompts = append(v.Prompts, fp)
		}
		v.Categories = cat.categories
		v.AdCodes, err = c.adCodeMap(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if v.User, err = c.personalize(ctx, caller, v.Prompts); err != nil {
		return nil, err
	}
	return &v, nil
}

// PromptDetail returns one prompt with up to RelatedLimit approved prompts
// of the same category. Pending prompts are visible to admins and to their
// submitter only; for anyone else they do not exist.
func (c *Composer) PromptDetail(ctx context.Context, caller *model.Claims, id string) (*model.PromptDetailView, error) {
	var v model.PromptDetailView
	err := c.cached(ctx, CachePrefix+"prompt:"+id, &v, func() error {
		cat, err := c.loadCatalog(ctx)
		if err != nil {
			return err
		}

		idx := -1
		for i := range cat.prompts {
			if cat.prompts[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.ErrNotFound
		}

		v.Prompt = cat.full(cat.prompts[idx])
		v.Related = make([]model.FullPrompt, 0, RelatedLimit)
		for _, p := range cat.prompts {
			if len(v.Related) == RelatedLimit {
				break
			}
			if p.ID == id || !p.IsApproved() {
				continue
			}
			if fp := cat.full(p); fp.Category.ID == v.Prompt.Category.ID {
				v.Related = append(v.Related, fp)
			}
		}
		v.AdCodes, err = c.adCodeMap(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !v.Prompt.IsApproved() && !canSeePending(caller, &v.Prompt.Prompt) {
		return nil, model.ErrNotFound
	}

	prompts := append([]model.FullPrompt{v.Prompt}, v.Related...)
	if v.User, err = c.personalize(ctx, caller, prompts); err != nil {
		return nil, err
	}
	v.Prompt, v.Related = prompts[0], prompts[1:]
	return &v, nil
}

func canSeePending(caller *model.Claims, p *model.Prompt) bool {
	if caller == nil {
		return false
	}
	return caller.IsAdmin() || (p.SubmittedBy != nil && *p.SubmittedBy == caller.UserID)
}

// Admin lists every prompt for moderation, pending ones first.
func (c *Composer) Admin(ctx context.Context) (*model.AdminView, error) {
	var v model.AdminView
	err := c.cached(ctx, CachePrefix+"admin", &v, func() error {
		cat, err := c.loadCatalog(ctx)
		if err != nil {
			return err
		}

		v.Prompts = make([]model.FullPrompt, 0, len(cat.prompts))
		for _, p := range cat.prompts {
			v.Prompts = append(v.Prompts, cat.full(p))
			if !p.IsApproved() {
				v.PendingCount++
			}
		}
		sort.SliceStable(v.Prompts, func(i, j int) bool {
			return !v.Prompts[i].IsApproved() && v.Prompts[j].IsApproved()
		})
		v.TotalCount = len(v.Prompts)
		v.Categories = cat.categories

		v.AdCodes, err = c.store.AdCodes.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Submit returns what the submission form needs.
func (c *Composer) Submit(ctx context.Context, caller *model.Claims) (*model.SubmitView, error) {
	categories, err := c.store.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	v := &model.SubmitView{Categories: categories}
	if caller != nil {
		if v.User, err = c.store.Users.FindByID(ctx, caller.UserID); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// personalize marks the caller's favorites in prompts and returns the
// caller's account.
func (c *Composer) personalize(ctx context.Context, caller *model.Claims, prompts []model.FullPrompt) (*model.User, error) {
	if caller == nil {
		return nil, nil
	}

	ids, err := c.store.Prompts.FavoritePromptIDs(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		favorites[id] = struct{}{}
	}
	for i := range prompts {
		_, prompts[i].IsFavorite = favorites[prompts[i].ID]
	}

	return c.store.Users.FindByID(ctx, caller.UserID)
}
