// Package memory is a process-local storage backend. It keeps the same
// contracts as the sql repositories and guards all tables with one lock, so
// every mutation is atomic with respect to the others.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/storage"
)

var ErrDuplicateEmail = errors.New("memory: duplicate email")

type favoriteKey struct {
	userID   string
	promptID string
}

type db struct {
	mu         sync.RWMutex
	users      map[string]model.User
	categories map[string]model.Category
	prompts    map[string]model.Prompt
	images     map[string]model.Image
	adCodes    map[string]model.AdCode
	favorites  map[favoriteKey]time.Time
}

// New returns a Store whose repositories share one in-memory database. The
// sentinel category exists from the start.
func New() *storage.Store {
	d := &db{
		users:      make(map[string]model.User),
		categories: make(map[string]model.Category),
		prompts:    make(map[string]model.Prompt),
		images:     make(map[string]model.Image),
		adCodes:    make(map[string]model.AdCode),
		favorites:  make(map[favoriteKey]time.Time),
	}
	d.categories[model.UncategorizedID] = model.Uncategorized()

	return &storage.Store{
		Users:      &users{d},
		Categories: &categories{d},
		Prompts:    &prompts{d},
		Images:     &images{d},
		AdCodes:    &adCodes{d},
		Ping:       func(context.Context) error { return nil },
		Close:      func() error { return nil },
	}
}

type users struct{ *db }

func (r *users) Create(_ context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	u := *user
	if u.ID == "" {
		u.ID = storage.NewUserID()
	}
	if u.Role == "" {
		u.Role = model.UserRoleUser
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *users) EnsureAdmin(_ context.Context, email, passwordHash, name string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, u := range r.users {
		if u.Email == email {
			u.Role = model.UserRoleAdmin
			r.users[id] = u
			return &u, nil
		}
	}

	u := model.User{
		ID:        storage.NewUserID(),
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		Role:      model.UserRoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	r.users[u.ID] = u
	return &u, nil
}

func (r *users) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *users) List(_ context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *users) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

type categories struct{ *db }

func (r *categories) List(_ context.Context) ([]model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Category, 0, len(r.categories))
	for _, c := range r.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *categories) FindByID(_ context.Context, id string) (*model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *categories) Create(_ context.Context, category *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if category.ID == "" {
		category.ID = storage.NewCategoryID()
	}
	r.categories[category.ID] = *category
	return nil
}

func (r *categories) Update(_ context.Context, category *model.Category) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.categories[category.ID]; !ok {
		return false, nil
	}
	r.categories[category.ID] = *category
	return true, nil
}

func (r *categories) DeleteAndReassign(_ context.Context, id, fallbackID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reassigned int64
	for pid, p := range r.prompts {
		if p.CategoryID == id {
			p.CategoryID = fallbackID
			r.prompts[pid] = p
			reassigned++
		}
	}
	delete(r.categories, id)
	return reassigned, nil
}

type prompts struct{ *db }

func (r *prompts) Create(_ context.Context, prompt *model.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.ID == "" {
		prompt.ID = storage.NewPromptID()
	}
	if prompt.Status == "" {
		prompt.Status = model.PromptStatusPending
	}
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now().UTC()
	}
	r.prompts[prompt.ID] = *prompt
	return nil
}

func (r *prompts) FindByID(_ context.Context, id string) (*model.Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prompts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *prompts) List(_ context.Context) ([]model.Prompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *prompts) CountByStatus(_ context.Context, status model.PromptStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, p := range r.prompts {
		if p.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *prompts) Approve(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return false, nil
	}
	p.Status = model.PromptStatusApproved
	r.prompts[id] = p
	return true, nil
}

func (r *prompts) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.prompts[id]; !ok {
		return false, nil
	}
	delete(r.prompts, id)
	for k := range r.favorites {
		if k.promptID == id {
			delete(r.favorites, k)
		}
	}
	return true, nil
}

func (r *prompts) ToggleFavorite(_ context.Context, promptID, userID string) (storage.FavoriteResult, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[promptID]
	if !ok {
		return storage.FavoriteResult{}, false, nil
	}

	key := favoriteKey{userID: userID, promptID: promptID}
	_, member := r.favorites[key]
	if member {
		delete(r.favorites, key)
		if p.FavoritesCount > 0 {
			p.FavoritesCount--
		}
	} else {
		r.favorites[key] = time.Now().UTC()
		p.FavoritesCount++
	}
	r.prompts[promptID] = p

	return storage.FavoriteResult{Favorited: !member, Count: p.FavoritesCount}, true, nil
}

func (r *prompts) IncrementCopies(_ context.Context, id string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return 0, false, nil
	}
	p.CopiesCount++
	r.prompts[id] = p
	return p.CopiesCount, true, nil
}

func (r *prompts) FavoritePromptIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type fav struct {
		id string
		at time.Time
	}
	var favs []fav
	for k, at := range r.favorites {
		if k.userID == userID {
			favs = append(favs, fav{k.promptID, at})
		}
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].at.Before(favs[j].at) })

	ids := make([]string, len(favs))
	for i, f := range favs {
		ids[i] = f.id
	}
	return ids, nil
}

func (r *prompts) CountFavorites(_ context.Context, promptID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for k := range r.favorites {
		if k.promptID == promptID {
			n++
		}
	}
	return n, nil
}

type images struct{ *db }

func (r *images) Create(_ context.Context, image *model.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if image.ID == "" {
		image.ID = storage.NewImageID()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	r.images[image.ID] = *image
	return nil
}

func (r *images) FindByID(_ context.Context, id string) (*model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[id]
	if !ok {
		return nil, nil
	}
	return &img, nil
}

func (r *images) List(_ context.Context) ([]model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedImages(func(model.Image) bool { return true }), nil
}

func (r *images) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.images[id]; !ok {
		return false, nil
	}
	delete(r.images, id)
	return true, nil
}

func (r *images) ListOrphanUploads(_ context.Context, createdBefore time.Time) ([]model.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	referenced := make(map[string]struct{}, len(r.prompts))
	for _, p := range r.prompts {
		referenced[p.ImageID] = struct{}{}
	}
	return r.sortedImages(func(img model.Image) bool {
		_, used := referenced[img.ID]
		return img.UploadedBy != nil && !used && img.CreatedAt.Before(createdBefore)
	}), nil
}

func (r *images) sortedImages(keep func(model.Image) bool) []model.Image {
	out := make([]model.Image, 0)
	for _, img := range r.images {
		if keep(img) {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type adCodes struct{ *db }

func (r *adCodes) List(_ context.Context) ([]model.AdCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.AdCode, 0, len(r.adCodes))
	for _, ad := range r.adCodes {
		out = append(out, ad)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *adCodes) Upsert(_ context.Context, ad *model.AdCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.adCodes[ad.ID]; ok {
		existing.Name = ad.Name
		existing.Type = ad.Type
		r.adCodes[ad.ID] = existing
		return nil
	}
	r.adCodes[ad.ID] = *ad
	return nil
}

func (r *adCodes) UpdateCode(_ context.Context, id, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ad, ok := r.adCodes[id]
	if !ok {
		return false, nil
	}
	ad.Code = code
	r.adCodes[id] = ad
	return true, nil
}
