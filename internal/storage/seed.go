package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/prompt-gallery/internal/model"
)

var seedCategories = []model.Category{
	{ID: "cat-1", Name: "Art", Icon: "Palette"},
	{ID: "cat-2", Name: "Writing", Icon: "PenTool"},
	{ID: "cat-3", Name: "Photography", Icon: "Camera"},
	{ID: "cat-4", Name: "Music", Icon: "Music"},
	{ID: "cat-5", Name: "Development", Icon: "Code"},
}

var seedImages = []model.Image{
	{ID: "img_prompt_1", Description: "A futuristic cityscape", ImageURL: "https://picsum.photos/seed/prompt1/600/400", ImageHint: "futuristic cityscape"},
	{ID: "img_prompt_2", Description: "A serene forest path", ImageURL: "https://picsum.photos/seed/prompt2/600/400", ImageHint: "forest path"},
	{ID: "img_prompt_3", Description: "A cup of coffee", ImageURL: "https://picsum.photos/seed/prompt3/600/400", ImageHint: "coffee cup"},
	{ID: "img_prompt_4", Description: "An astronaut in space", ImageURL: "https://picsum.photos/seed/prompt4/600/400", ImageHint: "astronaut space"},
	{ID: "img_prompt_5", Description: "A vintage record player", ImageURL: "https://picsum.photos/seed/prompt5/600/400", ImageHint: "record player"},
	{ID: "img_prompt_6", Description: "A classic muscle car", ImageURL: "https://picsum.photos/seed/prompt6/600/400", ImageHint: "muscle car"},
}

var seedPrompts = []model.Prompt{
	{ID: "p-1", Text: "A futuristic cityscape at dusk, with flying vehicles and holographic ads, in the style of Blade Runner.", CategoryID: "cat-1", ImageID: "img_prompt_1"},
	{ID: "p-2", Text: `Compose a blog post titled "5 Tips for More Productive Mornings" aimed at young professionals.`, CategoryID: "cat-2", ImageID: "img_prompt_2"},
	{ID: "p-3", Text: "A close-up shot of a vintage camera on a wooden table, with soft, warm lighting.", CategoryID: "cat-3", ImageID: "img_prompt_3"},
	{ID: "p-4", Text: "Create a lo-fi hip hop track with a melancholic melody and a steady, relaxing beat.", CategoryID: "cat-4", ImageID: "img_prompt_4"},
	{ID: "p-5", Text: "Generate a Python script that automates daily file backups to a cloud storage service.", CategoryID: "cat-5", ImageID: "img_prompt_5"},
	{ID: "p-6", Text: `Design a minimalist logo for a new tech startup called "Innovate".`, CategoryID: "cat-1", ImageID: "img_prompt_6"},
}

// AdPlacements are the placements the frontend renders. They always exist so
// an admin only ever edits code, never creates slots.
var AdPlacements = []model.AdCode{
	{ID: "banner-prompt-detail-top", Name: "Prompt Detail Top Banner", Type: model.AdTypeBanner},
	{ID: "banner-prompt-detail-bottom", Name: "Prompt Detail Bottom Banner", Type: model.AdTypeBanner},
	{ID: "native-prompt-grid", Name: "Prompt Grid Native Ad", Type: model.AdTypeNative},
	{ID: "interstitial-copy", Name: "Copy Interstitial", Type: model.AdTypeInterstitial},
	{ID: "rewarded-copy", Name: "Copy Rewarded", Type: model.AdTypeRewarded},
}

// EnsureAdPlacements upserts every known placement, keeping stored codes.
func EnsureAdPlacements(ctx context.Context, store *Store) error {
	for _, ad := range AdPlacements {
		if err := store.AdCodes.Upsert(ctx, &ad); err != nil {
			return err
		}
	}
	return nil
}

// Seed fills empty tables with the demo catalogue. Each table is seeded only
// while it holds nothing besides the sentinel category, so it is safe to run
// on every start.
func Seed(ctx context.Context, store *Store) error {
	categories, err := store.Categories.List(ctx)
	if err != nil {
		return err
	}
	if len(categories) <= 1 {
		for _, c := range seedCategories {
			if err := store.Categories.Create(ctx, &c); err != nil {
				return fmt.Errorf("seed category %s: %w", c.ID, err)
			}
		}
	}

	images, err := store.Images.List(ctx)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		for _, img := range seedImages {
			if err := store.Images.Create(ctx, &img); err != nil {
				return fmt.Errorf("seed image %s: %w", img.ID, err)
			}
		}
	}

	prompts, err := store.Prompts.List(ctx)
	if err != nil {
		return err
	}
	if len(prompts) == 0 {
		now := time.Now().UTC()
		for i, p := range seedPrompts {
			p.Status = model.PromptStatusApproved
			p.CreatedAt = now.Add(-time.Duration(i) * time.Minute)
			if err := store.Prompts.Create(ctx, &p); err != nil {
				return fmt.Errorf("seed prompt %s: %w", p.ID, err)
			}
		}
	}

	return EnsureAdPlacements(ctx, store)
}
