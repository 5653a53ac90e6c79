package moderation

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/validation"
)

var categoryMessages = validation.Messages{
	"name.min":      "Category name must be at least 2 characters.",
	"icon.required": "Icon is required.",
}

func (s *Service) CreateCategory(ctx context.Context, caller *model.Claims, req *model.CategoryRequest) (*model.Category, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if verr := validation.Struct(req, categoryMessages); verr != nil {
		return nil, verr
	}

	category := &model.Category{ID: storage.NewCategoryID(), Name: req.Name, Icon: req.Icon}
	if err := s.store.Categories.Create(ctx, category); err != nil {
		return nil, err
	}

	s.log.WithField("category_id", category.ID).Info("category created")
	s.changed(ctx)
	return category, nil
}

// UpdateCategory renames a category. It returns nil for a missing id.
func (s *Service) UpdateCategory(ctx context.Context, caller *model.Claims, id string, req *model.CategoryRequest) (*model.Category, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if verr := validation.Struct(req, categoryMessages); verr != nil {
		return nil, verr
	}

	category := &model.Category{ID: id, Name: req.Name, Icon: req.Icon}
	found, err := s.store.Categories.Update(ctx, category)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	s.changed(ctx)
	return category, nil
}

// DeleteCategory removes a category and moves its prompts to the sentinel
// category in the same transaction. The sentinel itself cannot be deleted.
func (s *Service) DeleteCategory(ctx context.Context, caller *model.Claims, id string) (int64, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	if id == model.UncategorizedID {
		return 0, model.NewValidationError("id", "The Uncategorized category cannot be deleted.")
	}

	reassigned, err := s.store.Categories.DeleteAndReassign(ctx, id, model.UncategorizedID)
	if err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"category_id": id, "reassigned": reassigned}).Info("category deleted")
	s.changed(ctx)
	return reassigned, nil
}
