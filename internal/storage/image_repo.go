package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/prompt-gallery/internal/model"
)

const imageColumns = `id, description, image_url, image_hint, uploaded_by, blob_key, created_at`

type ImageRepository struct {
	db *Database
}

func NewImageRepository(db *Database) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *model.Image) error {
	if image.ID == "" {
		image.ID = NewImageID()
	}
	if image.CreatedAt.IsZero() {
		image.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO images (` + imageColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		image.ID, image.Description, image.ImageURL, image.ImageHint, image.UploadedBy, image.BlobKey, image.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create image: %w", err)
	}
	return nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*model.Image, error) {
	var image model.Image
	query := r.db.Rebind(`SELECT ` + imageColumns + ` FROM images WHERE id = ?`)
	err := r.db.GetContext(ctx, &image, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find image: %w", err)
	}
	return &image, nil
}

func (r *ImageRepository) List(ctx context.Context) ([]model.Image, error) {
	var images []model.Image
	if err := r.db.SelectContext(ctx, &images, `SELECT `+imageColumns+` FROM images ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM images WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete image: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *ImageRepository) ListOrphanUploads(ctx context.Context, createdBefore time.Time) ([]model.Image, error) {
	var images []model.Image
	query := r.db.Rebind(`
		SELECT ` + imageColumns + ` FROM images i
		WHERE i.uploaded_by IS NOT NULL
		AND i.created_at < ?
		AND NOT EXISTS (SELECT 1 FROM prompts p WHERE p.image_id = i.id)
		ORDER BY i.id
	`)
	if err := r.db.SelectContext(ctx, &images, query, createdBefore.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list orphan images: %w", err)
	}
	return images, nil
}

// NewImageID returns an id shaped like the seeded ones, img_prompt_<ms>_<uuid>.
func NewImageID() string {
	return "img_prompt_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + uuid.NewString()
}
