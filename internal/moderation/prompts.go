package moderation

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/notify"
	"github.com/prompt-gallery/internal/storage"
	"github.com/prompt-gallery/internal/validation"
)

var submitMessages = validation.Messages{
	"text.min":            "Prompt must be at least 10 characters.",
	"categoryId.required": "Please select a category.",
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// ValidateSubmission checks every field of req and returns all failures at
// once, or nil. The error result is for storage failures only.
func (s *Service) ValidateSubmission(ctx context.Context, req *model.SubmitPromptRequest) (*model.ValidationError, error) {
	verr := validation.Struct(req, submitMessages)
	if verr == nil {
		verr = &model.ValidationError{}
	}

	if _, invalid := verr.Fields["categoryId"]; !invalid {
		category, err := s.store.Categories.FindByID(ctx, req.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			verr.Add("categoryId", submitMessages["categoryId.required"])
		}
	}

	switch {
	case req.Image.Size() == 0:
		verr.Add("image", "Image is required.")
	case s.maxImageBytes > 0 && int64(req.Image.Size()) > s.maxImageBytes:
		verr.Add("image", "Image must be at most "+humanSize(s.maxImageBytes)+".")
	default:
		if _, ok := imageExtensions[sniff(req.Image)]; !ok {
			verr.Add("image", "Image must be a PNG, JPEG, GIF, WebP or BMP file.")
		}
	}

	if verr.Empty() {
		return nil, nil
	}
	return verr, nil
}

func sniff(u *model.Upload) string {
	ct := http.DetectContentType(u.Data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// Submit stores a new prompt with its image. Admin submissions are approved
// immediately and announced; everyone else's wait for moderation.
func (s *Service) Submit(ctx context.Context, caller *model.Claims, req *model.SubmitPromptRequest) (*model.Prompt, error) {
	if err := requireUser(caller); err != nil {
		return nil, err
	}
	verr, err := s.ValidateSubmission(ctx, req)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return nil, verr
	}

	image, err := s.storeImage(ctx, caller, req)
	if err != nil {
		return nil, err
	}

	submittedBy := caller.UserID
	prompt := &model.Prompt{
		ID:          storage.NewPromptID(),
		Text:        req.Text,
		CategoryID:  req.CategoryID,
		ImageID:     image.ID,
		Status:      model.PromptStatusPending,
		SubmittedBy: &submittedBy,
	}
	if caller.IsAdmin() {
		prompt.Status = model.PromptStatusApproved
	}

	if err := s.store.Prompts.Create(ctx, prompt); err != nil {
		s.discardImage(ctx, image)
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"prompt_id": prompt.ID,
		"user_id":   caller.UserID,
		"status":    prompt.Status,
	}).Info("prompt submitted")

	s.changed(ctx)
	if prompt.IsApproved() {
		s.notifier.Notify(notify.Event{Type: notify.EventPromptApproved, PromptID: prompt.ID, Text: prompt.Text})
	}
	return prompt, nil
}

func (s *Service) storeImage(ctx context.Context, caller *model.Claims, req *model.SubmitPromptRequest) (*model.Image, error) {
	uploadedBy := caller.UserID
	image := &model.Image{
		ID:          storage.NewImageID(),
		Description: "User submission: " + excerpt(req.Text, 30),
		ImageHint:   "user submission",
		UploadedBy:  &uploadedBy,
	}

	contentType := sniff(req.Image)
	if s.blobs == nil {
		image.ImageURL = "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)
	} else {
		ext := imageExtensions[contentType]
		if ext == "" {
			ext = strings.ToLower(filepath.Ext(req.Image.Filename))
		}
		key := "prompts/" + image.ID + ext
		url, err := s.blobs.Put(ctx, key, req.Image.Data, contentType)
		if err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		image.ImageURL = url
		image.BlobKey = &key
	}

	if err := s.store.Images.Create(ctx, image); err != nil {
		s.deleteBlob(ctx, image)
		return nil, err
	}
	return image, nil
}

// Approve makes a pending prompt public. Approving an approved or missing
// prompt is a no-op.
func (s *Service) Approve(ctx context.Context, caller *model.Claims, promptID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	prompt, err := s.store.Prompts.FindByID(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt == nil {
		return nil
	}
	if _, err := s.store.Prompts.Approve(ctx, promptID); err != nil {
		return err
	}

	s.changed(ctx)
	if !prompt.IsApproved() {
		s.log.WithField("prompt_id", promptID).Info("prompt approved")
		s.notifier.Notify(notify.Event{Type: notify.EventPromptApproved, PromptID: prompt.ID, Text: prompt.Text})
	}
	return nil
}

// Reject discards a submission. No audit trail is kept, so it is the same
// transition as Delete.
func (s *Service) Reject(ctx context.Context, caller *model.Claims, promptID string) error {
	return s.Remove(ctx, caller, promptID)
}

func (s *Service) Delete(ctx context.Context, caller *model.Claims, promptID string) error {
	return s.Remove(ctx, caller, promptID)
}

// Remove deletes the prompt, its favorites and, when the image was uploaded
// with it, the image and its stored bytes.
func (s *Service) Remove(ctx context.Context, caller *model.Claims, promptID string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	prompt, err := s.store.Prompts.FindByID(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt == nil {
		return nil
	}

	if _, err := s.store.Prompts.Delete(ctx, promptID); err != nil {
		return err
	}

	image, err := s.store.Images.FindByID(ctx, prompt.ImageID)
	if err != nil {
		s.log.WithError(err).WithField("image_id", prompt.ImageID).Warn("failed to load image of removed prompt")
	} else if image.IsUserUpload() {
		s.discardImage(ctx, image)
	}

	s.log.WithField("prompt_id", promptID).Info("prompt removed")
	s.changed(ctx)
	return nil
}

// discardImage removes an uploaded image row and its blob, logging failures.
func (s *Service) discardImage(ctx context.Context, image *model.Image) {
	if _, err := s.store.Images.Delete(ctx, image.ID); err != nil {
		s.log.WithError(err).WithField("image_id", image.ID).Warn("failed to delete image")
		return
	}
	s.deleteBlob(ctx, image)
}

func (s *Service) deleteBlob(ctx context.Context, image *model.Image) {
	if s.blobs == nil || image.BlobKey == nil {
		return
	}
	if err := s.blobs.Delete(ctx, *image.BlobKey); err != nil {
		s.log.WithError(err).WithField("blob_key", *image.BlobKey).Warn("failed to delete image blob")
	}
}

// SweepOrphanUploads deletes uploaded images that no prompt references and
// returns how many were removed. Uploads younger than the grace window are
// skipped because Submit stores the image before the prompt.
func (s *Service) SweepOrphanUploads(ctx context.Context) (int, error) {
	orphans, err := s.store.Images.ListOrphanUploads(ctx, s.now().Add(-s.orphanGrace))
	if err != nil {
		return 0, err
	}
	for i := range orphans {
		s.discardImage(ctx, &orphans[i])
	}
	return len(orphans), nil
}

// ToggleFavorite flips the caller's favorite on a prompt. A missing prompt
// yields a zero result.
func (s *Service) ToggleFavorite(ctx context.Context, caller *model.Claims, promptID string) (storage.FavoriteResult, error) {
	if err := requireUser(caller); err != nil {
		return storage.FavoriteResult{}, err
	}

	res, found, err := s.store.Prompts.ToggleFavorite(ctx, promptID, caller.UserID)
	if err != nil {
		return storage.FavoriteResult{}, err
	}
	if found {
		s.changed(ctx)
	}
	return res, nil
}

// IncrementCopyCount records one copy of the prompt text. Anyone may call
// it; a missing prompt yields 0.
func (s *Service) IncrementCopyCount(ctx context.Context, promptID string) (int, error) {
	count, found, err := s.store.Prompts.IncrementCopies(ctx, promptID)
	if err != nil {
		return 0, err
	}
	if found {
		s.changed(ctx)
	}
	return count, nil
}

// DigestPending reports the pending queue length to the notifier when the
// queue is not empty.
func (s *Service) DigestPending(ctx context.Context) (int, error) {
	pending, err := s.store.Prompts.CountByStatus(ctx, model.PromptStatusPending)
	if err != nil {
		return 0, err
	}
	if pending > 0 {
		s.notifier.Notify(notify.Event{Type: notify.EventModerationDigest, PendingCount: pending})
	}
	return pending, nil
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
