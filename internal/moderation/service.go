// Package moderation implements the prompt lifecycle: submission, admin
// approval and removal, favorites, copy counting, and the category and ad
// placement administration that goes with it.
//
// Every admin transition checks the caller first, so a non-admin fails the
// same way whatever the input. Transitions that name a missing id succeed
// without doing anything.
package moderation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/blob"
	"github.com/prompt-gallery/internal/model"
	"github.com/prompt-gallery/internal/notify"
	"github.com/prompt-gallery/internal/storage"
)

const DefaultOrphanGrace = time.Hour

// Invalidator drops rendered views after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Options struct {
	// Blobs stores uploaded images. When nil, images are kept inline as data
	// URIs on the image row.
	Blobs         blob.Store
	Notifier      notify.Notifier
	Views         Invalidator
	MaxImageBytes int64
	// OrphanGrace is how old an unreferenced upload must be before the
	// sweep removes it. Zero means DefaultOrphanGrace.
	OrphanGrace time.Duration
	Log         logrus.FieldLogger
}

type Service struct {
	store         *storage.Store
	blobs         blob.Store
	notifier      notify.Notifier
	views         Invalidator
	maxImageBytes int64
	orphanGrace   time.Duration
	now           func() time.Time
	log           logrus.FieldLogger
}

func NewService(store *storage.Store, opts Options) *Service {
	s := &Service{
		store:         store,
		blobs:         opts.Blobs,
		notifier:      opts.Notifier,
		views:         opts.Views,
		maxImageBytes: opts.MaxImageBytes,
		orphanGrace:   opts.OrphanGrace,
		now:           time.Now,
		log:           opts.Log,
	}
	if s.orphanGrace <= 0 {
		s.orphanGrace = DefaultOrphanGrace
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "moderation")
	return s
}

func requireUser(caller *model.Claims) error {
	if caller == nil {
		return model.ErrUnauthorized
	}
	return nil
}

func requireAdmin(caller *model.Claims) error {
	if caller == nil {
		return model.ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return model.ErrForbidden
	}
	return nil
}

// changed invalidates cached views. Failures only cost freshness until the
// cache TTL runs out, so they are logged.
func (s *Service) changed(ctx context.Context) {
	if s.views == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.views.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate views")
	}
}
