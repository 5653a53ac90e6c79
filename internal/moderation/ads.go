package moderation

import (
	"context"

	"github.com/prompt-gallery/internal/model"
)

// UpdateAdCode replaces the markup of an existing placement. Unknown
// placements are ignored.
func (s *Service) UpdateAdCode(ctx context.Context, caller *model.Claims, id, code string) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}

	found, err := s.store.AdCodes.UpdateCode(ctx, id, code)
	if err != nil {
		return err
	}
	if found {
		s.log.WithField("ad_id", id).Info("ad code updated")
		s.changed(ctx)
	}
	return nil
}

// AdCodeMap returns placement id to markup for client rendering.
func (s *Service) AdCodeMap(ctx context.Context) (map[string]string, error) {
	ads, err := s.store.AdCodes.List(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(ads))
	for _, ad := range ads {
		m[ad.ID] = ad.Code
	}
	return m, nil
}
