package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

// CreateBanner stores a carousel entry. The image is the only required field.
func (s *Service) CreateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error) {
	if b.Image.URL == "" || b.Image.PublicID == "" {
		return nil, errImageRequired
	}
	if b.Align != model.AlignRight {
		b.Align = model.AlignLeft
	}

	id, err := s.repo.CreateBanner(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create banner: %w", err)
	}
	s.logger.Info("banner created", zap.Int64("bannerID", id))
	return s.getBanner(ctx, id)
}

func (s *Service) getBanner(ctx context.Context, id int64) (*model.Banner, error) {
	b, err := s.repo.GetBannerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBannerNotFound) {
			return nil, errBannerNotFound
		}
		return nil, fmt.Errorf("get banner: %w", err)
	}
	return b, nil
}

// ListBanners returns all carousel entries in display order.
func (s *Service) ListBanners(ctx context.Context) ([]model.Banner, error) {
	banners, err := s.repo.ListBanners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list banners: %w", err)
	}
	return banners, nil
}

// UpdateBanner replaces the banner fields. When the image changes, the
// previous one is destroyed in the hosting service.
func (s *Service) UpdateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error) {
	old, err := s.getBanner(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	if b.Image.URL == "" || b.Image.PublicID == "" {
		b.Image = old.Image
	}
	if b.Align != model.AlignLeft && b.Align != model.AlignRight {
		b.Align = old.Align
	}

	updated, err := s.repo.UpdateBanner(ctx, b)
	if err != nil {
		if errors.Is(err, repository.ErrBannerNotFound) {
			return nil, errBannerNotFound
		}
		return nil, fmt.Errorf("update banner: %w", err)
	}

	if old.Image.PublicID != updated.Image.PublicID {
		s.destroyImage(ctx, old.Image.PublicID)
	}
	return updated, nil
}

// DeleteBanner removes a banner together with its hosted image.
func (s *Service) DeleteBanner(ctx context.Context, id int64) error {
	b, err := s.getBanner(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteBanner(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBannerNotFound) {
			return errBannerNotFound
		}
		return fmt.Errorf("delete banner: %w", err)
	}

	s.destroyImage(ctx, b.Image.PublicID)
	s.logger.Info("banner deleted", zap.Int64("bannerID", id))
	return nil
}
