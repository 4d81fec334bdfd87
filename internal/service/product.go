package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/carmonterr/tejon/internal/apperr"
	"github.com/carmonterr/tejon/internal/model"
	"github.com/carmonterr/tejon/internal/repository"
)

func validateProduct(p *model.Product) []apperr.FieldError {
	var fields []apperr.FieldError
	if strings.TrimSpace(p.Name) == "" {
		fields = append(fields, apperr.FieldError{Field: "nombre", Message: "El nombre es requerido"})
	}
	if p.PriceCents <= 0 {
		fields = append(fields, apperr.FieldError{Field: "precio", Message: "El precio debe ser mayor que cero"})
	}
	if !p.Category.Valid() {
		fields = append(fields, apperr.FieldError{Field: "categoria", Message: "Categoría inválida"})
	}
	for _, size := range p.Sizes {
		if size < model.SizeMin || size > model.SizeMax {
			fields = append(fields, apperr.FieldError{
				Field:   "tallasDisponibles",
				Message: fmt.Sprintf("Las tallas deben estar entre %d y %d", model.SizeMin, model.SizeMax),
			})
			break
		}
	}
	if p.Stock < 0 {
		fields = append(fields, apperr.FieldError{Field: "inventario", Message: "El inventario no puede ser negativo"})
	}
	if len(p.Images) == 0 {
		fields = append(fields, apperr.FieldError{Field: "imagenes", Message: "Se requiere al menos una imagen"})
	}
	return fields
}

// CreateProduct validates and stores a catalog entry.
func (s *Service) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if fields := validateProduct(p); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	id, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product created", zap.Int64("productID", id))
	return s.GetProduct(ctx, id)
}

// GetProduct returns one catalog entry.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// UpdateProduct validates and replaces the editable catalog fields. Images
// dropped by the edit are destroyed in the hosting service.
func (s *Service) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	if fields := validateProduct(p); len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	old, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProduct(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	kept := make(map[string]bool, len(updated.Images))
	for _, img := range updated.Images {
		kept[img.PublicID] = true
	}
	for _, img := range old.Images {
		if !kept[img.PublicID] {
			s.destroyImage(ctx, img.PublicID)
		}
	}

	return updated, nil
}

// DeleteProduct removes a product together with its hosted images and the
// images of its reviews.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	reviews, err := s.repo.ListReviews(ctx, id)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return errProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	for _, img := range p.Images {
		s.destroyImage(ctx, img.PublicID)
	}
	for _, rev := range reviews {
		if rev.Image != nil {
			s.destroyImage(ctx, rev.Image.PublicID)
		}
	}

	s.logger.Info("product deleted", zap.Int64("productID", id))
	return nil
}

// ListProducts returns one catalog page plus the total match count.
func (s *Service) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	products, total, err := s.repo.ListProducts(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// recalcRating recomputes the review aggregate from the full review list. An
// empty list yields rating 0.
func recalcRating(reviews []model.Review) (float64, int) {
	n := len(reviews)
	denom := n
	if denom == 0 {
		denom = 1
	}
	var sum int
	for _, rev := range reviews {
		sum += rev.Rating
	}
	return float64(sum) / float64(denom), n
}

// AddReview stores a review from a verified purchaser and recomputes the
// product rating.
func (s *Service) AddReview(ctx context.Context, user *model.User, productID int64, rating int, comment string, image *model.Image) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation([]apperr.FieldError{{
			Field: "calificacion", Message: "La calificación debe estar entre 1 y 5",
		}})
	}

	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	purchased, err := s.repo.HasPaidOrderWithProduct(ctx, user.ID, productID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return nil, errNotEligibleToReview
	}

	rev := &model.Review{
		ProductID:  productID,
		UserID:     user.ID,
		AuthorName: user.Name,
		Rating:     rating,
		Comment:    comment,
		Image:      image,
	}
	id, err := s.repo.InsertReview(ctx, rev)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyReviewed) {
			return nil, errAlreadyReviewed
		}
		return nil, fmt.Errorf("insert review: %w", err)
	}
	rev.ID = id

	if err := s.refreshRating(ctx, productID); err != nil {
		return nil, err
	}
	return rev, nil
}

// DeleteReview removes a review, destroys its hosted image and recomputes the
// product rating.
func (s *Service) DeleteReview(ctx context.Context, productID, reviewID int64) error {
	rev, err := s.repo.DeleteReview(ctx, productID, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrReviewNotFound) {
			return errReviewNotFound
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if rev.Image != nil {
		s.destroyImage(ctx, rev.Image.PublicID)
	}
	return s.refreshRating(ctx, productID)
}

// ListReviews returns all reviews of a product.
func (s *Service) ListReviews(ctx context.Context, productID int64) ([]model.Review, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// CanReview reports whether the user bought the product and has not yet
// reviewed it.
func (s *Service) CanReview(ctx context.Context, userID, productID int64) (bool, error) {
	purchased, err := s.repo.HasPaidOrderWithProduct(ctx, userID, productID)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return false, nil
	}

	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return false, fmt.Errorf("list reviews: %w", err)
	}
	for _, rev := range reviews {
		if rev.UserID == userID {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) refreshRating(ctx context.Context, productID int64) error {
	reviews, err := s.repo.ListReviews(ctx, productID)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}
	rating, n := recalcRating(reviews)
	if err := s.repo.SetProductRating(ctx, productID, rating, n); err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return nil
}
