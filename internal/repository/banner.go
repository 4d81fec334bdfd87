package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carmonterr/tejon/internal/model"
)

const bannerColumns = `id, title, description, image, link, display_order, align, created_at`

func scanBanner(row pgx.Row) (*model.Banner, error) {
	var b model.Banner
	var image []byte
	err := row.Scan(&b.ID, &b.Title, &b.Description, &image, &b.Link, &b.Order, &b.Align, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBannerNotFound
		}
		return nil, fmt.Errorf("scan banner: %w", err)
	}
	if err := json.Unmarshal(image, &b.Image); err != nil {
		return nil, fmt.Errorf("decode banner image: %w", err)
	}
	return &b, nil
}

// CreateBanner inserts a carousel entry.
func (r *PostgresRepository) CreateBanner(ctx context.Context, b *model.Banner) (int64, error) {
	image, err := json.Marshal(b.Image)
	if err != nil {
		return 0, fmt.Errorf("encode banner image: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO banners (title, description, image, link, display_order, align)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		b.Title, b.Description, image, b.Link, b.Order, string(b.Align),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create banner: %w", err)
	}
	return id, nil
}

// GetBannerByID returns one banner.
func (r *PostgresRepository) GetBannerByID(ctx context.Context, id int64) (*model.Banner, error) {
	return scanBanner(r.pool.QueryRow(ctx,
		`SELECT `+bannerColumns+` FROM banners WHERE id = $1`, id))
}

// ListBanners returns all banners in carousel order.
func (r *PostgresRepository) ListBanners(ctx context.Context) ([]model.Banner, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+bannerColumns+` FROM banners
		 ORDER BY display_order ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select banners: %w", err)
	}
	defer rows.Close()

	var banners []model.Banner
	for rows.Next() {
		b, err := scanBanner(rows)
		if err != nil {
			return nil, err
		}
		banners = append(banners, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return banners, nil
}

// UpdateBanner replaces the editable banner fields.
func (r *PostgresRepository) UpdateBanner(ctx context.Context, b *model.Banner) (*model.Banner, error) {
	image, err := json.Marshal(b.Image)
	if err != nil {
		return nil, fmt.Errorf("encode banner image: %w", err)
	}

	return scanBanner(r.pool.QueryRow(ctx,
		`UPDATE banners
		 SET title = $2, description = $3, image = $4, link = $5, display_order = $6, align = $7
		 WHERE id = $1
		 RETURNING `+bannerColumns,
		b.ID, b.Title, b.Description, image, b.Link, b.Order, string(b.Align)))
}

// DeleteBanner removes a banner.
func (r *PostgresRepository) DeleteBanner(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM banners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete banner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBannerNotFound
	}
	return nil
}
