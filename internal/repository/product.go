package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carmonterr/tejon/internal/model"
)

// ProductFilter describes the catalog listing parameters.
type ProductFilter struct {
	Search   string
	Category model.Category
	Sort     string // newest | bestseller | price-asc | price-desc
	Limit    int
	Offset   int
}

const productColumns = `id, name, price_cents, description, images, rating, num_ratings,
	category, sizes, seller, stock, sold, created_by, created_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	var images []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.PriceCents, &p.Description, &images, &p.Rating, &p.NumRatings,
		&p.Category, &p.Sizes, &p.Seller, &p.Stock, &p.Sold, &p.CreatedBy, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("decode product images: %w", err)
	}
	return &p, nil
}

// CreateProduct inserts a catalog entry.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) (int64, error) {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return 0, fmt.Errorf("encode product images: %w", err)
	}

	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO products (name, price_cents, description, images, category, sizes, seller, stock, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.Name, p.PriceCents, p.Description, images, p.Category, p.Sizes, p.Seller, p.Stock, p.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// GetProductByID returns the product with the given id.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// UpdateProduct replaces the editable catalog fields.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return nil, fmt.Errorf("encode product images: %w", err)
	}

	return scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, price_cents = $3, description = $4, images = $5,
		     category = $6, sizes = $7, seller = $8, stock = $9
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID, p.Name, p.PriceCents, p.Description, images, p.Category, p.Sizes, p.Seller, p.Stock))
}

// DeleteProduct removes a product and, via cascade, its reviews.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListProducts returns one catalog page plus the total match count.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	where := `($1 = '' OR name ILIKE '%' || $1 || '%') AND ($2 = '' OR category = $2)`

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE `+where, f.Search, string(f.Category),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order := "created_at DESC"
	switch f.Sort {
	case "bestseller":
		order = "sold DESC"
	case "price-asc":
		order = "price_cents ASC"
	case "price-desc":
		order = "price_cents DESC"
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE `+where+`
		 ORDER BY `+order+`
		 LIMIT $3 OFFSET $4`,
		f.Search, string(f.Category), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return products, total, nil
}

// CountProducts returns the catalog total and how many entries are out of
// stock, for the admin dashboard.
func (r *PostgresRepository) CountProducts(ctx context.Context) (total, outOfStock int64, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE stock = 0) FROM products`,
	).Scan(&total, &outOfStock)
	if err != nil {
		return 0, 0, fmt.Errorf("count products: %w", err)
	}
	return total, outOfStock, nil
}

func scanReview(row pgx.Row) (*model.Review, error) {
	var rev model.Review
	var image []byte
	err := row.Scan(&rev.ID, &rev.ProductID, &rev.UserID, &rev.AuthorName,
		&rev.Rating, &rev.Comment, &image, &rev.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	if image != nil {
		rev.Image = &model.Image{}
		if err := json.Unmarshal(image, rev.Image); err != nil {
			return nil, fmt.Errorf("decode review image: %w", err)
		}
	}
	return &rev, nil
}

const reviewColumns = `id, product_id, user_id, author_name, rating, comment, image, created_at`

// InsertReview adds one review. The unique constraint rejects a second review
// from the same user.
func (r *PostgresRepository) InsertReview(ctx context.Context, rev *model.Review) (int64, error) {
	var image []byte
	if rev.Image != nil {
		var err error
		if image, err = json.Marshal(rev.Image); err != nil {
			return 0, fmt.Errorf("encode review image: %w", err)
		}
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO product_reviews (product_id, user_id, author_name, rating, comment, image)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		rev.ProductID, rev.UserID, rev.AuthorName, rev.Rating, rev.Comment, image,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrAlreadyReviewed
		}
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return id, nil
}

// ListReviews returns all reviews of a product, newest first.
func (r *PostgresRepository) ListReviews(ctx context.Context, productID int64) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM product_reviews
		 WHERE product_id = $1
		 ORDER BY created_at DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// DeleteReview removes one review and returns it, so the caller can clean up
// its hosted image.
func (r *PostgresRepository) DeleteReview(ctx context.Context, productID, reviewID int64) (*model.Review, error) {
	return scanReview(r.pool.QueryRow(ctx,
		`DELETE FROM product_reviews
		 WHERE id = $1 AND product_id = $2
		 RETURNING `+reviewColumns,
		reviewID, productID))
}

// SetProductRating stores the recomputed review aggregate.
func (r *PostgresRepository) SetProductRating(ctx context.Context, productID int64, rating float64, numRatings int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE products SET rating = $2, num_ratings = $3 WHERE id = $1`,
		productID, rating, numRatings)
	if err != nil {
		return fmt.Errorf("set product rating: %w", err)
	}
	return nil
}

// HasPaidOrderWithProduct reports whether the user has at least one paid
// order containing the product, the review eligibility check.
func (r *PostgresRepository) HasPaidOrderWithProduct(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1 FROM orders o
		    JOIN order_items i ON i.order_id = o.id
		    WHERE o.user_id = $1 AND i.product_id = $2 AND o.is_paid
		 )`,
		userID, productID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}
