package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/lib/pq"
)

const productColumns = "id, name, description, price, category, image, rating, reviews_count, stock, tags"

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// ListProducts searches the catalog. An empty or "All" category is unfiltered; a
// non-empty query matches name or any tag, case-insensitively.
func (s *Store) ListProducts(ctx context.Context, query, category string, limit int) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	if category != "" && category != models.CategoryAll {
		args = append(args, category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if q := strings.TrimSpace(query); q != "" {
		args = append(args, likePattern(q))
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $%d))", n, n))
	}

	stmt := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY position LIMIT $%d", len(args))

	products := []models.Product{}
	if err := s.db.SelectContext(ctx, &products, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ReplaceCatalog wipes the catalog and bulk-loads products in one transaction
func (s *Store) ReplaceCatalog(ctx context.Context, products []models.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("products",
		"id", "position", "name", "description", "price", "category", "image", "rating", "reviews_count", "stock", "tags"))
	if err != nil {
		return fmt.Errorf("failed to prepare copy: %w", err)
	}
	for i, p := range products {
		tags := p.Tags
		if tags == nil {
			tags = pq.StringArray{}
		}
		if _, err := stmt.ExecContext(ctx, p.ID, i, p.Name, p.Description, p.Price, p.Category, p.Image,
			p.Rating, p.ReviewsCount, p.Stock, tags); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy product %s: %w", p.ID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close copy: %w", err)
	}

	return tx.Commit()
}

// CountProducts returns the catalog size
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products")
	return n, err
}
