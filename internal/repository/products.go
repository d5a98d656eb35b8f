package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/shopspring/decimal"
)

const productColumns = `id, category_id, name, slug, description, price, stock_quantity, is_active, created_at, updated_at`

type ProductFilter struct {
	CategorySlug string
	// Query matches name or description, case-insensitively.
	Query string
}

// ListProducts returns active products, newest first.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error) {
	query := `SELECT p.id, p.category_id, p.name, p.slug, p.description, p.price, p.stock_quantity,
	                 p.is_active, p.created_at, p.updated_at
	          FROM products p
	          JOIN categories c ON c.id = p.category_id
	          WHERE p.is_active = ?`
	args := []any{true}

	if filter.CategorySlug != "" {
		query += ` AND c.slug = ?`
		args = append(args, filter.CategorySlug)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query += ` AND (LOWER(p.name) LIKE ? OR LOWER(p.description) LIKE ?)`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC`

	products := []domain.Product{}
	if err := r.db.SelectContext(ctx, &products, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	var p domain.Product
	err := r.db.GetContext(ctx, &p, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return &p, nil
}

// GetProductBySlug only resolves active products.
func (r *Repository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = ? AND is_active = ?`

	var p domain.Product
	err := r.db.GetContext(ctx, &p, r.db.Rebind(query), slug, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by slug: %w", err)
	}
	return &p, nil
}

// GetProducts returns the products that exist among ids, in id order.
func (r *Repository) GetProducts(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	query, args, err := r.in(`SELECT `+productColumns+` FROM products WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}

	products := []domain.Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	return products, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name, slug FROM categories ORDER BY name`); err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	query := r.db.Rebind(`INSERT INTO categories (name, slug) VALUES (?, ?) RETURNING id`)
	if err := r.db.QueryRowxContext(ctx, query, c.Name, c.Slug).Scan(&c.ID); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO products (category_id, name, slug, description, price, stock_quantity, is_active, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := r.db.QueryRowxContext(ctx, query,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.StockQuantity,
		p.IsActive,
		now,
		now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// UpdateProduct changes the catalog-owned fields of a product. Stock is
// left to checkout.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, price decimal.Decimal, active bool) error {
	query := r.db.Rebind(`UPDATE products SET price = ?, is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, price, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return expectOneRow(res, ErrProductNotFound)
}

// RestockProduct sets the stock level. Used by catalog administration.
func (r *Repository) RestockProduct(ctx context.Context, id int64, quantity int) error {
	query := r.db.Rebind(`UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, quantity, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("restock product: %w", err)
	}
	return expectOneRow(res, ErrProductNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
