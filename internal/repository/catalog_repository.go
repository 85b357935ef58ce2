package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akosarev/storefront/internal/domain"
)

func (r *Repository) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	query := `SELECT id, name, price, stock FROM products WHERE id = $1`

	var product domain.Product
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}

	return &product, nil
}
