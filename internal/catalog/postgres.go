package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the part of *pgxpool.Pool the source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectProducts = `SELECT product_id, name, price, category, variant_label,
       print_target, type, is_active
FROM products
ORDER BY sort_order, product_id`

// PostgresSource reads the menu from the products table.
type PostgresSource struct{ DB Querier }

func (s *PostgresSource) Load(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx, selectProducts)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		var p Product
		err := row.Scan(&p.ProductID, &p.Name, &p.Price, &p.Category, &p.VariantLabel,
			&p.PrintTarget, &p.Type, &p.IsActive)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return out, nil
}
