package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/errors"
)

const productColumns = `id, name, price, stock, active, version`

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// Search returns one page of active products whose name contains search,
// ignoring case, ordered by name, together with the total number of matches.
func (r *MySQLRepository) Search(ctx context.Context, search string, offset, limit int) ([]domain.Product, int64, error) {
	pattern := likePattern(search)

	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE active = 1 AND LOWER(name) LIKE ?`,
		pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting products: %w", err)
	}

	if total == 0 || int64(offset) >= total {
		return []domain.Product{}, total, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE active = 1 AND LOWER(name) LIKE ?
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?`,
		pattern, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	products, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindTopSellers returns the active products with the most units sold.
func (r *MySQLRepository) FindTopSellers(ctx context.Context, limit int) ([]domain.ProductSales, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.price, p.stock, p.active, p.version,
		       COALESCE(SUM(oi.quantity), 0) AS total_sold
		FROM products p
		LEFT JOIN order_items oi ON oi.product_id = p.id
		WHERE p.active = 1
		GROUP BY p.id, p.name, p.price, p.stock, p.active, p.version
		ORDER BY total_sold DESC, p.id ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top sellers: %w", err)
	}
	defer rows.Close()

	sales := []domain.ProductSales{}
	for rows.Next() {
		var s domain.ProductSales
		p := &s.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active, &p.Version, &s.TotalSold); err != nil {
			return nil, fmt.Errorf("scanning top seller row: %w", err)
		}
		sales = append(sales, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating top seller rows: %w", err)
	}
	return sales, nil
}

// FindActiveByIDsForUpdate locks the active products among ids in ascending
// id order. Missing or inactive ids are simply absent from the result.
func (r *MySQLRepository) FindActiveByIDsForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id IN (%s) AND active = 1
		ORDER BY id ASC
		FOR UPDATE`,
		productColumns, strings.Join(placeholders, ", "),
	)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("locking products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

// DecrementStock takes quantity units from a locked product and bumps its version.
func (r *MySQLRepository) DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, version = version + 1 WHERE id = ? AND stock >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrementing stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewConflictError(fmt.Sprintf("product %d has less than %d units", productID, quantity))
	}

	return nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Active, &p.Version); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(search string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(search))) + "%"
}
