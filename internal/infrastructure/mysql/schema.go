package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables in dependency order.
var Tables = []string{"products", "orders", "order_items"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		stock INT NOT NULL,
		active TINYINT(1) NOT NULL DEFAULT 1,
		version INT NOT NULL DEFAULT 0,
		INDEX idx_products_name (name)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		created_at DATETIME(6) NOT NULL,
		total DECIMAL(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(12,2) NOT NULL,
		line_total DECIMAL(12,2) NOT NULL,
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id),
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id)
	)`,
}

// EnsureSchema creates the storefront tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table %s: %w", Tables[i], err)
		}
	}
	return nil
}
