package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/internal/infrastructure/mysql"
)

// SetupTestDB connects to the MySQL database named by TEST_DB_DSN, or to
// storefront_test on localhost, and skips the test when it is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/storefront_test?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// SetupTestTables creates the storefront schema.
func SetupTestTables(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := mysql.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
}

// CleanupTestDB empties every table and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := slices.Clone(mysql.Tables)
	slices.Reverse(tables)
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// InsertProduct stores an active product and returns its id.
func InsertProduct(t *testing.T, db *sql.DB, name, price string, stock int) int64 {
	t.Helper()

	result, err := db.Exec(
		`INSERT INTO products (name, price, stock, active, version) VALUES (?, ?, ?, 1, 0)`,
		name, decimal.RequireFromString(price), stock,
	)
	if err != nil {
		t.Fatalf("inserting product %s: %v", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("reading product id: %v", err)
	}
	return id
}
