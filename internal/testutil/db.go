// Package testutil opens throwaway databases and seeds fixtures for the
// service tests.
package testutil

import (
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"solar-inventory-backend/internal/database"
	"solar-inventory-backend/internal/models"
	"solar-inventory-backend/internal/stock"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated SQLite file in the test's temp dir. A single
// connection serializes transactions the way row locks do on Postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "inventory.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Logger discards output.
func Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func SeedUser(t testing.TB, db *gorm.DB, name string, role models.UserRole, owner *uint) models.User {
	t.Helper()
	u := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "x",
		Role:         role,
		AdminID:      owner,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return u
}

func SeedProduct(t testing.TB, db *gorm.DB, name string, central int, price string) models.Product {
	t.Helper()
	p := models.Product{
		Name:      name,
		Model:     name + "-M",
		UnitPrice: decimal.RequireFromString(price),
		GSTRate:   decimal.NewFromInt(18),
		Quantity:  central,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func SeedPool(t testing.TB, db *gorm.DB, ownerID, productID uint, qty int) {
	t.Helper()
	row := models.AdminInventory{AdminID: ownerID, ProductID: productID, Quantity: qty}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed pool %d/%d: %v", ownerID, productID, err)
	}
}

func Actor(u models.User) stock.Actor {
	return stock.Actor{ID: u.ID, Name: u.Name, Role: u.Role, AdminID: u.AdminID}
}

func CentralQty(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	if err := db.First(&p, productID).Error; err != nil {
		t.Fatalf("load product %d: %v", productID, err)
	}
	return p.Quantity
}

// PoolQty is 0 when the owner holds no row; it fails the test if a row
// exists with a non-positive quantity.
func PoolQty(t testing.TB, db *gorm.DB, ownerID, productID uint) int {
	t.Helper()
	var rows []models.AdminInventory
	if err := db.Where("admin_id = ? AND product_id = ?", ownerID, productID).Find(&rows).Error; err != nil {
		t.Fatalf("load pool: %v", err)
	}
	if len(rows) == 0 {
		return 0
	}
	if rows[0].Quantity <= 0 {
		t.Fatalf("pool row %d/%d kept with quantity %d", ownerID, productID, rows[0].Quantity)
	}
	return rows[0].Quantity
}

func CountTransactions(t testing.TB, db *gorm.DB, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.InventoryTransaction{})
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	return n
}
