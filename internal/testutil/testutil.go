// Package testutil provides an in-memory store and seed helpers for tests.
package testutil

import (
	"context"
	"io"
	"testing"

	"marketplace/internal/db"
	"marketplace/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB opens a private in-memory SQLite database with the full schema. The
// pool holds a single connection so every goroutine sees the same database
// and writers queue instead of failing with SQLITE_BUSY.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(db.Models()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Logger returns a silent logger and a hook recording every entry.
func Logger() (*logrus.Logger, *test.Hook) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	hook := test.NewLocal(log)
	return log, hook
}

func SeedUser(tb testing.TB, gdb *gorm.DB, email string, role domain.Role, status domain.UserStatus) *domain.User {
	tb.Helper()
	u := &domain.User{Email: email, Name: "user " + email, Role: role, Status: status}
	if err := gdb.WithContext(context.Background()).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedProduct(tb testing.TB, gdb *gorm.DB, id, sellerEmail string, price string, quantity int) *domain.Product {
	tb.Helper()
	p := &domain.Product{
		ID:       id,
		Name:     "Monstera " + id,
		Category: "Indoor",
		Image:    "https://img.example/" + id + ".jpg",
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Seller:   domain.Seller{Name: "seller", Email: sellerEmail},
	}
	if err := gdb.WithContext(context.Background()).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedOrder(tb testing.TB, gdb *gorm.DB, productID, customerEmail, sellerEmail string, quantity int, status domain.OrderStatus) *domain.Order {
	tb.Helper()
	o := &domain.Order{
		ProductID: productID,
		Customer:  domain.Customer{Name: "customer", Email: customerEmail},
		Seller:    sellerEmail,
		Price:     decimal.NewFromInt(int64(quantity) * 10),
		Quantity:  quantity,
		Address:   "1 Garden Way",
		Status:    status,
	}
	if err := gdb.WithContext(context.Background()).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	return o
}

// Quantity reads a product's stock straight from the store.
func Quantity(tb testing.TB, gdb *gorm.DB, productID string) int {
	tb.Helper()
	var p domain.Product
	if err := gdb.First(&p, "id = ?", productID).Error; err != nil {
		tb.Fatalf("load product %s: %v", productID, err)
	}
	return p.Quantity
}
