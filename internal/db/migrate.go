package db

import (
	"marketplace/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Models lists every table the service owns, in migration order
func Models() []any {
	return []any{&domain.User{}, &domain.Product{}, &domain.Order{}, &domain.StockMovement{}}
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return err // Caller decides whether this is fatal
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
