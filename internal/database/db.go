package database

import (
	"fmt"
	"strconv"

	"solar-inventory-backend/internal/config"
	"solar-inventory-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(cfg *config.Config, log *logrus.Logger) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	if sqlDB, derr := DB.DB(); derr == nil {
		if cfg.DBMaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
		}
		if cfg.DBMaxIdleConns >= 0 {
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
		}
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Info("database connected, migration complete")
}

// Migrate creates or updates every table and seeds the counter rows.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.ProductCategory{},
		&models.Product{},
		&models.AdminInventory{},
		&models.StockRequest{},
		&models.StockRequestItem{},
		&models.Address{},
		&models.Sale{},
		&models.SaleItem{},
		&models.StockReturn{},
		&models.InventoryTransaction{},
		&models.Sequence{},
		&models.AuditLog{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	// at most one super-admin row
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_super_admin ON users (role) WHERE role = 'super-admin'`).Error; err != nil {
		return fmt.Errorf("super-admin index: %w", err)
	}
	return seedRequestSequence(db)
}

// seedRequestSequence creates the stock request counter once, starting after
// the highest numeric id already stored so legacy ids are never reused.
func seedRequestSequence(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Sequence{}).Where("name = ?", models.SequenceStockRequest).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var ids []string
	if err := db.Model(&models.StockRequest{}).Pluck("id", &ids).Error; err != nil {
		return err
	}
	var maxID int64
	for _, id := range ids {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > maxID {
			maxID = n
		}
	}

	return db.Create(&models.Sequence{Name: models.SequenceStockRequest, Value: maxID}).Error
}
