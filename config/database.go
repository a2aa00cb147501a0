package config

import (
	"fmt"

	"github.com/Govind-619/FarmMart/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the postgres connection and migrates the schema
func InitDB(cfg DatabaseConfig) error {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	return nil
}

// Migrate creates or updates every table and seeds the role rows
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}
	for _, name := range []string{models.RoleFarmer, models.RoleBuyer, models.RoleAdmin} {
		role := models.Role{RoleName: name}
		if err := db.Where(models.Role{RoleName: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %v", name, err)
		}
	}
	return nil
}
