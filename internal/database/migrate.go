package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-multigraders/internal/models"
)

// Migrate creates or updates the grading schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.GradingDefinition{},
		&models.GradingItem{},
		&models.GradeRecord{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
