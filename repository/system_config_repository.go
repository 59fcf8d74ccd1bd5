package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sitesafe/safemap/models"
)

// KeyAdminPassword holds the bcrypt hash of the admin password.
const KeyAdminPassword = "admin_password"

// SystemConfigRepository stores runtime settings.
type SystemConfigRepository struct {
	db *gorm.DB
}

func NewSystemConfigRepository(db *gorm.DB) *SystemConfigRepository {
	return &SystemConfigRepository{db: db}
}

// Get returns the value for key or ErrNotFound.
func (r *SystemConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var row models.SystemConfig
	if err := r.db.WithContext(ctx).Where(&models.SystemConfig{Key: key}).First(&row).Error; err != nil {
		return "", notFound(err)
	}
	return row.Value, nil
}

// Set inserts or overwrites key.
func (r *SystemConfigRepository) Set(ctx context.Context, key, value string) error {
	row := models.SystemConfig{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
