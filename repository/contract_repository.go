package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sitesafe/safemap/models"
)

// ContractRepository reads and writes contracts. Soft-deleted rows are invisible to every method.
type ContractRepository struct {
	db *gorm.DB
}

// NewContractRepository creates a repository over db.
func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// List returns all contracts, newest first.
func (r *ContractRepository) List(ctx context.Context) ([]models.Contract, error) {
	var out []models.Contract
	err := r.db.WithContext(ctx).Order("id DESC").Find(&out).Error
	return out, err
}

func (r *ContractRepository) Get(ctx context.Context, id uint) (models.Contract, error) {
	var c models.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return models.Contract{}, notFound(err)
	}
	return c, nil
}

func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

// Update saves title and dates of an existing contract.
func (r *ContractRepository) Update(ctx context.Context, c *models.Contract) error {
	res := r.db.WithContext(ctx).Model(&models.Contract{}).Where("id = ?", c.ID).
		Select("title", "start_date", "end_date", "updated_at").
		Updates(c)
	return res.Error
}

// Delete soft-deletes the contract. Its sites and check events are left untouched.
func (r *ContractRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Contract{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ContractRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Contract{}).Count(&n).Error
	return n, err
}
