package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sitesafe/safemap/models"
)

// SiteRepository reads and writes sites. Lookups and listings only see sites whose contract
// is still live; ListByContract is the exception.
type SiteRepository struct {
	db *gorm.DB
}

// NewSiteRepository creates a repository over db.
func NewSiteRepository(db *gorm.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// ListByContract returns the sites of a contract in creation order.
func (r *SiteRepository) ListByContract(ctx context.Context, contractID uint) ([]models.Site, error) {
	var out []models.Site
	err := r.db.WithContext(ctx).Where("contract_id = ?", contractID).Order("id").Find(&out).Error
	return out, err
}

// liveContracts restricts a site query to contracts that have not been soft-deleted.
func (r *SiteRepository) liveContracts(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("contract_id IN (?)", r.db.WithContext(ctx).Model(&models.Contract{}).Select("id"))
}

// ListActive returns every site whose contract has not been deleted.
func (r *SiteRepository) ListActive(ctx context.Context) ([]models.Site, error) {
	var out []models.Site
	err := r.liveContracts(ctx).Order("id").Find(&out).Error
	return out, err
}

// Get loads a site. A site whose contract was deleted is reported as ErrNotFound.
func (r *SiteRepository) Get(ctx context.Context, id uint) (models.Site, error) {
	var s models.Site
	if err := r.liveContracts(ctx).First(&s, id).Error; err != nil {
		return models.Site{}, notFound(err)
	}
	return s, nil
}

// GetMany loads the sites with the given ids. Missing or deleted ids, and sites of a deleted
// contract, are simply absent.
func (r *SiteRepository) GetMany(ctx context.Context, ids []uint) ([]models.Site, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []models.Site
	err := r.liveContracts(ctx).Where("id IN ?", ids).Order("id").Find(&out).Error
	return out, err
}

func (r *SiteRepository) Create(ctx context.Context, s *models.Site) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Update saves the descriptive fields and dates of a site. The checklist has its own method.
func (r *SiteRepository) Update(ctx context.Context, s *models.Site) error {
	res := r.db.WithContext(ctx).Model(&models.Site{}).Where("id = ?", s.ID).
		Select("name", "address", "latitude", "longitude", "start_date", "end_date", "updated_at").
		Updates(s)
	return res.Error
}

// UpdateChecklist replaces the item list of a site.
func (r *SiteRepository) UpdateChecklist(ctx context.Context, id uint, items []string) error {
	if items == nil {
		items = []string{}
	}
	site := models.Site{ID: id, Checklist: items}
	res := r.db.WithContext(ctx).Model(&site).Where("id = ?", id).
		Select("checklist", "updated_at").
		Updates(&site)
	return res.Error
}

// Delete soft-deletes the site and keeps its check history.
func (r *SiteRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Site{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Site{}).Count(&n).Error
	return n, err
}
