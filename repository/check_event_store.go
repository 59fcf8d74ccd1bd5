package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/sitesafe/safemap/compliance"
	"github.com/sitesafe/safemap/models"
)

// CheckEventStore persists check events with gorm. It implements compliance.Store.
type CheckEventStore struct {
	db *gorm.DB
}

var _ compliance.Store = (*CheckEventStore)(nil)

// NewCheckEventStore creates a store over db.
func NewCheckEventStore(db *gorm.DB) *CheckEventStore {
	return &CheckEventStore{db: db}
}

func (s *CheckEventStore) FindLive(ctx context.Context, key compliance.Key) (compliance.CheckEvent, error) {
	var row models.CheckEvent
	err := s.db.WithContext(ctx).
		Where("site_id = ? AND item_name = ? AND occurred_on = ? AND live_slot IS NOT NULL", key.SiteID, key.ItemName, key.Day).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return compliance.CheckEvent{}, compliance.ErrNotFound
		}
		return compliance.CheckEvent{}, &compliance.StorageError{Op: "find", Err: err}
	}
	return row.Domain(), nil
}

func (s *CheckEventStore) Create(ctx context.Context, ev compliance.CheckEvent) (compliance.CheckEvent, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	row := models.NewLiveCheckEvent(ev)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicateKey(err) {
			return compliance.CheckEvent{}, compliance.ErrDuplicateLive
		}
		return compliance.CheckEvent{}, &compliance.StorageError{Op: "create", Err: err}
	}
	return row.Domain(), nil
}

// Tombstone only touches rows that are still live, so a concurrent tombstone leaves zero rows affected.
func (s *CheckEventStore) Tombstone(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.CheckEvent{}).
		Where("id = ? AND live_slot IS NOT NULL", id).
		Updates(map[string]interface{}{
			"state":      string(compliance.StateTombstoned),
			"live_slot":  nil,
			"deleted_at": at,
		})
	if res.Error != nil {
		return &compliance.StorageError{Op: "tombstone", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return compliance.ErrNotFound
	}
	return nil
}

func (s *CheckEventStore) ListLive(ctx context.Context, filter compliance.Filter) ([]compliance.CheckEvent, error) {
	if len(filter.SiteIDs) == 0 {
		return nil, nil
	}
	q := s.db.WithContext(ctx).Where("site_id IN ? AND live_slot IS NOT NULL", filter.SiteIDs)
	if filter.From != nil {
		q = q.Where("occurred_on >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("occurred_on <= ?", *filter.To)
	}
	var rows []models.CheckEvent
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, &compliance.StorageError{Op: "list", Err: err}
	}
	out := make([]compliance.CheckEvent, len(rows))
	for i, r := range rows {
		out[i] = r.Domain()
	}
	return out, nil
}

// CountLive counts live events, optionally restricted to one day.
func (s *CheckEventStore) CountLive(ctx context.Context, day *compliance.Day) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.CheckEvent{}).Where("live_slot IS NOT NULL")
	if day != nil {
		q = q.Where("occurred_on = ?", *day)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// History returns every event of a site including tombstoned ones, oldest first.
func (s *CheckEventStore) History(ctx context.Context, siteID uint) ([]compliance.CheckEvent, error) {
	var rows []models.CheckEvent
	if err := s.db.WithContext(ctx).Where("site_id = ?", siteID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]compliance.CheckEvent, len(rows))
	for i, r := range rows {
		out[i] = r.Domain()
	}
	return out, nil
}
