package models

import (
	"time"

	"github.com/sitesafe/safemap/compliance"
)

// CheckEvent stores one "item done on day" record. Rows are never hard-deleted: unchecking
// clears LiveSlot and stamps DeletedAt. The unique index admits one live row per
// (site, item, day) because NULL slots never collide.
type CheckEvent struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SiteID     uint           `gorm:"not null;uniqueIndex:uidx_check_live,priority:1;index:idx_check_site_day,priority:1" json:"siteId"`
	ContractID uint           `gorm:"not null;index" json:"contractId"`
	ItemName   string         `gorm:"size:100;not null;uniqueIndex:uidx_check_live,priority:2" json:"name"`
	OccurredOn compliance.Day `gorm:"type:char(8);not null;uniqueIndex:uidx_check_live,priority:3;index:idx_check_site_day,priority:2" json:"date"`
	LiveSlot   *int8          `gorm:"uniqueIndex:uidx_check_live,priority:4" json:"-"`
	State      string         `gorm:"size:16;not null" json:"state"`
	DeletedAt  *time.Time     `gorm:"index" json:"deletedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// LiveSlotValue is the slot value shared by every live row.
const LiveSlotValue int8 = 1

// NewLiveCheckEvent converts a domain event into a live row.
func NewLiveCheckEvent(ev compliance.CheckEvent) CheckEvent {
	slot := LiveSlotValue
	return CheckEvent{
		SiteID:     ev.SiteID,
		ContractID: ev.ContractID,
		ItemName:   ev.ItemName,
		OccurredOn: ev.OccurredOn,
		LiveSlot:   &slot,
		State:      string(compliance.StateLive),
		CreatedAt:  ev.CreatedAt,
	}
}

// Domain converts the row back to the compliance representation.
func (c CheckEvent) Domain() compliance.CheckEvent {
	return compliance.CheckEvent{
		ID:         c.ID,
		SiteID:     c.SiteID,
		ContractID: c.ContractID,
		ItemName:   c.ItemName,
		OccurredOn: c.OccurredOn,
		State:      compliance.EventState(c.State),
		DeletedAt:  c.DeletedAt,
		CreatedAt:  c.CreatedAt,
	}
}
