package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/sitesafe/safemap/compliance"
)

// Contract is a work project that groups sites. Deleting one only soft-deletes the row.
type Contract struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `gorm:"size:200;not null" json:"title"`
	StartDate compliance.Day `gorm:"type:char(8);not null" json:"startDate"`
	EndDate   compliance.Day `gorm:"type:char(8);not null" json:"endDate"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
