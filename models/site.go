package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/sitesafe/safemap/compliance"
)

// Site is a physical location inside a contract with its daily safety checklist.
type Site struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ContractID uint           `gorm:"index;not null" json:"contractId"`
	Name       string         `gorm:"size:200;not null" json:"name"`
	Address    string         `gorm:"size:500" json:"address"`
	Latitude   float64        `json:"latitude"`
	Longitude  float64        `json:"longitude"`
	Checklist  []string       `gorm:"serializer:json;type:text" json:"checklist"`
	StartDate  compliance.Day `gorm:"type:char(8);not null" json:"startDate"`
	EndDate    compliance.Day `gorm:"type:char(8);not null" json:"endDate"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeSave stores an empty list instead of JSON null.
func (s *Site) BeforeSave(tx *gorm.DB) error {
	if s.Checklist == nil {
		s.Checklist = []string{}
	}
	return nil
}

// ComplianceSite projects the fields the completeness predicate reads.
func (s Site) ComplianceSite() compliance.Site {
	return compliance.Site{
		ID:        s.ID,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Checklist: s.Checklist,
	}
}

// HasLocation reports whether the site was geocoded.
func (s Site) HasLocation() bool {
	return s.Latitude != 0 || s.Longitude != 0
}
