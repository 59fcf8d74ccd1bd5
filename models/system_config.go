package models

import "time"

// SystemConfig is a key/value row for settings managed at runtime, such as the admin password hash.
type SystemConfig struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// All lists every model the schema migration manages.
func All() []interface{} {
	return []interface{}{&Contract{}, &Site{}, &CheckEvent{}, &SystemConfig{}}
}
