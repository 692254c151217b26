package model

import "time"

type TokenBalance struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text"`
	DeviceID        string    `json:"device_id" gorm:"uniqueIndex;not null;size:255"`
	TokensRemaining int       `json:"tokens_remaining" gorm:"not null;default:0"`
	TokensTotal     int       `json:"tokens_total" gorm:"not null;default:0"` // lifetime purchased
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"not null"`
}

// FreeTrialUsage is a tombstone: its presence means the device spent its free trial.
// Rows are only ever inserted.
type FreeTrialUsage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	DeviceID  string    `json:"device_id" gorm:"uniqueIndex;not null;size:255"`
	UsedAt    time.Time `json:"used_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}
