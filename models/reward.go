package models

import "time"

// Reward accumulates loyalty points per customer device.
type Reward struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DeviceID  string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"deviceId"`
	Points    float64   `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
