package models

import "time"

// DeviceStat counts what a customer device has done across visits.
type DeviceStat struct {
	DeviceID     string    `gorm:"primaryKey;type:varchar(128)" json:"deviceId"`
	SessionCount int       `gorm:"not null;default:0" json:"sessionCount"`
	OrderCount   int       `gorm:"not null;default:0" json:"orderCount"`
	LastTableID  uint      `json:"lastTableId"`
	FirstSeenAt  time.Time `gorm:"not null" json:"firstSeenAt"`
	LastSeenAt   time.Time `gorm:"not null" json:"lastSeenAt"`
}
