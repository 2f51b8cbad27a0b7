package models

import "time"

type BlockedDevice struct {
	DeviceID  string    `gorm:"primaryKey;type:varchar(128)" json:"deviceId"`
	Reason    string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
