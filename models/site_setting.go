package models

import "time"

const GlobalSettingsKey = "global"

type SiteSetting struct {
	Key              string    `gorm:"primaryKey;type:varchar(50)" json:"key"`
	CafeName         string    `gorm:"type:varchar(255)" json:"cafeName"`
	Tagline          string    `gorm:"type:varchar(255)" json:"tagline"`
	LogoURL          string    `gorm:"type:varchar(512)" json:"logoUrl"`
	OpeningHours     string    `gorm:"type:varchar(255)" json:"openingHours"`
	LoyaltyPointRate float64   `gorm:"not null;default:0" json:"loyaltyPointRate"`
	DailySpecial     string    `gorm:"type:text" json:"dailySpecial"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
