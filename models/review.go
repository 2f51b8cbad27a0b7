package models

import "time"

// Review rows are written by the menu/review surface, which lives outside
// this service; the table is migrated here so both share one schema.
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   *uint     `gorm:"index" json:"orderId"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
