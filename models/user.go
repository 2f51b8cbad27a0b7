package models

import "time"

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleChef    Role = "CHEF"
	RoleStaff   Role = "STAFF"
	RoleCounter Role = "COUNTER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleChef, RoleStaff, RoleCounter:
		return true
	}
	return false
}

// User is a staff account. SessionVersion is embedded in every issued token
// and bumped to force a logout.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	Role           Role      `gorm:"type:varchar(20);not null" json:"role"`
	DisplayName    string    `gorm:"type:varchar(255)" json:"displayName"`
	SessionVersion int       `gorm:"not null;default:1" json:"sessionVersion"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
