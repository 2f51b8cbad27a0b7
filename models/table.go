package models

import "time"

type TableStatus string

const (
	TableOpen   TableStatus = "OPEN"
	TableClosed TableStatus = "CLOSED"
)

// Table is the source of truth for a dining session. DeviceID is unique so
// the store itself refuses to seat one device at two tables; NULLs are not
// compared by the index.
type Table struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	Number           string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"number"`
	Status           TableStatus `gorm:"type:varchar(10);not null;default:'CLOSED';index" json:"status"`
	CurrentSessionID *string     `gorm:"type:varchar(64)" json:"currentSessionId"`
	DeviceID         *string     `gorm:"type:varchar(128);uniqueIndex" json:"deviceId"`
	SessionStartedAt *time.Time  `json:"sessionStartedAt"`
	CreatedAt        time.Time   `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time   `gorm:"not null" json:"updatedAt"`
}

func (t *Table) IsOpen() bool {
	return t.Status == TableOpen
}

// BoundTo reports whether deviceID currently holds the table.
func (t *Table) BoundTo(deviceID string) bool {
	return t.DeviceID != nil && *t.DeviceID == deviceID
}

// HasSession reports whether sessionID is the table's live session.
func (t *Table) HasSession(sessionID string) bool {
	return t.IsOpen() && t.CurrentSessionID != nil && sessionID != "" && *t.CurrentSessionID == sessionID
}
