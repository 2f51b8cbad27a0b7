package models

import (
	"time"

	"gorm.io/gorm"
)

type RequestType string

const (
	RequestCallWaiter RequestType = "CALL_WAITER"
	RequestBill       RequestType = "REQUEST_BILL"
	RequestWater      RequestType = "WATER"
	RequestVoiceOrder RequestType = "VOICE_ORDER"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestCallWaiter, RequestBill, RequestWater, RequestVoiceOrder:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestCompleted RequestStatus = "COMPLETED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// Terminal reports whether s is a status a request can be resolved to.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// ServiceRequest is an ad-hoc customer call tied to a table. AssignedToUserID
// is reserved; requests are broadcast to every staff dashboard.
type ServiceRequest struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	TableNo          string        `gorm:"type:varchar(50);not null;index" json:"tableNo"`
	Type             RequestType   `gorm:"type:varchar(20);not null" json:"type"`
	Status           RequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	UserLat          *float64      `json:"userLat"`
	UserLng          *float64      `json:"userLng"`
	AudioData        *string       `gorm:"type:longtext" json:"-"`
	AudioKey         *string       `gorm:"type:varchar(255)" json:"-"`
	HasAudio         bool          `gorm:"-" json:"hasAudio"`
	AssignedToUserID *uint         `json:"assignedToUserId"`
	CreatedAt        time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time     `gorm:"not null" json:"updatedAt"`
}

func (r *ServiceRequest) markAudio() {
	r.HasAudio = (r.AudioKey != nil && *r.AudioKey != "") || (r.AudioData != nil && *r.AudioData != "")
}

func (r *ServiceRequest) AfterFind(tx *gorm.DB) error {
	r.markAudio()
	return nil
}

func (r *ServiceRequest) AfterCreate(tx *gorm.DB) error {
	r.markAudio()
	return nil
}
