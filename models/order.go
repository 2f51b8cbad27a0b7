package models

import (
	"time"

	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

// OnlineTableNo marks orders that are not tied to a physical table.
const OnlineTableNo = "ONLINE"

type OrderLine struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type Order struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	TableNo        string        `gorm:"type:varchar(50);not null;index" json:"tableNo"`
	SessionID      *string       `gorm:"type:varchar(64);index" json:"sessionId"`
	DeviceID       *string       `gorm:"type:varchar(128);index" json:"deviceId"`
	Items          []OrderLine   `gorm:"type:text;serializer:json;not null" json:"items"`
	Total          float64       `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Status         OrderStatus   `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	PaymentMethod  string        `gorm:"type:varchar(30)" json:"paymentMethod"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"paymentStatus"`
	DeviceName     string        `gorm:"type:varchar(255)" json:"deviceName"`
	Location       string        `gorm:"type:text" json:"location"`
	IsOnlineOrder  bool          `gorm:"not null;default:false" json:"isOnlineOrder"`
	IdempotencyKey *string       `gorm:"type:varchar(100);uniqueIndex" json:"-"`
	CreatedAt      time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updatedAt"`

	FormattedTime  string `gorm:"-" json:"formattedTime"`
	FormattedTotal string `gorm:"-" json:"formattedTotal"`
}

// IsSettled reports whether the order needs no further action.
func (o *Order) IsSettled() bool {
	return o.Status == OrderCancelled || (o.Status == OrderServed && o.PaymentStatus == PaymentPaid)
}

func (o *Order) fillDisplayFields() {
	o.FormattedTime = utils.FormatOrderTime(o.CreatedAt)
	o.FormattedTotal = utils.FormatCurrency(o.Total)
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	o.fillDisplayFields()
	return nil
}

func (o *Order) AfterCreate(tx *gorm.DB) error {
	o.fillDisplayFields()
	return nil
}
