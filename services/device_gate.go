package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/qr-table-order/kds"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceGate is the blocklist consulted before a device may open a table
// session or use an existing one.
type DeviceGate struct {
	db     *gorm.DB
	events Broadcaster

	// OnBlock runs after a device is blocked. With REVOKE_ON_BLOCK it closes
	// the device's open table; by default blocking only stops new logins and
	// further cookie use.
	OnBlock func(ctx context.Context, deviceID string) error
}

func NewDeviceGate(db *gorm.DB, events Broadcaster) *DeviceGate {
	return &DeviceGate{db: db, events: orNop(events)}
}

func (g *DeviceGate) IsBlocked(ctx context.Context, deviceID string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.BlockedDevice{}).
		Where("device_id = ?", deviceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check blocked device: %w", err)
	}
	return count > 0, nil
}

// Block adds deviceID to the blocklist, replacing the reason if it is
// already there.
func (g *DeviceGate) Block(ctx context.Context, deviceID, reason string) (*models.BlockedDevice, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, utils.Validation("deviceId is required")
	}

	entry := models.BlockedDevice{
		DeviceID:  deviceID,
		Reason:    strings.TrimSpace(reason),
		CreatedAt: time.Now(),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason"}),
	}).Create(&entry).Error
	if err != nil {
		return nil, fmt.Errorf("block device: %w", err)
	}

	utils.InfoLogger.WithField("device_id", deviceID).Info("device blocked")
	g.events.Broadcast(kds.EventDeviceUpdate, deviceEvent("blocked", entry))

	if g.OnBlock != nil {
		if err := g.OnBlock(ctx, deviceID); err != nil {
			return &entry, fmt.Errorf("revoke session of blocked device: %w", err)
		}
	}
	return &entry, nil
}

func (g *DeviceGate) Unblock(ctx context.Context, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return utils.Validation("deviceId is required")
	}

	res := g.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&models.BlockedDevice{})
	if res.Error != nil {
		return fmt.Errorf("unblock device: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NotFound("device is not blocked")
	}

	utils.InfoLogger.WithField("device_id", deviceID).Info("device unblocked")
	g.events.Broadcast(kds.EventDeviceUpdate, deviceEvent("unblocked", models.BlockedDevice{DeviceID: deviceID}))
	return nil
}

func (g *DeviceGate) List(ctx context.Context) ([]models.BlockedDevice, error) {
	var devices []models.BlockedDevice
	if err := g.db.WithContext(ctx).Order("created_at desc").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("list blocked devices: %w", err)
	}
	return devices, nil
}

func deviceEvent(action string, entry models.BlockedDevice) map[string]interface{} {
	return map[string]interface{}{
		"action": action,
		"device": entry,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
