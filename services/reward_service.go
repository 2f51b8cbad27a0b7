package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RewardService credits loyalty points to the device that paid for an order.
type RewardService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewRewardService(db *gorm.DB, settings *SettingsService) *RewardService {
	return &RewardService{db: db, settings: settings}
}

// Award adds total * LoyaltyPointRate points to deviceID and returns the
// points credited. A zero rate awards nothing.
func (s *RewardService) Award(ctx context.Context, deviceID string, total float64) (float64, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	points := math.Floor(total*settings.LoyaltyPointRate*100) / 100
	if points <= 0 {
		return 0, nil
	}

	now := time.Now()
	reward := models.Reward{DeviceID: deviceID, Points: points, CreatedAt: now, UpdatedAt: now}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"points":     gorm.Expr("points + ?", points),
			"updated_at": now,
		}),
	}).Create(&reward).Error
	if err != nil {
		return 0, fmt.Errorf("award points: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"device_id": deviceID,
		"points":    points,
	}).Info("loyalty points awarded")
	return points, nil
}

// Points returns the balance of deviceID; unknown devices have zero.
func (s *RewardService) Points(ctx context.Context, deviceID string) (float64, error) {
	var reward models.Reward
	err := s.db.WithContext(ctx).Where("device_id = ?", deviceID).First(&reward).Error
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("load reward: %w", err)
	}
	return reward.Points, nil
}
