package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"gorm.io/gorm"
)

// SettingsPatch carries the fields an admin wants to change; nil fields are
// left alone.
type SettingsPatch struct {
	CafeName         *string  `json:"cafeName"`
	Tagline          *string  `json:"tagline"`
	LogoURL          *string  `json:"logoUrl"`
	OpeningHours     *string  `json:"openingHours"`
	LoyaltyPointRate *float64 `json:"loyaltyPointRate"`
	DailySpecial     *string  `json:"dailySpecial"`
}

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// Get returns the site settings, creating the row on first use.
func (s *SettingsService) Get(ctx context.Context) (*models.SiteSetting, error) {
	settings := models.SiteSetting{Key: models.GlobalSettingsKey}
	err := s.db.WithContext(ctx).
		Where(models.SiteSetting{Key: models.GlobalSettingsKey}).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("load site settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (*models.SiteSetting, error) {
	if patch.LoyaltyPointRate != nil && *patch.LoyaltyPointRate < 0 {
		return nil, utils.Validation("loyaltyPointRate must not be negative")
	}

	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if patch.CafeName != nil {
		settings.CafeName = strings.TrimSpace(*patch.CafeName)
	}
	if patch.Tagline != nil {
		settings.Tagline = strings.TrimSpace(*patch.Tagline)
	}
	if patch.LogoURL != nil {
		settings.LogoURL = strings.TrimSpace(*patch.LogoURL)
	}
	if patch.OpeningHours != nil {
		settings.OpeningHours = strings.TrimSpace(*patch.OpeningHours)
	}
	if patch.LoyaltyPointRate != nil {
		settings.LoyaltyPointRate = *patch.LoyaltyPointRate
	}
	if patch.DailySpecial != nil {
		settings.DailySpecial = *patch.DailySpecial
	}

	if err := s.db.WithContext(ctx).Save(settings).Error; err != nil {
		return nil, fmt.Errorf("save site settings: %w", err)
	}
	utils.InfoLogger.Info("site settings updated")
	return settings, nil
}
