package database

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models is every entity owned by this service, in migration order.
var Models = []interface{}{
	&models.User{},
	&models.Table{},
	&models.Order{},
	&models.ServiceRequest{},
	&models.SiteSetting{},
	&models.BlockedDevice{},
	&models.DeviceStat{},
	&models.Review{},
	&models.Reward{},
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}

// SeedAdmin creates the first ADMIN account when no user exists yet. It is a
// no-op when password is empty or users are already present.
func SeedAdmin(db *gorm.DB, username, password string) error {
	if password == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username:       username,
		PasswordHash:   string(hashed),
		Role:           models.RoleAdmin,
		DisplayName:    "Administrator",
		SessionVersion: 1,
	}
	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	utils.InfoLogger.Printf("Seeded admin user %q", username)
	return nil
}
