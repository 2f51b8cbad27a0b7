package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/qr-table-order/models"
	"github.com/yeremiapane/qr-table-order/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type CreateUserInput struct {
	Username    string      `json:"username" binding:"required"`
	Password    string      `json:"password" binding:"required"`
	Role        models.Role `json:"role" binding:"required"`
	DisplayName string      `json:"displayName"`
}

type UpdateUserInput struct {
	Username    *string      `json:"username"`
	Password    *string      `json:"password"`
	Role        *models.Role `json:"role"`
	DisplayName *string      `json:"displayName"`
}

// LoginResult is handed back on a successful staff login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

type UserService struct {
	db       *gorm.DB
	secret   string
	tokenTTL time.Duration
}

func NewUserService(db *gorm.DB, secret string, tokenTTL time.Duration) *UserService {
	return &UserService{db: db, secret: secret, tokenTTL: tokenTTL}
}

func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := utils.GenerateStaffToken(s.secret, user.ID, user.SessionVersion, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("staff login")
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a staff token to its user. Tokens minted before the
// user's last forced logout are refused.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseStaffToken(s.secret, token)
	if err != nil {
		return nil, utils.Unauthorized(err.Error())
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrStaleStaffToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.SessionVersion != claims.SessionVersion {
		return nil, ErrStaleStaffToken
	}
	return &user, nil
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, utils.Validation("username is required")
	}
	if !in.Role.Valid() {
		return nil, utils.Validation(fmt.Sprintf("unknown role %q", in.Role))
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:       username,
		PasswordHash:   hash,
		Role:           in.Role,
		DisplayName:    strings.TrimSpace(in.DisplayName),
		SessionVersion: 1,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("staff user created")
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("username asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// Update changes a staff account. Changing the username, role or password
// signs the user out everywhere.
func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	revoke := false
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, utils.Validation("username must not be empty")
		}
		if username != user.Username {
			user.Username = username
			revoke = true
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, utils.Validation(fmt.Sprintf("unknown role %q", *in.Role))
		}
		if *in.Role != user.Role {
			user.Role = *in.Role
			revoke = true
		}
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		revoke = true
	}
	if in.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if revoke {
		user.SessionVersion++
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"revoked": revoke,
	}).Info("staff user updated")
	return user, nil
}

// ForceLogout invalidates every token the user currently holds.
func (s *UserService) ForceLogout(ctx context.Context, id uint) (*models.User, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("session_version", gorm.Expr("session_version + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("force logout: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	utils.InfoLogger.WithField("user_id", id).Info("staff user signed out everywhere")
	return s.Get(ctx, id)
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", utils.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
