package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config collects every environment setting the server reads.
type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret       string
	AuthTokenTTL    time.Duration
	TableSessionTTL time.Duration
	CookieSecure    bool

	CORSOrigins      []string
	AllowedCountries []string
	CountryHeader    string
	LoginRatePerMin  int

	RevokeOnBlock     bool
	AutoCloseOnPaid   bool
	StaleSessionAfter time.Duration
	SweepSchedule     string

	AdminUsername string
	AdminPassword string

	Minio MinioConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object store was configured for voice orders.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DBDSN:    getEnv("DB_DSN", "table_order.db"),

		JWTSecret:    os.Getenv("JWT_SECRET"),
		CookieSecure: getBool("COOKIE_SECURE", false),

		CORSOrigins:      getList("CORS_ORIGINS"),
		AllowedCountries: getList("ALLOWED_COUNTRIES"),
		CountryHeader:    getEnv("COUNTRY_HEADER", "CF-IPCountry"),
		LoginRatePerMin:  getInt("LOGIN_RATE_PER_MINUTE", 10),

		RevokeOnBlock:   getBool("REVOKE_ON_BLOCK", false),
		AutoCloseOnPaid: getBool("AUTO_CLOSE_ON_PAID", false),
		SweepSchedule:   getEnv("SWEEP_SCHEDULE", "@every 10m"),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "voice-orders"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
		},
	}

	var err error
	if cfg.AuthTokenTTL, err = getDuration("AUTH_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TableSessionTTL, err = getDuration("TABLE_SESSION_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.StaleSessionAfter, err = getDuration("STALE_SESSION_AFTER", 0); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return nil, fmt.Errorf("JWT_SECRET must be set in release mode")
		}
		cfg.JWTSecret = "dev-only-secret-change-me"
	}

	return cfg, nil
}

// InitDB opens the configured database.
func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dialector = mysql.Open(cfg.DBDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	logLevel := logger.Warn
	if cfg.GinMode == "release" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBDriver, err)
	}
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
