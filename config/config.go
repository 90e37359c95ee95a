package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"hospital-appointment-service/internal/scheduling"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Clinic   ClinicConfig
	SlotLock SlotLockConfig
}

type AppConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret       string
	AccessExpiry time.Duration
}

// ClinicConfig holds the operating hours every doctor's slots are cut from
type ClinicConfig struct {
	Hours    scheduling.WorkingHours
	Location *time.Location
}

// SlotLockConfig selects how concurrent bookings of one doctor-day are serialized
type SlotLockConfig struct {
	Backend string // "redis" or "local"
	TTL     time.Duration
	Wait    time.Duration
}

const (
	SlotLockBackendRedis = "redis"
	SlotLockBackendLocal = "local"
)

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CLINIC_OPEN", "09:00")
	viper.SetDefault("CLINIC_CLOSE", "17:00")
	viper.SetDefault("SLOT_MINUTES", 30)
	viper.SetDefault("CLINIC_TIMEZONE", "UTC")
	viper.SetDefault("SLOT_LOCK_BACKEND", SlotLockBackendRedis)
	viper.SetDefault("SLOT_LOCK_TTL", "10s")
	viper.SetDefault("SLOT_LOCK_WAIT", "3s")
}

func LoadConfig() (*Config, error) {
	setDefaults()
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Environment variables alone are enough in containers
	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	clinic, err := loadClinicConfig()
	if err != nil {
		return nil, err
	}

	lockTTL, err := positiveDuration("SLOT_LOCK_TTL")
	if err != nil {
		return nil, err
	}
	lockWait, err := positiveDuration("SLOT_LOCK_WAIT")
	if err != nil {
		return nil, err
	}

	backend := viper.GetString("SLOT_LOCK_BACKEND")
	if backend != SlotLockBackendRedis && backend != SlotLockBackendLocal {
		return nil, fmt.Errorf("invalid SLOT_LOCK_BACKEND %q", backend)
	}

	config := &Config{
		App: AppConfig{
			Port:     viper.GetString("APP_PORT"),
			Env:      viper.GetString("APP_ENV"),
			LogLevel: viper.GetString("LOG_LEVEL"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			TimeZone: viper.GetString("DB_TIMEZONE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:       viper.GetString("JWT_SECRET"),
			AccessExpiry: accessExpiry,
		},
		Clinic: *clinic,
		SlotLock: SlotLockConfig{
			Backend: backend,
			TTL:     lockTTL,
			Wait:    lockWait,
		},
	}

	return config, nil
}

// positiveDuration reads a duration setting that must be greater than zero.
func positiveDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %s", key, d)
	}
	return d, nil
}

func loadClinicConfig() (*ClinicConfig, error) {
	open, err := scheduling.ParseTimeOfDay(viper.GetString("CLINIC_OPEN"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_OPEN: %w", err)
	}
	closing, err := scheduling.ParseTimeOfDay(viper.GetString("CLINIC_CLOSE"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_CLOSE: %w", err)
	}

	hours := scheduling.WorkingHours{
		Open:       open,
		Close:      closing,
		SlotLength: time.Duration(viper.GetInt("SLOT_MINUTES")) * time.Minute,
	}
	if err := hours.Validate(); err != nil {
		return nil, fmt.Errorf("clinic hours %s-%s every %v: %w", open, closing, hours.SlotLength, err)
	}

	loc, err := time.LoadLocation(viper.GetString("CLINIC_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE: %w", err)
	}

	return &ClinicConfig{Hours: hours, Location: loc}, nil
}
