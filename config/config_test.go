package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadInEmptyDir(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return LoadConfig()
}

func TestLoadConfig_DefaultsWithoutEnvFile(t *testing.T) {
	cfg, err := loadInEmptyDir(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.App.Port)
	}
	if cfg.Clinic.Hours.Open.String() != "09:00" || cfg.Clinic.Hours.Close.String() != "17:00" {
		t.Fatalf("unexpected clinic hours: %v-%v", cfg.Clinic.Hours.Open, cfg.Clinic.Hours.Close)
	}
	if cfg.Clinic.Hours.SlotLength != 30*time.Minute {
		t.Fatalf("expected 30m slots, got %v", cfg.Clinic.Hours.SlotLength)
	}
	if cfg.Clinic.Location != time.UTC {
		t.Fatalf("expected UTC, got %v", cfg.Clinic.Location)
	}
	if cfg.SlotLock.Backend != SlotLockBackendRedis || cfg.SlotLock.TTL != 10*time.Second {
		t.Fatalf("unexpected slot lock config: %+v", cfg.SlotLock)
	}
	if cfg.JWT.AccessExpiry != 15*time.Minute {
		t.Fatalf("expected 15m access expiry, got %v", cfg.JWT.AccessExpiry)
	}
}

func TestLoadConfig_ClinicFromEnv(t *testing.T) {
	t.Setenv("CLINIC_OPEN", "08:00")
	t.Setenv("CLINIC_CLOSE", "12:00")
	t.Setenv("SLOT_MINUTES", "15")
	t.Setenv("CLINIC_TIMEZONE", "Asia/Jakarta")
	t.Setenv("SLOT_LOCK_BACKEND", "local")

	cfg, err := loadInEmptyDir(t)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Clinic.Hours.Len() != 16 {
		t.Fatalf("expected 16 slots per day, got %d", cfg.Clinic.Hours.Len())
	}
	if cfg.Clinic.Location.String() != "Asia/Jakarta" {
		t.Fatalf("unexpected location %v", cfg.Clinic.Location)
	}
	if cfg.SlotLock.Backend != SlotLockBackendLocal {
		t.Fatalf("expected local backend, got %q", cfg.SlotLock.Backend)
	}
}

func TestLoadConfig_RejectsInvalidClinicHours(t *testing.T) {
	t.Setenv("CLINIC_OPEN", "18:00")
	t.Setenv("CLINIC_CLOSE", "09:00")

	if _, err := loadInEmptyDir(t); err == nil {
		t.Fatalf("expected error for closing before opening")
	}
}

func TestLoadConfig_RejectsUnknownLockBackend(t *testing.T) {
	t.Setenv("SLOT_LOCK_BACKEND", "zookeeper")

	if _, err := loadInEmptyDir(t); err == nil {
		t.Fatalf("expected error for unknown lock backend")
	}
}

func TestLoadConfig_RejectsNonPositiveLockDurations(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"SLOT_LOCK_TTL", "0s"},
		{"SLOT_LOCK_TTL", "-5s"},
		{"SLOT_LOCK_WAIT", "0s"},
		{"SLOT_LOCK_WAIT", "-1ms"},
		{"SLOT_LOCK_WAIT", "soon"},
	}

	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			if _, err := loadInEmptyDir(t); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
