package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultsUnmarshal(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cfg.LateRescheduleWindow != 4*time.Hour {
		t.Errorf("LateRescheduleWindow = %v, want 4h", cfg.LateRescheduleWindow)
	}
	if cfg.ReminderLead != 24*time.Hour {
		t.Errorf("ReminderLead = %v, want 24h", cfg.ReminderLead)
	}
	if cfg.SessionRateInitial != 95 || cfg.SessionRateFollowUp != 75 || cfg.LateRescheduleFee != 5 {
		t.Errorf("unexpected rate defaults: %+v", cfg)
	}
	if cfg.DatabaseName != "consultbook" {
		t.Errorf("DatabaseName = %q", cfg.DatabaseName)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	prev := AppConfig
	t.Cleanup(func() { AppConfig = prev })

	AppConfig.Timezone = "Not/AZone"
	if got := Location(); got != time.UTC {
		t.Errorf("Location() = %v, want UTC", got)
	}
	AppConfig.Timezone = "Europe/Amsterdam"
	if got := Location(); got.String() != "Europe/Amsterdam" {
		t.Errorf("Location() = %v", got)
	}
}

func TestTrustedProxiesFromCommaList(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cfg.TrustedProxies) != 0 {
		t.Errorf("default TrustedProxies = %v, want none", cfg.TrustedProxies)
	}

	v.Set("TRUSTED_PROXIES", "10.0.0.0/8,172.16.0.0/12")
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(cfg.TrustedProxies) != 2 || cfg.TrustedProxies[1] != "172.16.0.0/12" {
		t.Errorf("TrustedProxies = %v", cfg.TrustedProxies)
	}
}
