package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// TrustedProxies lists the CIDRs whose X-Forwarded-For is believed; empty trusts none.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES"`

	// MongoDB configuration. Transactions require a replica set.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration (reminder task queue and health checks).
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisTaskQueueDB int    `mapstructure:"REDIS_TASK_QUEUE_DB"`

	// Identity is issued elsewhere; we only verify tokens.
	JWTSecret  string `mapstructure:"JWT_SECRET"`
	AdminToken string `mapstructure:"ADMIN_TOKEN"`

	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Scheduling policy.
	Timezone             string        `mapstructure:"TIMEZONE"`
	LateRescheduleWindow time.Duration `mapstructure:"LATE_RESCHEDULE_WINDOW"`
	ReminderLead         time.Duration `mapstructure:"REMINDER_LEAD"`

	// Billing policy.
	SessionRateInitial  float64 `mapstructure:"SESSION_RATE_INITIAL"`
	SessionRateFollowUp float64 `mapstructure:"SESSION_RATE_FOLLOW_UP"`
	LateRescheduleFee   float64 `mapstructure:"LATE_RESCHEDULE_FEE"`

	// Tracing.
	OtelEnabled  bool   `mapstructure:"OTEL_ENABLED"`
	OtelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("TRUSTED_PROXIES", []string{})
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "consultbook")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_TASK_QUEUE_DB", 3)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_TOKEN", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("LATE_RESCHEDULE_WINDOW", "4h")
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("SESSION_RATE_INITIAL", 95.00)
	v.SetDefault("SESSION_RATE_FOLLOW_UP", 75.00)
	v.SetDefault("LATE_RESCHEDULE_FEE", 5.00)
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location resolves the configured TIMEZONE, falling back to UTC.
func Location() *time.Location {
	if AppConfig.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		log.Printf("unknown TIMEZONE %q, using UTC: %v", AppConfig.Timezone, err)
		return time.UTC
	}
	return loc
}
