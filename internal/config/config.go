package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Политики отмены оплаченных бронирований
const (
	CancellationPolicyAllow = "allow"
	CancellationPolicyDeny  = "deny"
)

var (
	// ErrInvalidConfig возвращается при некорректных значениях конфигурации
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config конфигурация сервиса
type Config struct {
	Server         ServerConfig         `toml:"server"`
	Database       DatabaseConfig       `toml:"database"`
	Logs           LogsConfig           `toml:"logs"`
	Metrics        MetricsConfig        `toml:"metrics"`
	Redis          RedisConfig          `toml:"redis"`
	PayPal         PayPalConfig         `toml:"paypal"`
	Directory      DirectoryConfig      `toml:"directory"`
	Booking        BookingConfig        `toml:"booking"`
	Reconciliation ReconciliationConfig `toml:"reconciliation"`
	Notifications  NotificationsConfig  `toml:"notifications"`
	RateLimit      RateLimitConfig      `toml:"rate_limit"`
}

// ServerConfig настройки HTTP сервера (таймауты в секундах)
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`
	WriteTimeout    int `toml:"write_timeout"`
	IdleTimeout     int `toml:"idle_timeout"`
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

// DatabaseConfig настройки PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"`
	AutoMigrate     bool   `toml:"auto_migrate"`
}

// DSN строка подключения для lib/pq
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// LogsConfig настройки логирования
type LogsConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// MetricsConfig настройки prometheus
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

// RedisConfig настройки Redis
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// PayPalConfig настройки платежного провайдера
type PayPalConfig struct {
	BaseURL          string   `toml:"base_url"`
	ClientID         string   `toml:"client_id"`
	ClientSecret     string   `toml:"client_secret"`
	WebhookID        string   `toml:"webhook_id"`
	Currency         string   `toml:"currency"`
	ReturnURL        string   `toml:"return_url"`
	CancelURL        string   `toml:"cancel_url"`
	Timeout          int      `toml:"timeout_seconds"`
	CertAllowedHosts []string `toml:"cert_allowed_hosts"`
	WebhookEventTTL  int      `toml:"webhook_event_ttl_hours"`
}

// DirectoryConfig настройки клиента сервиса справочников (корты, пользователи)
type DirectoryConfig struct {
	URL             string `toml:"url"`
	Timeout         int    `toml:"timeout"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
}

// BookingConfig бизнес-параметры бронирования
type BookingConfig struct {
	Timezone            string `toml:"timezone"`
	SlotIntervalMinutes int    `toml:"slot_interval_minutes"`
	LeadTimeMinutes     int    `toml:"lead_time_minutes"`
	AdvanceBookingDays  int    `toml:"advance_booking_days"`
	CancellationPolicy  string `toml:"cancellation_policy"`
}

// Location загружает часовой пояс бизнеса
func (c BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

// ReconciliationConfig настройки фоновой сверки платежей
type ReconciliationConfig struct {
	Enabled           bool   `toml:"enabled"`
	Cron              string `toml:"cron"`
	StaleAfterMinutes int    `toml:"stale_after_minutes"`
	BatchSize         int    `toml:"batch_size"`
}

// NotificationsConfig канал широковещательных уведомлений
type NotificationsConfig struct {
	Channel string `toml:"channel"`
}

// RateLimitConfig ограничение частоты запросов на запись
type RateLimitConfig struct {
	Enabled bool    `toml:"enabled"`
	RPS     float64 `toml:"rps"`
	Burst   int     `toml:"burst"`
}

// Load читает TOML-файл, подмешивает секреты из .env/окружения и применяет значения по умолчанию
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	// .env необязателен
	_ = godotenv.Load()
	applyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"DB_PASSWORD":          &cfg.Database.Password,
		"REDIS_PASSWORD":       &cfg.Redis.Password,
		"PAYPAL_CLIENT_ID":     &cfg.PayPal.ClientID,
		"PAYPAL_CLIENT_SECRET": &cfg.PayPal.ClientSecret,
		"PAYPAL_WEBHOOK_ID":    &cfg.PayPal.WebhookID,
		"BUSINESS_TIMEZONE":    &cfg.Booking.Timezone,
	}

	for key, target := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
}

func applyDefaults(cfg *Config) {
	setDefault(&cfg.Server.HTTPPort, 8080)
	setDefault(&cfg.Server.ReadTimeout, 15)
	setDefault(&cfg.Server.WriteTimeout, 15)
	setDefault(&cfg.Server.IdleTimeout, 60)
	setDefault(&cfg.Server.ShutdownTimeout, 10)

	setDefault(&cfg.Database.Port, 5432)
	setDefault(&cfg.Database.MaxOpenConns, 25)
	setDefault(&cfg.Database.MaxIdleConns, 5)
	setDefault(&cfg.Database.ConnMaxLifetime, 300)
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Logs.Level == "" {
		cfg.Logs.Level = "info"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = "court_reservation_service"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.PayPal.BaseURL == "" {
		cfg.PayPal.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	if cfg.PayPal.Currency == "" {
		cfg.PayPal.Currency = "PHP"
	}
	setDefault(&cfg.PayPal.Timeout, 10)
	setDefault(&cfg.PayPal.WebhookEventTTL, 72)
	if len(cfg.PayPal.CertAllowedHosts) == 0 {
		cfg.PayPal.CertAllowedHosts = []string{"api.paypal.com", "api.sandbox.paypal.com", "api-m.paypal.com", "api-m.sandbox.paypal.com"}
	}

	setDefault(&cfg.Directory.Timeout, 5)
	setDefault(&cfg.Directory.CacheTTLSeconds, 60)

	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Asia/Manila"
	}
	setDefault(&cfg.Booking.SlotIntervalMinutes, 60)
	setDefault(&cfg.Booking.LeadTimeMinutes, 60)
	if cfg.Booking.CancellationPolicy == "" {
		cfg.Booking.CancellationPolicy = CancellationPolicyAllow
	}

	if cfg.Reconciliation.Cron == "" {
		cfg.Reconciliation.Cron = "*/5 * * * *"
	}
	setDefault(&cfg.Reconciliation.StaleAfterMinutes, 30)
	setDefault(&cfg.Reconciliation.BatchSize, 50)

	if cfg.Notifications.Channel == "" {
		cfg.Notifications.Channel = "court-reservations"
	}

	if cfg.RateLimit.RPS <= 0 {
		cfg.RateLimit.RPS = 2
	}
	setDefault(&cfg.RateLimit.Burst, 5)
}

func setDefault(target *int, value int) {
	if *target <= 0 {
		*target = value
	}
}

// Validate проверяет значения после применения значений по умолчанию
func (c *Config) Validate() error {
	var problems []string

	if c.Database.Host == "" {
		problems = append(problems, "database.host is required")
	}
	if c.Database.DBName == "" {
		problems = append(problems, "database.dbname is required")
	}
	if c.Directory.URL == "" {
		problems = append(problems, "directory.url is required")
	}
	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("booking.timezone %q is unknown", c.Booking.Timezone))
	}
	if c.Booking.SlotIntervalMinutes > 24*60 {
		problems = append(problems, "booking.slot_interval_minutes must not exceed a day")
	}
	if c.Booking.AdvanceBookingDays < 0 {
		problems = append(problems, "booking.advance_booking_days must not be negative")
	}
	switch c.Booking.CancellationPolicy {
	case CancellationPolicyAllow, CancellationPolicyDeny:
	default:
		problems = append(problems, fmt.Sprintf("booking.cancellation_policy %q must be %q or %q",
			c.Booking.CancellationPolicy, CancellationPolicyAllow, CancellationPolicyDeny))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}
