package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Booking    BookingConfig    `yaml:"booking"`
	Email      EmailConfig      `yaml:"email"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Kafka      KafkaConfig      `yaml:"kafka"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// IANA zone used for notification timestamps and past-slot checks.
	Timezone string `yaml:"timezone"`
}

type HTTPConfig struct {
	Port                int `yaml:"port"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	// Per-client limit on form submissions; 0 disables.
	RateLimitRequests      int `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
	// Proxy IPs or CIDRs allowed to set X-Forwarded-For. Empty means the
	// peer address is always the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	// Channel that booking events are published to; empty disables.
	EventsChannel string `yaml:"events_channel"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
	HealthCheckPort   int  `yaml:"health_check_port"`
	GRPCHealthPort    int  `yaml:"grpc_health_port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type BookingConfig struct {
	CatalogPath                string `yaml:"catalog_path"`
	CatalogReloadSeconds       int    `yaml:"catalog_reload_seconds"`
	NotificationTimeoutSeconds int    `yaml:"notification_timeout_seconds"`
	NotificationRatePerSecond  int    `yaml:"notification_rate_per_second"`
	NotificationMaxRetries     int    `yaml:"notification_max_retries"`
}

// EmailConfig mirrors the two supported setups: Gmail with an app password,
// or a generic SMTP host.
type EmailConfig struct {
	Service      string `yaml:"service"` // "gmail" or empty
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Secure       bool   `yaml:"secure"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	From         string `yaml:"from"`
	CompanyEmail string `yaml:"company_email"`
}

type TelegramConfig struct {
	BotToken string  `yaml:"bot_token"`
	ChatIDs  []int64 `yaml:"chat_ids"`
	// MonthlyReport sends last month's bookings spreadsheet on the 1st.
	MonthlyReport bool `yaml:"monthly_report"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	BookingSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingSheetRange    string `yaml:"bookings_sheet_range"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Load reads the YAML config at path. A .env file next to the working
// directory is loaded first if present so ${VAR} placeholders resolve.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "detailing"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/bookings.db"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "data/backups"
	}
	if c.Email.Service == "gmail" && c.Email.Host == "" {
		c.Email.Host = "smtp.gmail.com"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 587
		if c.Email.Secure {
			c.Email.Port = 465
		}
	}
	if c.Email.From == "" {
		c.Email.From = c.Email.Username
	}
	if c.Email.From == "" {
		c.Email.From = "noreply@cjcardetailing.com.au"
	}
	if c.Email.CompanyEmail == "" {
		c.Email.CompanyEmail = "cjcardetailing.business@gmail.com"
	}
	if c.Google.BookingSheetRange == "" {
		c.Google.BookingSheetRange = "Bookings!A1"
	}
}

// EmailEnabled reports whether enough SMTP settings are present to send mail.
func (c *Config) EmailEnabled() bool {
	if c.Email.Service == "gmail" {
		return c.Email.Username != "" && c.Email.Password != ""
	}
	return c.Email.Host != ""
}

func (c *Config) ReadTimeout() time.Duration {
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	if c.HTTP.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.HTTP.RateLimitWindowSeconds) * time.Second
}

func (c *Config) NotificationTimeout() time.Duration {
	if c.Booking.NotificationTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Booking.NotificationTimeoutSeconds) * time.Second
}

func (c *Config) CatalogReloadInterval() time.Duration {
	if c.Booking.CatalogReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Booking.CatalogReloadSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// Location resolves App.Timezone, falling back to the host zone.
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
