package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Paras      ParasConfig      `yaml:"paras"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Sessions   SessionsConfig   `yaml:"sessions"`
	Booking    BookingConfig    `yaml:"booking"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// ParasConfig points at the remote PARAS REST API this process is a client of.
type ParasConfig struct {
	BaseURL              string `yaml:"base_url"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	RoomsCacheTTLSeconds int    `yaml:"rooms_cache_ttl_seconds"`
}

func (c ParasConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ParasConfig) RoomsCacheTTL() time.Duration {
	return time.Duration(c.RoomsCacheTTLSeconds) * time.Second
}

type GatewayConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// SessionsConfig controls where gateway/CLI sessions are persisted.
type SessionsConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes"`
	SQLitePath string `yaml:"sqlite_path"`
	CookieName string `yaml:"cookie_name"`
}

func (c SessionsConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// BookingConfig overrides the loan window rules; zero fields fall back to the
// package defaults (07:00-20:00, 240 min, 10 min lead).
type BookingConfig struct {
	OpeningMinute   int `yaml:"opening_minute"`
	ClosingMinute   int `yaml:"closing_minute"`
	MaxDurationMins int `yaml:"max_duration_minutes"`
	MinLeadMins     int `yaml:"min_lead_minutes"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// TelegramConfig enables loan event notifications to admin chats.
type TelegramConfig struct {
	Enabled      bool    `yaml:"enabled"`
	BotToken     string  `yaml:"bot_token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
}

// GoogleConfig enables the loan mirror spreadsheet.
type GoogleConfig struct {
	CredentialsFile    string `yaml:"credentials_file"`
	LoansSpreadsheetID string `yaml:"loans_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; when present it feeds the ${VAR} expansion below.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Paras.BaseURL == "" {
		return errors.New("paras base_url is required")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram enabled but bot_token is empty")
	}

	if c.Google.CredentialsFile != "" && c.Google.LoansSpreadsheetID == "" {
		return errors.New("google credentials_file set but loans_spreadsheet_id is empty")
	}

	if c.Booking.OpeningMinute < 0 || c.Booking.ClosingMinute > 24*60 {
		return errors.New("booking operating window is out of range")
	}
	if c.Booking.ClosingMinute != 0 && c.Booking.ClosingMinute <= c.Booking.OpeningMinute {
		return errors.New("booking closing_minute must be after opening_minute")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "paras"
	}
	if c.Paras.TimeoutSeconds == 0 {
		c.Paras.TimeoutSeconds = 10
	}
	if c.Gateway.Port == 0 {
		c.Gateway.Port = 8080
	}
	if c.Gateway.Enabled && c.Gateway.RateLimit.Burst == 0 {
		c.Gateway.RateLimit.Burst = 5
	}
	if c.Sessions.TTLMinutes == 0 {
		c.Sessions.TTLMinutes = 24 * 60
	}
	if c.Sessions.SQLitePath == "" {
		c.Sessions.SQLitePath = "data/sessions.db"
	}
	if c.Sessions.CookieName == "" {
		c.Sessions.CookieName = "paras_session"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
