package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RateLimitRule overrides the limits of one action. Durations use time.ParseDuration syntax.
type RateLimitRule struct {
	MaxAttempts   int    `yaml:"max_attempts"`
	Window        string `yaml:"window"`
	BlockDuration string `yaml:"block_duration"`
}

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port            string   `yaml:"port" env:"SERVER_PORT"`
		Mode            string   `yaml:"mode" env:"SERVER_MODE"`
		ReadTimeout     string   `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    string   `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout string   `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		TrustedProxies  []string `yaml:"trusted_proxies" env:"SERVER_TRUSTED_PROXIES"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"REDIS_DB"`
		Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
	} `yaml:"redis"`

	JWT struct {
		Secret                 string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration  string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		RefreshTokenExpiration string `yaml:"refresh_token_expiration" env:"JWT_REFRESH_TOKEN_EXPIRATION"`
		ResetTokenExpiration   string `yaml:"reset_token_expiration" env:"JWT_RESET_TOKEN_EXPIRATION"`
		Issuer                 string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	SMTP struct {
		Enabled    bool   `yaml:"enabled" env:"SMTP_ENABLED"`
		Host       string `yaml:"host" env:"SMTP_HOST"`
		Port       int    `yaml:"port" env:"SMTP_PORT"`
		Username   string `yaml:"username" env:"SMTP_USERNAME"`
		Password   string `yaml:"password" env:"SMTP_PASSWORD"`
		From       string `yaml:"from" env:"SMTP_FROM"`
		FromName   string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		Encryption string `yaml:"encryption" env:"SMTP_ENCRYPTION"`
		AppURL     string `yaml:"app_url" env:"APP_URL"`
	} `yaml:"smtp"`

	OTP struct {
		Expiry         string `yaml:"expiry" env:"OTP_EXPIRY"`
		MaxAttempts    int    `yaml:"max_attempts" env:"OTP_MAX_ATTEMPTS"`
		ResendCooldown string `yaml:"resend_cooldown" env:"OTP_RESEND_COOLDOWN"`
		RequestLimit   int    `yaml:"request_limit" env:"OTP_REQUEST_LIMIT"`
		RequestWindow  string `yaml:"request_window" env:"OTP_REQUEST_WINDOW"`
		Retention      string `yaml:"retention" env:"OTP_RETENTION"`
	} `yaml:"otp"`

	Security struct {
		RateLimit struct {
			Store   string                   `yaml:"store" env:"RATE_LIMIT_STORE"`
			Actions map[string]RateLimitRule `yaml:"actions"`
		} `yaml:"rate_limit"`
		CSRF struct {
			Enabled  bool   `yaml:"enabled" env:"CSRF_ENABLED"`
			Lifetime string `yaml:"lifetime" env:"CSRF_LIFETIME"`
		} `yaml:"csrf"`
		IPLimit struct {
			RPS   float64 `yaml:"rps" env:"IP_LIMIT_RPS"`
			Burst int     `yaml:"burst" env:"IP_LIMIT_BURST"`
		} `yaml:"ip_limit"`
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
		} `yaml:"cors"`
	} `yaml:"security"`

	Storage struct {
		UploadDir     string `yaml:"upload_dir" env:"STORAGE_UPLOAD_DIR"`
		BaseURL       string `yaml:"base_url" env:"STORAGE_BASE_URL"`
		MaxAvatarSize int64  `yaml:"max_avatar_size" env:"STORAGE_MAX_AVATAR_SIZE"`
	} `yaml:"storage"`

	Jobs struct {
		Enabled              bool   `yaml:"enabled" env:"JOBS_ENABLED"`
		CleanupInterval      string `yaml:"cleanup_interval" env:"JOBS_CLEANUP_INTERVAL"`
		OverdueGoalsInterval string `yaml:"overdue_goals_interval" env:"JOBS_OVERDUE_GOALS_INTERVAL"`
	} `yaml:"jobs"`

	Admin struct {
		Email    string `yaml:"email" env:"ADMIN_EMAIL"`
		Username string `yaml:"username" env:"ADMIN_USERNAME"`
		Password string `yaml:"password" env:"ADMIN_PASSWORD"`
	} `yaml:"admin"`
}

// LoadConfig loads configuration from a file, a .env file and environment variables.
// Later sources win.
func LoadConfig(configPath string) (*Config, error) {
	// Load default config with sane defaults
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env never overrides variables that are already exported
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := applyEnv(config, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Server defaults
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.ReadTimeout = "15s"
	config.Server.WriteTimeout = "15s"
	config.Server.ShutdownTimeout = "10s"

	// Database defaults
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "campuswell"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Redis.Addr = "localhost:6379"
	config.Redis.Prefix = "campuswell:"

	// JWT defaults
	config.JWT.AccessTokenExpiration = "15m"
	config.JWT.RefreshTokenExpiration = "168h"
	config.JWT.ResetTokenExpiration = "15m"
	config.JWT.Issuer = "campuswell.app"

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.SMTP.Port = 587
	config.SMTP.FromName = "CampusWell"
	config.SMTP.Encryption = "starttls"
	config.SMTP.AppURL = "http://localhost:3000"

	config.OTP.Expiry = "10m"
	config.OTP.MaxAttempts = 3
	config.OTP.ResendCooldown = "60s"
	config.OTP.RequestLimit = 5
	config.OTP.RequestWindow = "15m"
	config.OTP.Retention = "24h"

	config.Security.RateLimit.Store = "memory"
	config.Security.CSRF.Enabled = true
	config.Security.CSRF.Lifetime = "30m"
	config.Security.IPLimit.RPS = 20
	config.Security.IPLimit.Burst = 40
	config.Security.CORS.AllowedOrigins = []string{"http://localhost:3000"}

	config.Storage.UploadDir = "uploads"
	config.Storage.BaseURL = "/uploads"
	config.Storage.MaxAvatarSize = 5 << 20

	config.Jobs.Enabled = true
	config.Jobs.CleanupInterval = "10m"
	config.Jobs.OverdueGoalsInterval = "1h"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	durations := map[string]string{
		"server read timeout":       config.Server.ReadTimeout,
		"server write timeout":      config.Server.WriteTimeout,
		"server shutdown timeout":   config.Server.ShutdownTimeout,
		"JWT access token expiry":   config.JWT.AccessTokenExpiration,
		"JWT refresh token expiry":  config.JWT.RefreshTokenExpiration,
		"JWT reset token expiry":    config.JWT.ResetTokenExpiration,
		"OTP expiry":                config.OTP.Expiry,
		"OTP resend cooldown":       config.OTP.ResendCooldown,
		"OTP request window":        config.OTP.RequestWindow,
		"OTP retention":             config.OTP.Retention,
		"CSRF lifetime":             config.Security.CSRF.Lifetime,
		"cleanup job interval":      config.Jobs.CleanupInterval,
		"overdue goals interval":    config.Jobs.OverdueGoalsInterval,
		"database connection reuse": config.Database.ConnMaxLifetime,
	}
	for name, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	for action, rule := range config.Security.RateLimit.Actions {
		if rule.MaxAttempts <= 0 {
			return fmt.Errorf("rate limit %s: max_attempts must be positive", action)
		}
		if _, err := time.ParseDuration(rule.Window); err != nil {
			return fmt.Errorf("rate limit %s: invalid window: %w", action, err)
		}
		if rule.BlockDuration != "" {
			if _, err := time.ParseDuration(rule.BlockDuration); err != nil {
				return fmt.Errorf("rate limit %s: invalid block duration: %w", action, err)
			}
		}
	}

	switch config.Security.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown rate limit store %q", config.Security.RateLimit.Store)
	}

	switch strings.ToLower(config.SMTP.Encryption) {
	case "ssl", "tls", "starttls", "none", "":
	default:
		return fmt.Errorf("unknown SMTP encryption %q", config.SMTP.Encryption)
	}

	if config.SMTP.Enabled && (config.SMTP.Host == "" || config.SMTP.From == "") {
		return fmt.Errorf("SMTP host and from address are required when SMTP is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

// Duration parses a validated duration string. Invalid values yield zero.
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
