package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment  string `mapstructure:"ENVIRONMENT"`
	Port         int    `mapstructure:"PORT"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	FrontendURL  string `mapstructure:"FRONTEND_URL"`
	Version      string `mapstructure:"VERSION"`
	LogLevel     string `mapstructure:"LOG_LEVEL"`

	// JWT Configuration
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	RefreshSecret      string `mapstructure:"REFRESH_SECRET"`
	AccessTokenExpiry  string `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	RefreshTokenExpiry string `mapstructure:"REFRESH_TOKEN_EXPIRY"`

	AccessTokenDuration  time.Duration `mapstructure:"-"`
	RefreshTokenDuration time.Duration `mapstructure:"-"`

	// Security
	BcryptCost      int           `mapstructure:"BCRYPT_COST"`
	RateLimit       int           `mapstructure:"RATE_LIMIT"`
	AuthRateLimit   int           `mapstructure:"AUTH_RATE_LIMIT"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	BodyLimit       int64         `mapstructure:"BODY_LIMIT"`

	// Lifecycle
	ShutdownTimeout     time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	HealthCheckInterval time.Duration `mapstructure:"HEALTH_CHECK_INTERVAL"`
	DBMaxRetries        int           `mapstructure:"DB_MAX_RETRIES"`
}

// Development-only secrets used when none are configured
const (
	devJWTSecret     = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

// LoadConfig loads the configuration from environment variables and config files
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Set default values
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", 8000)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("VERSION", "1.0.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "7d")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT", 100) // 100 requests per window per IP
	v.SetDefault("AUTH_RATE_LIMIT", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", 15*time.Minute)
	v.SetDefault("BODY_LIMIT", 5<<20)
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("HEALTH_CHECK_INTERVAL", time.Minute)
	v.SetDefault("DB_MAX_RETRIES", 5)

	// Read environment variables
	v.AutomaticEnv()
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "REFRESH_SECRET", "COOKIE_DOMAIN"} {
		_ = v.BindEnv(key)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if !config.IsProduction() {
		if config.JWTSecret == "" {
			config.JWTSecret = devJWTSecret
		}
		if config.RefreshSecret == "" {
			config.RefreshSecret = devRefreshSecret
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks required values and derives token lifetimes. Every problem
// found is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT value: %d", c.Port))
	}
	if c.IsProduction() {
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET must be set in production"))
		}
		if c.RefreshSecret == "" {
			errs = append(errs, errors.New("REFRESH_SECRET must be set in production"))
		}
	}

	access, err := ParseExpiry(c.AccessTokenExpiry)
	if err != nil {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err))
	}
	refresh, err := ParseExpiry(c.RefreshTokenExpiry)
	if err != nil {
		errs = append(errs, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err))
	}
	c.AccessTokenDuration = access
	c.RefreshTokenDuration = refresh

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ParseExpiry parses token lifetimes such as "15m", "7d", "2w" or "3600"
// (bare numbers are seconds).
func ParseExpiry(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.New("empty duration")
	}

	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", value)
		}
		return time.Duration(secs) * time.Second, nil
	}

	unit := value[len(value)-1]
	if unit == 'd' || unit == 'w' {
		n, err := strconv.ParseFloat(value[:len(value)-1], 64)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid duration: %q", value)
		}
		day := 24 * time.Hour
		if unit == 'w' {
			day *= 7
		}
		return time.Duration(n * float64(day)), nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", value)
	}
	return d, nil
}
