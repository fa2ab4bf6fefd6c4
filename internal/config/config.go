package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MinBcryptCost is the lowest work factor a deployment may configure
const MinBcryptCost = 12

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Admin    AdminConfig
}

type DatabaseConfig struct {
	Host              string        `env:"DB_HOST" envDefault:"localhost"`
	Port              int           `env:"DB_PORT" envDefault:"5432"`
	User              string        `env:"DB_USER" envDefault:"postgres"`
	Password          string        `env:"DB_PASSWORD"`
	Name              string        `env:"DB_NAME" envDefault:"adminpanel"`
	SSLMode           string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	MinConns          int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"5m"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"1m"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

type ServerConfig struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	TrustedProxies []string      `env:"TRUSTED_PROXIES" envSeparator:","`
	ReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
}

type AuthConfig struct {
	JWTAccessSecret    string        `env:"JWT_ACCESS_SECRET"`
	JWTRefreshSecret   string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
	ResetTokenExpiry   int           `env:"RESET_TOKEN_EXPIRY_HOURS" envDefault:"3"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"12"`
	CleanupInterval    time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	// Response padding for unauthenticated endpoints
	TimingBaseDelayMs    int  `env:"TIMING_BASE_DELAY_MS" envDefault:"100"`
	TimingRandomDelayMs  int  `env:"TIMING_RANDOM_DELAY_MS" envDefault:"50"`
	TimingDelayOnSuccess bool `env:"TIMING_DELAY_ON_SUCCESS" envDefault:"true"`
}

// ResetTokenTTL is the lifetime of a password reset token
func (c *AuthConfig) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenExpiry) * time.Hour
}

type EmailConfig struct {
	Provider     string `env:"EMAIL_PROVIDER" envDefault:"log"` // "log" or "ses"
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	FromAddress  string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@localhost"`
	ResetURLBase string `env:"PASSWORD_RESET_URL" envDefault:"http://localhost:3000/reset-password"`
}

// AdminConfig seeds the first administrator on startup when both are set
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}

	cfg.Server.AllowedOrigins = normalizeOrigins(cfg.Server.AllowedOrigins, cfg.Server.Env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for tools that do not serve
// requests
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := &DatabaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	if cfg.Password == "" {
		return nil, errors.New("DB_PASSWORD is required")
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTAccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}
	if c.Auth.JWTRefreshSecret == "" {
		return errors.New("JWT_REFRESH_SECRET is required")
	}
	if c.Auth.JWTAccessSecret == c.Auth.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if err := validateJWTSecret("JWT_ACCESS_SECRET", c.Auth.JWTAccessSecret, c.Server.Env); err != nil {
		return err
	}
	if err := validateJWTSecret("JWT_REFRESH_SECRET", c.Auth.JWTRefreshSecret, c.Server.Env); err != nil {
		return err
	}

	if c.Database.Password == "" {
		return errors.New("DB_PASSWORD is required")
	}

	if c.Auth.BcryptCost < MinBcryptCost {
		return fmt.Errorf("BCRYPT_COST must be at least %d (got %d)", MinBcryptCost, c.Auth.BcryptCost)
	}
	if c.Auth.ResetTokenExpiry <= 0 {
		return fmt.Errorf("RESET_TOKEN_EXPIRY_HOURS must be positive (got %d)", c.Auth.ResetTokenExpiry)
	}

	switch c.Email.Provider {
	case "log", "ses":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be \"log\" or \"ses\" (got %q)", c.Email.Provider)
	}

	// The log provider writes usable reset links to the application log
	if c.Email.Provider == "log" && c.Server.Env == "production" {
		return errors.New("EMAIL_PROVIDER=log is not allowed in production")
	}

	return nil
}

// validateJWTSecret enforces minimum security standards for a signing secret
func validateJWTSecret(name, secret, env string) error {
	// Minimum length based on environment
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func normalizeOrigins(origins []string, env string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	if len(cleaned) > 0 || env == "production" {
		return cleaned // production defaults to no origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
