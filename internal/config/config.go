package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes  int      `mapstructure:"JWT_TTL_MINUTES"`
	LedgerURL      string   `mapstructure:"LEDGER_URL"`
	LedgerTimeout  int      `mapstructure:"LEDGER_TIMEOUT_MS"`
	DIDMethod      string   `mapstructure:"DID_METHOD"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("LEDGER_TIMEOUT_MS", 3000)
	v.SetDefault("DID_METHOD", "hlf")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_TTL_MINUTES")
	v.BindEnv("LEDGER_URL")
	v.BindEnv("LEDGER_TIMEOUT_MS")
	v.BindEnv("DID_METHOD")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode without JWT_SECRET.")
		log.Println("WARNING: An ephemeral signing key will be generated at startup;")
		log.Println("WARNING: tokens will not survive a restart.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// JWTTTL returns the configured token lifetime.
func (c *Config) JWTTTL() time.Duration {
	if c.JWTTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// LedgerRequestTimeout returns the per-request deadline for DID registry calls.
func (c *Config) LedgerRequestTimeout() time.Duration {
	if c.LedgerTimeout <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.LedgerTimeout) * time.Millisecond
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be provided so that issued tokens survive restarts and
// are shared across instances.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf(
			"JWT_SECRET must be set when ENV is %q. "+
				"Refusing to start with an ephemeral signing key outside development", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.DIDMethod == "" {
		return fmt.Errorf("DID_METHOD must not be empty")
	}
	return nil
}
