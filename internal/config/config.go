package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev_secret_change_me"

type Config struct {
	Env string

	DBDriver string
	DBDSN    string

	ServerPort string
	CORSOrigin string

	JWTSecret     string
	TokenTTL      time.Duration
	SessionSecret string

	RedisURL   string
	RateLimit  int
	RateWindow time.Duration
	// TrustedProxies may set the client IP through X-Forwarded-For. Empty
	// means the socket address is always used.
	TrustedProxies []string

	LogLevel  string
	LogFormat string
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads the process environment, after pulling in an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any variable source.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		Env:        get("APP_ENV", "development"),
		DBDriver:   strings.ToLower(get("DB_DRIVER", "postgres")),
		DBDSN:      get("DB_DSN", ""),
		ServerPort: get("SERVER_PORT", "4000"),
		CORSOrigin: get("CORS_ORIGIN", "*"),
		JWTSecret:  get("JWT_SECRET", ""),
		RedisURL:   get("REDIS_URL", ""),
		LogLevel:   strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:  strings.ToLower(get("LOG_FORMAT", "text")),
	}

	var errs []error

	if cfg.DBDSN == "" {
		errs = append(errs, errors.New("DB_DSN is not set"))
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DB_DRIVER %q: must be postgres or sqlite", cfg.DBDriver))
	}
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			errs = append(errs, errors.New("JWT_SECRET is not set"))
		}
		cfg.JWTSecret = devJWTSecret
	}
	cfg.SessionSecret = get("SESSION_SECRET", cfg.JWTSecret)

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "168h")); err != nil {
		errs = append(errs, fmt.Errorf("TOKEN_TTL: %w", err))
	}
	if cfg.RateWindow, err = time.ParseDuration(get("RATE_WINDOW", "1m")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_WINDOW: %w", err))
	}
	if cfg.RateLimit, err = strconv.Atoi(get("RATE_LIMIT", "100")); err != nil || cfg.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT %q: must be a positive integer", get("RATE_LIMIT", "")))
	}

	for _, p := range strings.Split(get("TRUSTED_PROXIES", ""), ",") {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if !validProxy(p) {
			errs = append(errs, fmt.Errorf("TRUSTED_PROXIES %q: must be an IP or CIDR", p))
			continue
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, p)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validProxy(p string) bool {
	if strings.Contains(p, "/") {
		_, _, err := net.ParseCIDR(p)
		return err == nil
	}
	return net.ParseIP(p) != nil
}
