package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	AuthModeSession = "session"
	AuthModeToken   = "token"
)

type Config struct {
	Env                string
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration
	RequestTimeout     time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	// StoreTimeout bounds individual credential/user store calls made while
	// resolving a request. A timeout is treated as infrastructure failure,
	// never as a credential denial.
	StoreTimeout time.Duration

	// AuthMode selects the credential design for the whole process:
	// "session" (server-side opaque ids, revocable) or "token" (stateless
	// signed JWTs). The two are never mixed.
	AuthMode       string
	JWTSecret      string
	CookieName     string
	SessionTTL     time.Duration
	ResetTokenTTL  time.Duration
	LoginRedirect  string
	SessionSweep   time.Duration
	CORSOrigins    []string
	RateLimitRPM   int
	AuthRateLimit  int

	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	AvatarBucket  string
	AvatarMaxSize int64
	S3Region      string
	S3Endpoint    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                getEnv("ENV", EnvDevelopment),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		ServerReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
		ServerWriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:         int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:         int32(getInt("DB_MIN_CONNS", 2)),
		StoreTimeout:       getDuration("STORE_TIMEOUT", 5*time.Second),
		AuthMode:           strings.ToLower(getEnv("AUTH_MODE", AuthModeSession)),
		JWTSecret:          strings.TrimSpace(os.Getenv("JWT_SECRET")),
		CookieName:         getEnv("SESSION_COOKIE_NAME", "sid"),
		SessionTTL:         time.Duration(getInt("SESSION_TTL_DAYS", 1)) * 24 * time.Hour,
		ResetTokenTTL:      getDuration("RESET_TOKEN_TTL", 10*time.Minute),
		LoginRedirect:      getEnv("LOGIN_REDIRECT", "/login"),
		SessionSweep:       getDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		CORSOrigins:        splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimit:      getInt("AUTH_RATE_LIMIT_RPM", 10),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           getInt("SMTP_PORT", 587),
		SMTPFrom:           getEnv("SMTP_FROM", "noreply@taskmanager.local"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		AvatarBucket:       getEnv("AVATAR_BUCKET", ""),
		AvatarMaxSize:      getInt64("AVATAR_MAX_SIZE", 1048576),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("ENV must be %q or %q", EnvDevelopment, EnvProduction)
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.AuthMode != AuthModeSession && c.AuthMode != AuthModeToken {
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeSession, AuthModeToken)
	}

	if c.AuthMode == AuthModeToken && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in token mode")
	}

	if strings.TrimSpace(c.CookieName) == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME cannot be empty")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_DAYS must be positive")
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}

	if !strings.HasPrefix(c.LoginRedirect, "/") {
		return fmt.Errorf("LOGIN_REDIRECT must be an absolute path")
	}

	return nil
}

func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
