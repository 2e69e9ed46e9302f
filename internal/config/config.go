package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	LogLevel  string
	LogFormat string

	// Auth
	JWTSecret          string
	TokenExpiryMinutes int

	// Power BI service principal
	PowerBIClientID     string
	PowerBIClientSecret string
	PowerBITenantID     string
	PowerBIWorkspaceID  string

	// ML model artifacts
	ModelDir string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	// Alert recipients (comma-separated in env, split in Load)
	AlertRecipients []string

	// Frontend origins allowed by CORS
	AllowedOrigins []string

	DashboardURL string
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8000"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		JWTSecret:           getEnv("SECRET_KEY", ""),
		PowerBIClientID:     getEnv("POWERBI_CLIENT_ID", ""),
		PowerBIClientSecret: getEnv("POWERBI_CLIENT_SECRET", ""),
		PowerBITenantID:     getEnv("POWERBI_TENANT_ID", ""),
		PowerBIWorkspaceID:  getEnv("POWERBI_WORKSPACE_ID", ""),
		ModelDir:            getEnv("ML_MODEL_DIR", "models"),
		SMTPHost:            getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPUsername:        getEnv("SMTP_USERNAME", ""),
		SMTPPassword:        getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:            getEnv("SMTP_FROM", ""),
		DashboardURL:        getEnv("DASHBOARD_URL", "http://localhost:3000"),
	}

	var err error
	cfg.SMTPPort, err = getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.TokenExpiryMinutes, err = getEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	cfg.AlertRecipients = splitList(getEnv("ALERT_RECIPIENTS", ""))
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, fmt.Errorf("SECRET_KEY must be at least 16 characters")
	}

	// Power BI credentials: all three must be set together
	if cfg.PowerBIClientID != "" || cfg.PowerBIClientSecret != "" || cfg.PowerBITenantID != "" {
		if cfg.PowerBIClientID == "" || cfg.PowerBIClientSecret == "" || cfg.PowerBITenantID == "" {
			return nil, fmt.Errorf("POWERBI_CLIENT_ID, POWERBI_CLIENT_SECRET and POWERBI_TENANT_ID must be set together")
		}
	}

	// SMTP credentials: username and password come as a pair
	if (cfg.SMTPUsername == "") != (cfg.SMTPPassword == "") {
		return nil, fmt.Errorf("SMTP_USERNAME and SMTP_PASSWORD must be set together")
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	return cfg, nil
}

// PowerBIConfigured reports whether service principal credentials are present.
func (c *Config) PowerBIConfigured() bool {
	return c.PowerBIClientID != "" && c.PowerBIClientSecret != "" && c.PowerBITenantID != ""
}

// MailConfigured reports whether SMTP credentials are present.
func (c *Config) MailConfigured() bool {
	return c.SMTPUsername != "" && c.SMTPPassword != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
