package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	Email       EmailConfig
	SMS         SMSConfig
	Google      GoogleConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
	Environment string
}

type ServerConfig struct {
	Host        string
	Port        int
	BaseURL     string
	FrontendURL string
}

type DatabaseConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret       string
	JWTExpiry       time.Duration
	EmailHashSecret string
	EncryptionKey   []byte
	EncryptionIV    []byte
	AuthCodeTTL     time.Duration
	BcryptCost      int
}

type EmailConfig struct {
	Enabled      bool
	Provider     string // "smtp" or "resend"
	From         string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	ResendAPIKey string
}

type SMSConfig struct {
	Enabled    bool
	AccountSID string
	AuthToken  string
	FromNumber string
}

type GoogleConfig struct {
	ClientID string
}

type RateLimitConfig struct {
	PublicPerMinute int
	UserPerMinute   int
	LoginPerMinute  int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "0.0.0.0"),
			Port:        getEnvInt("SERVER_PORT", 8080),
			BaseURL:     getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DB", "we-meet-offline"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			JWTExpiry:       time.Duration(getEnvInt("JWT_EXPIRY_MINUTES", 60)) * time.Minute,
			EmailHashSecret: getEnv("EMAIL_HASH_SECRET", ""),
			AuthCodeTTL:     time.Duration(getEnvInt("AUTH_CODE_TTL_SECONDS", 900)) * time.Second,
			BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			Enabled:      getEnvBool("EMAIL_ENABLED", false),
			Provider:     getEnv("EMAIL_PROVIDER", "smtp"),
			From:         getEnv("EMAIL_FROM", ""),
			FromName:     getEnv("EMAIL_FROM_NAME", "We Meet Offline"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		},
		SMS: SMSConfig{
			Enabled:    getEnvBool("SMS_ENABLED", false),
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		Google: GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: getEnvInt("RATE_LIMIT_PUBLIC", 120),
			UserPerMinute:   getEnvInt("RATE_LIMIT_USER", 300),
			LoginPerMinute:  getEnvInt("RATE_LIMIT_LOGIN", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Environment: getEnv("ENVIRONMENT", "development"),
	}

	if cfg.Database.URI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Auth.EmailHashSecret == "" {
		return Config{}, fmt.Errorf("EMAIL_HASH_SECRET is required")
	}

	key, err := hex.DecodeString(getEnv("ENCRYPTION_KEY", ""))
	if err != nil || len(key) != 32 {
		return Config{}, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}
	iv, err := hex.DecodeString(getEnv("ENCRYPTION_IV", ""))
	if err != nil || len(iv) != 16 {
		return Config{}, fmt.Errorf("ENCRYPTION_IV must be 32 hex characters (16 bytes)")
	}
	cfg.Auth.EncryptionKey = key
	cfg.Auth.EncryptionIV = iv

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
