package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`

	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// SessionStore selects the session backend: mongo, redis or memory.
	// Users always live in Mongo; memory is for local development only.
	SessionStore  string `mapstructure:"SESSION_STORE"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	JWTSecretKey  string `mapstructure:"JWT_SECRET_KEY"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`
	CookieName    string `mapstructure:"COOKIE_NAME"`

	VerificationTokenTTLHours int `mapstructure:"VERIFICATION_TOKEN_TTL_HOURS"`
	ResetTokenTTLMinutes      int `mapstructure:"RESET_TOKEN_TTL_MINUTES"`

	BrevoAPIKey      string `mapstructure:"BREVO_API_KEY"`
	BrevoSenderName  string `mapstructure:"BREVO_SENDER_NAME"`
	BrevoSenderEmail string `mapstructure:"BREVO_SENDER_EMAIL"`
	ClientURL        string `mapstructure:"CLIENT_URL"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// IsProduction reports whether the server runs with production hardening
// (secure cookies in particular).
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/authd/")
	v.AddConfigPath("$HOME/.authd")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/authd_dev")
	v.SetDefault("MONGO_DB_NAME", "authd_dev")
	v.SetDefault("SESSION_STORE", StoreMongo)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("TOKEN_TTL_HOURS", 168) // 7 days
	v.SetDefault("COOKIE_NAME", "token")
	v.SetDefault("VERIFICATION_TOKEN_TTL_HOURS", 24)
	v.SetDefault("RESET_TOKEN_TTL_MINUTES", 15)
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("OTEL_SERVICE_NAME", "authd-server")

	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	switch cfg.SessionStore {
	case StoreMongo, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE %q: must be %s, %s or %s",
			cfg.SessionStore, StoreMongo, StoreRedis, StoreMemory)
	}

	return &cfg, nil
}
