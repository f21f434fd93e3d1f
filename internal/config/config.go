package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Encryption EncryptionConfig
	JWT        JWTConfig
	Audit      AuditConfig
	Cache      CacheConfig
	LogLevel   string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// EncryptionConfig holds the secret used to derive the field encryption key.
// The service refuses to start without it.
type EncryptionConfig struct {
	Secret string
}

// JWTConfig holds the bearer token verification secret.
type JWTConfig struct {
	Secret string
}

// AuditConfig controls audit log retention.
type AuditConfig struct {
	RetentionDays        int
	CleanupIntervalHours int
}

// CacheConfig controls settings cache expiry.
type CacheConfig struct {
	TTLSeconds int
}

// Load reads configuration from a config file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("settings")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, environment variables still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("Server.Port", 8080)
	viper.SetDefault("Database.Host", "localhost")
	viper.SetDefault("Database.Port", 5432)
	viper.SetDefault("Database.User", "postgres")
	viper.SetDefault("Database.Name", "settings_registry")
	viper.SetDefault("Database.SSLMode", "disable")
	viper.SetDefault("Redis.Addr", "localhost:6379")
	viper.SetDefault("Redis.DB", 0)
	viper.SetDefault("Audit.RetentionDays", 90)
	viper.SetDefault("Audit.CleanupIntervalHours", 24)
	viper.SetDefault("Cache.TTLSeconds", 3600)
	viper.SetDefault("LogLevel", "info")
}
