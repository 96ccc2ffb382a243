// Package config loads server configuration from files and environment
// variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/vigil-scan-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/vigil-scan-server/")

	viper.SetEnvPrefix("VIGIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars carry a bare setup.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "60s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "vigil_scan")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")

	// History defaults
	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.sqlite_path", "./data/history.db")

	// Model API defaults: an OpenAI-compatible endpoint. The base URL
	// points at DashScope's compatible mode but any conforming endpoint
	// works.
	viper.SetDefault("model.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	viper.SetDefault("model.api_key", "")
	viper.SetDefault("model.vision_model", "qwen-vl-max")
	viper.SetDefault("model.reasoning_model", "qwen-plus")
	viper.SetDefault("model.timeout", "60s")
	viper.SetDefault("model.rate_limit", 5)

	// Object storage defaults
	viper.SetDefault("storage.base_url", "")
	viper.SetDefault("storage.bucket", "vigil-captures")
	viper.SetDefault("storage.api_key", "")
	viper.SetDefault("storage.facts_key", "medical-facts.json")
	viper.SetDefault("storage.timeout", "30s")
	viper.SetDefault("storage.inline_threshold", 1<<20)

	// Cache defaults
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.memory_size", 1000)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetModelConfig returns model endpoint configuration
func (m *Manager) GetModelConfig() *domain.ModelAPIConfig {
	return &m.config.Model
}

// GetStorageConfig returns object storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.History.Backend {
	case "sqlite":
		if config.History.SQLitePath == "" {
			return fmt.Errorf("sqlite history backend requires history.sqlite_path")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid history backend: %s", config.History.Backend)
	}

	if config.Model.APIKey != "" && config.Model.BaseURL == "" {
		return fmt.Errorf("model base URL is required when an API key is set")
	}
	if config.Model.RateLimit <= 0 {
		return fmt.Errorf("model rate limit must be positive")
	}
	if config.Storage.InlineThreshold <= 0 {
		return fmt.Errorf("storage inline threshold must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the URL form used by the migration runner.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
