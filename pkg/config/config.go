package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage drivers supported for the persisted session
const (
	StorageDriverFile     = "file"
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config holds all configuration for the clinic portal
type Config struct {
	// Backend REST API configuration
	Backend BackendConfig `mapstructure:"backend"`

	// Persisted session storage configuration
	Storage StorageConfig `mapstructure:"storage"`

	// Database configuration, used by the postgres storage driver
	Database DatabaseConfig `mapstructure:"database"`

	// Local companion server configuration
	Server ServerConfig `mapstructure:"server"`

	// Navigation targets
	Routes RoutesConfig `mapstructure:"routes"`

	// Tracing configuration
	Tracing TracingConfig `mapstructure:"tracing"`

	// Monitoring configuration
	Monitoring MonitoringConfig `mapstructure:"monitoring"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// BackendConfig holds the REST backend configuration
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// StorageConfig holds persisted session storage configuration
type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Path          string `mapstructure:"path"`
	Profile       string `mapstructure:"profile"`
	EncryptionKey string `mapstructure:"encryption_key"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// ServerConfig holds local companion server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// RoutesConfig holds the navigation targets issued by guards and logout
type RoutesConfig struct {
	Login   string `mapstructure:"login"`
	Default string `mapstructure:"default"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Environment  string  `mapstructure:"environment"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// Load loads configuration from an optional file, environment variables and defaults.
// An empty path searches the default locations.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("clinicctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".clinicctl"))
		}
		v.AddConfigPath("/etc/clinicctl")
	}

	setDefaults(v)

	v.SetEnvPrefix("CLINIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Storage.Path == "" && config.Storage.Driver == StorageDriverFile {
		config.Storage.Path = defaultStoragePath()
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8080/api")
	v.SetDefault("backend.timeout", 15)

	// Storage defaults
	v.SetDefault("storage.driver", StorageDriverFile)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.profile", "default")
	v.SetDefault("storage.encryption_key", "")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "clinic_portal")
	v.SetDefault("database.user", "clinic")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 300)

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7420)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.idle_timeout", 120)

	// Route defaults
	v.SetDefault("routes.login", "/login")
	v.SetDefault("routes.default", "/dashboard")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampling_rate", 1.0)
	v.SetDefault("tracing.environment", "workstation")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.health_path", "/health")

	// Logging defaults
	v.SetDefault("log_level", "info")
}

// defaultStoragePath returns the per-user session file location
func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "clinicctl", "session.json")
}

// validate validates the configuration
func validate(config *Config) error {
	u, err := url.Parse(config.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend base URL must be an absolute http(s) URL: %q", config.Backend.BaseURL)
	}

	if config.Backend.Timeout <= 0 {
		return fmt.Errorf("invalid backend timeout: %d", config.Backend.Timeout)
	}

	switch config.Storage.Driver {
	case StorageDriverFile:
		if config.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the file driver")
		}
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if config.Database.Password == "" {
			return fmt.Errorf("database password is required for the postgres driver")
		}
		if config.Storage.Profile == "" {
			return fmt.Errorf("storage profile is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver: %q", config.Storage.Driver)
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if !strings.HasPrefix(config.Routes.Login, "/") || !strings.HasPrefix(config.Routes.Default, "/") {
		return fmt.Errorf("routes must be absolute paths")
	}

	if config.Tracing.SamplingRate < 0 || config.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing sampling rate must be within [0,1]: %v", config.Tracing.SamplingRate)
	}

	return nil
}
