package backend

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values like "30s" or "15m" parse
// naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type AuthConfig struct {
	// JWTSecret is expected from the environment in any real deployment; the
	// yaml field exists for local development only.
	JWTSecret  string   `yaml:"jwtSecret" env:"POKESCAN_JWT_SECRET"`
	AccessTTL  Duration `yaml:"accessTTL"`
	RefreshTTL Duration `yaml:"refreshTTL"`
}

type VisionConfig struct {
	BaseURL string   `yaml:"baseURL" env:"POKESCAN_VISION_BASE_URL"`
	APIKey  string   `yaml:"apiKey" env:"POKESCAN_VISION_API_KEY"`
	Model   string   `yaml:"model"`
	Prompt  string   `yaml:"prompt"`
	Timeout Duration `yaml:"timeout"`
}

type PokeAPIConfig struct {
	BaseURL   string   `yaml:"baseURL" env:"POKESCAN_POKEAPI_BASE_URL"`
	Timeout   Duration `yaml:"timeout"`
	CacheSize int      `yaml:"cacheSize"`
	CacheTTL  Duration `yaml:"cacheTTL"`
}

type CacheConfig struct {
	// Type selects the memoization backend: "memory" (default) or "redis".
	Type      string `yaml:"type"`
	RedisAddr string `yaml:"redisAddr" env:"POKESCAN_REDIS_ADDR"`
}

type ScanConfig struct {
	TargetEdge     int   `yaml:"targetEdge"`
	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
}

type BackendConfig struct {
	Port              int           `yaml:"port"`
	Database          Database      `yaml:"database"`
	Auth              AuthConfig    `yaml:"auth"`
	Vision            VisionConfig  `yaml:"vision"`
	PokeAPI           PokeAPIConfig `yaml:"pokeapi"`
	Cache             CacheConfig   `yaml:"cache"`
	Scan              ScanConfig    `yaml:"scan"`
	MaxCollectionSize int           `yaml:"maxCollectionSize"`
	CORSOrigins       []string      `yaml:"corsOrigins"`
}

// LoadConfig loads configuration from the specified YAML file, then applies
// environment variable overrides for secrets and addresses.
func LoadConfig(configPath string) (*BackendConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config BackendConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	// Environment overrides take precedence over file values
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(config *BackendConfig) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Database.ConnectionString == "" {
		config.Database.ConnectionString = "pokescan.db"
	}
	if config.Auth.AccessTTL == 0 {
		config.Auth.AccessTTL = Duration(30 * time.Minute)
	}
	if config.Auth.RefreshTTL == 0 {
		config.Auth.RefreshTTL = Duration(7 * 24 * time.Hour)
	}
	if config.Vision.Timeout == 0 {
		config.Vision.Timeout = Duration(30 * time.Second)
	}
	if config.PokeAPI.Timeout == 0 {
		config.PokeAPI.Timeout = Duration(30 * time.Second)
	}
	if config.PokeAPI.CacheSize == 0 {
		config.PokeAPI.CacheSize = 500
	}
	if config.Cache.Type == "" {
		config.Cache.Type = "memory"
	}
	if config.Scan.TargetEdge == 0 {
		config.Scan.TargetEdge = 800
	}
	if config.Scan.MaxUploadBytes == 0 {
		config.Scan.MaxUploadBytes = 10 << 20 // 10 MiB
	}
	if config.MaxCollectionSize == 0 {
		config.MaxCollectionSize = 15
	}
}

func validateConfig(config *BackendConfig) error {
	if config.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret (or POKESCAN_JWT_SECRET) is required")
	}
	if config.Vision.APIKey == "" {
		return fmt.Errorf("vision.apiKey (or POKESCAN_VISION_API_KEY) is required")
	}
	switch config.Cache.Type {
	case "memory":
	case "redis":
		if config.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redisAddr (or POKESCAN_REDIS_ADDR) is required for the redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", config.Cache.Type)
	}
	return nil
}
