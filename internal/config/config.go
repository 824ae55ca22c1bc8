package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 2400
	defaultEnv      = "development"
	defaultDBDriver = "mysql"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/classpod?charset=utf8mb4&parseTime=True&loc=Local"
	defaultTokenTTL = 4 // hours, session join tokens
	minSecretLength = 16
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	Database       DatabaseConfig `yaml:"database"`
	RedisURL       string         `yaml:"redis_url"`
	JWTSecret      string         `yaml:"jwt_secret"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	TokenTTLHours  int            `yaml:"token_ttl_hours"`
}

// DatabaseConfig selects the gorm driver and its connection string.
// Driver "sqlite" uses Path (":memory:" allowed); "mysql" uses DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Path   string `yaml:"path"`
}

// Load reads and validates the YAML config file. A missing file yields
// defaults so a dev instance can start with no config at all.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	cfg := &AppConfig{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err) && configPath == "":
		// fall through to defaults
	case os.IsNotExist(err):
		return nil, fmt.Errorf("config file not found: %s", path)
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDBDriver
	}
	if c.Database.Driver == "mysql" && c.Database.DSN == "" {
		c.Database.DSN = defaultDSN
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "classpod.db"
	}
	if c.TokenTTLHours <= 0 {
		c.TokenTTLHours = defaultTokenTTL
	}
}

func (c *AppConfig) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if !c.IsDev() && len(c.JWTSecret) < minSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d characters in production", minSecretLength)
	}
	return nil
}

// IsDev reports whether the instance runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}
