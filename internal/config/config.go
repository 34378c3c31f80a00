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

	defaultPort       = 2330
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "mendian_core"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisURL   = "redis://localhost:6379/0"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	DSN            string         `yaml:"dsn"` // MySQL DSN, overrides database section
	Database       DatabaseConfig `yaml:"database"`
	RedisURL       string         `yaml:"redis_url"`
	Env            string         `yaml:"env"` // "development" | "production"
	AllowedOrigins []string       `yaml:"allowed_origins"`
	JWTSecret      string         `yaml:"jwt_secret"`
	Timezone       string         `yaml:"timezone"`
	Dispatch       DispatchConfig `yaml:"dispatch"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

// DispatchConfig tunes the scheduled due-task sweep.
type DispatchConfig struct {
	SweepIntervalSec int  `yaml:"sweep_interval_sec"`
	SweepLimit       int  `yaml:"sweep_limit"`
	SweepRetryFailed bool `yaml:"sweep_retry_failed"`
}

// Load reads the YAML config file, applying defaults for missing values. A
// missing file is not an error: everything has a development default.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.Env) == "" {
		c.Env = defaultEnv
	}
	if strings.TrimSpace(c.RedisURL) == "" {
		c.RedisURL = defaultRedisURL
	}
	if strings.TrimSpace(c.DSN) == "" {
		c.DSN = c.Database.DSNValue()
	}
	if c.Dispatch.SweepIntervalSec <= 0 {
		c.Dispatch.SweepIntervalSec = 60
	}
	if c.Dispatch.SweepLimit <= 0 {
		c.Dispatch.SweepLimit = 200
	}
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return !strings.EqualFold(strings.TrimSpace(c.Env), "production")
}
