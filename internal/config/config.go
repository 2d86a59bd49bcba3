package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
	SLA      SLAConfig      `toml:"sla"`
	Shopify  ShopifyConfig  `toml:"shopify"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type SLAConfig struct {
	OffsetHours int `toml:"offset_hours"`
}

// ShopifyConfig wires the external store. Publishing stays disabled unless
// explicitly enabled with credentials.
type ShopifyConfig struct {
	Enabled     bool   `toml:"enabled"`
	ShopDomain  string `toml:"shop_domain"`
	AccessToken string `toml:"access_token"`
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8484",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		SLA: SLAConfig{
			OffsetHours: 48,
		},
		Shopify: ShopifyConfig{
			Enabled: false,
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server addr is required")
	}

	level := strings.TrimSpace(strings.ToLower(c.Logging.Level))
	if level != "" && !slices.Contains(validLogLevels, level) {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if c.SLA.OffsetHours < 0 {
		return errors.New("sla.offset_hours must be >= 0")
	}

	if c.Shopify.Enabled {
		if strings.TrimSpace(c.Shopify.ShopDomain) == "" {
			return errors.New("shopify.shop_domain is required when shopify.enabled")
		}
		if strings.TrimSpace(c.Shopify.AccessToken) == "" {
			return errors.New("shopify.access_token is required when shopify.enabled")
		}
	}

	return nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
