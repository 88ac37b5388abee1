// Package config loads layered CLI configuration: built-in defaults,
// an optional YAML file in the user config directory, then ESIOS_*
// environment variables on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/colthorp/esios-cli-go/internal/core"
)

// Config is the resolved CLI configuration.
type Config struct {
	Token          string      `koanf:"token"`
	BaseURL        string      `koanf:"base_url"`
	Timezone       string      `koanf:"timezone"`
	TimeoutSeconds int         `koanf:"timeout_seconds"`
	Cache          CacheConfig `koanf:"cache"`
}

// CacheConfig mirrors the cache store options.
type CacheConfig struct {
	Enabled         bool   `koanf:"enabled"`
	Dir             string `koanf:"dir"`
	RecentTTLHours  int    `koanf:"recent_ttl_hours"`
	MetaTTLDays     int    `koanf:"meta_ttl_days"`
	CatalogTTLHours int    `koanf:"catalog_ttl_hours"`
}

func defaultConfig() *Config {
	return &Config{
		BaseURL:        core.APIBaseURL,
		Timezone:       core.DefaultTZ,
		TimeoutSeconds: core.DefaultTimeoutSeconds,
		Cache: CacheConfig{
			Enabled:         true,
			Dir:             "",
			RecentTTLHours:  core.RecentTTLHours,
			MetaTTLDays:     core.MetaTTLDays,
			CatalogTTLHours: core.CatalogTTLHours,
		},
	}
}

// Path returns the user config file location.
func Path() string {
	return filepath.Join(core.ConfigDir(), "config.yaml")
}

// Load resolves the configuration. A .env file in the working
// directory is read first so ESIOS_API_KEY can live there during
// development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path := Path(); fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("ESIOS_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// envTransform maps ESIOS_* variables to config paths. Unknown
// variables are dropped so unrelated environment state cannot leak in.
func envTransform(key string) string {
	mappings := map[string]string{
		"ESIOS_API_KEY":           "token",
		"ESIOS_BASE_URL":          "base_url",
		"ESIOS_TIMEZONE":          "timezone",
		"ESIOS_TIMEOUT":           "timeout_seconds",
		"ESIOS_CACHE_DIR":         "cache.dir",
		"ESIOS_CACHE_ENABLED":     "cache.enabled",
		"ESIOS_CACHE_RECENT_TTL":  "cache.recent_ttl_hours",
		"ESIOS_CACHE_META_TTL":    "cache.meta_ttl_days",
		"ESIOS_CACHE_CATALOG_TTL": "cache.catalog_ttl_hours",
	}
	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}

// Get reads a single dotted key from the user config file.
func Get(key string) (interface{}, error) {
	k := koanf.New(".")
	path := Path()
	if fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if !k.Exists(key) {
		return nil, fmt.Errorf("key %q is not set", key)
	}
	return k.Get(key), nil
}

// Set writes a single dotted key into the user config file, creating
// it if needed. Values are stored as strings; Load coerces types.
func Set(key, value string) error {
	if !validKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	k := koanf.New(".")
	path := Path()
	if fileExists(path) {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Set(key, value); err != nil {
		return err
	}
	data, err := k.Marshal(yaml.Parser())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// validKey accepts the keys Load understands.
func validKey(key string) bool {
	known := []string{
		"token", "base_url", "timezone", "timeout_seconds",
		"cache.enabled", "cache.dir", "cache.recent_ttl_hours",
		"cache.meta_ttl_days", "cache.catalog_ttl_hours",
	}
	for _, k := range known {
		if key == k {
			return true
		}
	}
	return false
}

// ResolveToken picks the API key: explicit flag first, then the
// environment, then the config file.
func ResolveToken(flagValue string, cfg *Config) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := strings.TrimSpace(os.Getenv(core.APIKeyEnvVar)); envValue != "" {
		return envValue
	}
	return cfg.Token
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
