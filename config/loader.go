package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/lewisian8787/wrestleguess/logging"
)

// EnvPrefix prefixes every environment variable the service reads
const EnvPrefix = "WG_"

// ConfigFileEnv names the variable pointing at an optional YAML config file
const ConfigFileEnv = "WG_CONFIG"

// Load builds a Config by layering, lowest precedence first:
//  1. Default()
//  2. a .env file in the working directory (copied into the process env)
//  3. the YAML file named by WG_CONFIG, if set
//  4. WG_-prefixed environment variables (WG_DB_DRIVER -> db_driver)
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal outside development
		logging.Debugf("Could not load .env file: %v", err)
	}

	return load(os.Getenv(ConfigFileEnv))
}

// listKeys are read from the environment as comma-separated lists
var listKeys = map[string]bool{
	"cors_origins": true,
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
