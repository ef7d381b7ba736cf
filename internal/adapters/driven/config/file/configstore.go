package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/meiliwatch/meiliwatch/internal/core/domain"
)

// Environment variables overriding file values. Credentials normally arrive
// this way so config files can be committed without secrets.
const (
	EnvRoot      = "MEILIWATCH_ROOT"
	EnvHost      = "MEILI_HOST"
	EnvMasterKey = "MEILI_MASTER_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// fileConfig mirrors domain.Config with the debounce expressed as a duration
// string, which TOML has no native type for.
type fileConfig struct {
	domain.Config

	Debounce string `toml:"debounce"`
}

// Load reads the configuration file at path, applies environment overrides,
// fills defaults and validates. A missing file is not an error: everything
// can come from the environment.
func Load(path string) (*domain.Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	var raw fileConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrInvalidConfig, path, err)
		}
	case os.IsNotExist(err):
		// fall through to env-only configuration
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := raw.Config
	if raw.Debounce != "" {
		debounce, err := time.ParseDuration(raw.Debounce)
		if err != nil {
			return nil, fmt.Errorf("%w: debounce %q: %v", domain.ErrInvalidConfig, raw.Debounce, err)
		}
		cfg.Debounce = debounce
	}

	applyEnv(&cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if abs, err := filepath.Abs(cfg.RootDir); err == nil {
		cfg.RootDir = abs
	}
	return &cfg, nil
}

// DefaultPath is ~/.meiliwatch/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".meiliwatch", "config.toml")
}

func applyEnv(cfg *domain.Config) {
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.RootDir = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		cfg.Store.Host = v
	}
	if v := os.Getenv(EnvMasterKey); v != "" {
		cfg.Store.MasterKey = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		cfg.Embeddings.APIKey = v
	}
}
