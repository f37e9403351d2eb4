package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	UI       UIConfig
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path           string
	MigrationsPath string `mapstructure:"migrations_path"`
}

// ImportConfig tunes the import engine.
type ImportConfig struct {
	// ProgressEvery throttles progress callbacks on long phases.
	ProgressEvery int `mapstructure:"progress_every"`
	// RegenerateColors enables deterministic palette regeneration for
	// legacy migrations.
	RegenerateColors bool `mapstructure:"regenerate_colors"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string
}

// Load reads configuration from file and env. Env var overrides use prefix TILLBOOK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "tillbook", "tillbook.db"))
	v.SetDefault("database.migrations_path", "internal/database/migrations")
	v.SetDefault("import.progress_every", 25)
	v.SetDefault("import.regenerate_colors", true)
	v.SetDefault("ui.date_format", "02/01")
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.timezone", "Local")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("TILLBOOK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "tillbook"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("TILLBOOK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := os.Getenv("TILLBOOK_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "tillbook", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations_path", cfg.Database.MigrationsPath)
	v.Set("import.progress_every", cfg.Import.ProgressEvery)
	v.Set("import.regenerate_colors", cfg.Import.RegenerateColors)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
