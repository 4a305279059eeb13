package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// cliConfig holds only the terminal client's display settings. Service
// settings (provider, endpoints, location) come from the environment.
type cliConfig struct {
	RefreshOnStart bool          `mapstructure:"refresh-on-start"`
	ListHeight     int           `mapstructure:"list-height"`
	ShowChart      bool          `mapstructure:"show-chart"`
	NearMeTimeout  time.Duration `mapstructure:"near-me-timeout"`
	LogFile        string        `mapstructure:"log-file"`
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".config", "quakewatch"), nil
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	dir, err := defaultConfigDir()
	if err != nil {
		return cfg, err
	}

	v := viper.New()
	v.SetEnvPrefix("QUAKEWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("refresh-on-start", true)
	v.SetDefault("list-height", 15)
	v.SetDefault("show-chart", true)
	v.SetDefault("near-me-timeout", 10*time.Second)
	v.SetDefault("log-file", filepath.Join(dir, "quakewatch.log"))

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(dir, "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if cfg.ListHeight < 1 {
		return cfg, fmt.Errorf("list-height must be positive, got %d", cfg.ListHeight)
	}
	return cfg, nil
}
