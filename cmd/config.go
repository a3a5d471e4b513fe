package cmd

import (
	"fmt"

	"github.com/spf13/viper"
)

// InspectConfig holds settings that apply to every command.
type InspectConfig struct {
	DefaultOffset int64 `mapstructure:"default_offset"`
	CacheEnabled  bool  `mapstructure:"cache_enabled"`
	CacheBlocks   int   `mapstructure:"cache_blocks"`
}

// LoadInspectConfig reads configuration from fsinspect-config.yaml, the
// environment (FSINSPECT_* variables), and built-in defaults, in that
// order of precedence.
func LoadInspectConfig() (*InspectConfig, error) {
	viper.SetConfigName("fsinspect-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.fsinspect")
	viper.AddConfigPath("/etc/fsinspect")

	viper.SetDefault("default_offset", 0)
	viper.SetDefault("cache_enabled", true)
	viper.SetDefault("cache_blocks", 1024)

	viper.SetEnvPrefix("FSINSPECT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config InspectConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// effectiveOptions merges the config file with command-line flags, with
// flags winning.
func effectiveOptions(config *InspectConfig) (int64, int) {
	offset := config.DefaultOffset
	if byteOffset != 0 {
		offset = byteOffset
	}

	cacheBlocks := config.CacheBlocks
	if !config.CacheEnabled {
		cacheBlocks = -1
	}
	return offset, cacheBlocks
}
