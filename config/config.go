package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/toneshift/toneshift/engine"
	"github.com/toneshift/toneshift/logger"
)

// Config selects and parametrizes the local generation engine.
type Config struct {
	Engine    string `mapstructure:"engine"`
	Enabled   bool   `mapstructure:"enabled"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	ModelName string `mapstructure:"model_name"`
	Binary    string `mapstructure:"binary"`
	ModelPath string `mapstructure:"model_path"`
	BatchID   string `mapstructure:"batch_id"`
	TellmURL  string `mapstructure:"tellm_url"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Engine:    "server",
		Enabled:   true,
		BaseURL:   "http://localhost:8080/v1",
		APIKey:    "local",
		ModelName: "",
		Binary:    "ollama",
		ModelPath: "",
		BatchID:   "toneshift",
		TellmURL:  "http://localhost:8000",
	}
}

// LoadConfig reads a config file over the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// NewEngine builds the configured engine adapter.
func (c *Config) NewEngine(l logger.Logger) (engine.Engine, error) {
	switch c.Engine {
	case "server":
		return engine.NewServerEngine(&engine.ServerConfig{
			Enabled:   c.Enabled,
			BaseURL:   c.BaseURL,
			APIKey:    c.APIKey,
			ModelName: c.ModelName,
			BatchID:   c.BatchID,
			TellmURL:  c.TellmURL,
		}, l), nil
	case "command":
		return engine.NewCommandEngine(&engine.CommandConfig{
			Enabled:   c.Enabled,
			Binary:    c.Binary,
			ModelName: c.ModelName,
			ModelPath: c.ModelPath,
		}, nil, l), nil
	default:
		return nil, fmt.Errorf("unknown engine kind: %q", c.Engine)
	}
}
