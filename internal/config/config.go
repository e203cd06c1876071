package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config holds the user-facing options. Values come from an optional YAML
// file, then FSBLOCK_* environment variables, then command-line flags.
type Config struct {
	Env              string   `yaml:"env" env:"FSBLOCK_ENV" env-default:"local"`
	Path             string   `yaml:"path" env:"FSBLOCK_PATH"`
	NoRecurse        bool     `yaml:"norecurse" env:"FSBLOCK_NORECURSE"`
	Verbose          bool     `yaml:"verbose" env:"FSBLOCK_VERBOSE"`
	Watch            bool     `yaml:"watch" env:"FSBLOCK_WATCH"`
	NoFeedback       bool     `yaml:"nofeedback" env:"FSBLOCK_NOFEEDBACK"`
	Command          string   `yaml:"command" env:"FSBLOCK_COMMAND"`
	ForwardFileName  bool     `yaml:"forward" env:"FSBLOCK_FORWARD"`
	NoWaitForCommand bool     `yaml:"nocmdwait" env:"FSBLOCK_NOCMDWAIT"`
	IgnorePaths      []string `yaml:"ignore" env:"FSBLOCK_IGNORE" env-separator:" "`
}

// Load reads configPath when it is set, otherwise the environment only.
// Priority: env > file > default.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read environment: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// ConfigPath returns the config file named by FSBLOCK_CONFIG, if any.
func ConfigPath() string {
	return os.Getenv("FSBLOCK_CONFIG")
}
