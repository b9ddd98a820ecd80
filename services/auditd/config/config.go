package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for the audit sidecar.
type Config struct {
	DatabasePath string       `yaml:"database"`
	OutputDir    string       `yaml:"output_dir"`
	Window       Duration     `yaml:"window"`
	Retention    Duration     `yaml:"retention"`
	Checks       ChecksConfig `yaml:"checks"`
}

// ChecksConfig carries the ledger limits audit runs verify against.
type ChecksConfig struct {
	ClaimCap  int64 `yaml:"claim_cap"`
	MaxSupply int64 `yaml:"max_supply"`
}

// Load reads configuration from the supplied path.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./vault-data/audit.db"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./vault-data/audit-reports"
	}
	if cfg.Window.Duration == 0 {
		cfg.Window.Duration = 24 * time.Hour
	}
	if cfg.Retention.Duration == 0 {
		cfg.Retention.Duration = 90 * 24 * time.Hour
	}
}

func validate(cfg Config) error {
	if cfg.Checks.MaxSupply <= 0 {
		return fmt.Errorf("checks.max_supply must be positive")
	}
	if cfg.Checks.ClaimCap <= 0 {
		return fmt.Errorf("checks.claim_cap must be positive")
	}
	if cfg.Window.Duration < time.Minute {
		return fmt.Errorf("window must be at least one minute")
	}
	return nil
}
