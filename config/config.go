package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the vault node configuration. Domain sections mirror the engine
// policies; the flat fields configure the node itself.
type Config struct {
	ListenAddress   string  `toml:"ListenAddress"`
	DataDir         string  `toml:"DataDir"`
	Environment     string  `toml:"Environment"`
	LogLevel        string  `toml:"LogLevel"`
	AuthToken       string  `toml:"AuthToken"`
	AuthTokenEnv    string  `toml:"AuthTokenEnv"`
	RateLimitPerSec float64 `toml:"RateLimitPerSec"`
	RateBurst       int     `toml:"RateBurst"`

	Ledger     Ledger     `toml:"ledger"`
	Token      Token      `toml:"token"`
	Collection Collection `toml:"collection"`
	Policy     Policy     `toml:"policy"`
	Audit      Audit      `toml:"audit"`
}

// Ledger names the vault's own contract identity and the budget handed to
// nested queries.
type Ledger struct {
	Identity  string `toml:"Identity"`
	QueryFuel uint64 `toml:"QueryFuel"`
}

// Token describes the fungible token the vault issues.
type Token struct {
	Name         string `toml:"Name"`
	Symbol       string `toml:"Symbol"`
	MaxSupply    int64  `toml:"MaxSupply"`
	ClaimCap     int64  `toml:"ClaimCap"`
	ExchangeRate int64  `toml:"ExchangeRate"`
}

// Collection pins the eligible membership.
type Collection struct {
	Block   int64   `toml:"Block"`
	Members []int64 `toml:"Members"`
}

// Policy selects the staking variant.
type Policy struct {
	ValuePerStake       int64  `toml:"ValuePerStake"`
	TimelockEnabled     bool   `toml:"TimelockEnabled"`
	MinLockBlocks       uint64 `toml:"MinLockBlocks"`
	ReceiptsEnabled     bool   `toml:"ReceiptsEnabled"`
	MaxReceiptInstances uint64 `toml:"MaxReceiptInstances"`
}

// Audit toggles the sqlite operation recorder.
type Audit struct {
	Enabled bool   `toml:"Enabled"`
	Path    string `toml:"Path"`
}

// Load reads the configuration at path, creating a default file when none
// exists. Infra fields get defaults; domain fields are checked by Validate.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = ":8545"
	}
	if c.DataDir == "" {
		c.DataDir = "./vault-data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitPerSec == 0 {
		c.RateLimitPerSec = 10
	}
	if c.RateBurst == 0 {
		c.RateBurst = 20
	}
	if c.Ledger.QueryFuel == 0 {
		c.Ledger.QueryFuel = 10_000
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(c.DataDir, "audit.db")
	}
}

// ResolveAuthToken returns the bearer token, preferring the literal value and
// falling back to the configured environment variable. Empty means the RPC
// server runs unauthenticated.
func (c *Config) ResolveAuthToken() string {
	if c.AuthToken != "" {
		return c.AuthToken
	}
	if c.AuthTokenEnv != "" {
		return os.Getenv(c.AuthTokenEnv)
	}
	return ""
}

// createDefault creates and saves a development default: local collection,
// one-unit stakes, and the stock token economics.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:   ":8545",
		DataDir:         "./vault-data",
		Environment:     "dev",
		LogLevel:        "info",
		RateLimitPerSec: 10,
		RateBurst:       20,
		Ledger: Ledger{
			Identity:  "1:1",
			QueryFuel: 10_000,
		},
		Token: Token{
			Name:         "Orbital Fuel",
			Symbol:       "FUEL",
			MaxSupply:    250_000_000,
			ClaimCap:     25_000,
			ExchangeRate: 25_000,
		},
		Collection: Collection{
			Block:   1,
			Members: []int64{1, 2, 3},
		},
		Policy: Policy{
			ValuePerStake: 1,
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
