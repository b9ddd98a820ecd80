package config

import (
	"fmt"
	"strings"

	"orbitalvault/core/types"
)

// Validate checks the domain sections. Infra fields are defaulted by Load and
// never fail validation.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress empty")
	}
	if c.RateLimitPerSec < 0 {
		return fmt.Errorf("config: RateLimitPerSec negative")
	}
	if _, err := types.ParseAssetID(c.Ledger.Identity); err != nil {
		return fmt.Errorf("ledger: invalid Identity %q: %w", c.Ledger.Identity, err)
	}
	if strings.TrimSpace(c.Token.Name) == "" || strings.TrimSpace(c.Token.Symbol) == "" {
		return fmt.Errorf("token: Name and Symbol required")
	}
	if c.Token.MaxSupply <= 0 {
		return fmt.Errorf("token: MaxSupply <= 0")
	}
	if c.Token.ClaimCap <= 0 {
		return fmt.Errorf("token: ClaimCap <= 0")
	}
	if c.Token.ExchangeRate <= 0 {
		return fmt.Errorf("token: ExchangeRate <= 0")
	}
	if c.Collection.Block <= 0 {
		return fmt.Errorf("collection: Block <= 0")
	}
	if len(c.Collection.Members) == 0 {
		return fmt.Errorf("collection: Members empty")
	}
	for _, member := range c.Collection.Members {
		if member <= 0 {
			return fmt.Errorf("collection: member %d <= 0", member)
		}
	}
	if c.Policy.ValuePerStake <= 0 {
		return fmt.Errorf("policy: ValuePerStake <= 0")
	}
	if c.Policy.TimelockEnabled && c.Policy.ReceiptsEnabled {
		return fmt.Errorf("policy: timelock and receipts are mutually exclusive")
	}
	if c.Audit.Enabled && strings.TrimSpace(c.Audit.Path) == "" {
		return fmt.Errorf("audit: Path required when enabled")
	}
	return nil
}
