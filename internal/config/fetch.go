package config

import (
	"time"

	"github.com/spf13/pflag"
)

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	RPCURL       string
	Vault        string
	Pool         string
	Kind         string
	Block        uint64
	Out          string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
	LogFile      string
}

// DefaultVault is the Balancer v2 vault, deployed at the same address on
// every supported chain.
const DefaultVault = "0xBA12222222228d8Ba445958a75a0704d566BF2C8"

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"vault":         DefaultVault,
		"out":           "./data/pool.json",
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return FetchConfig{}, err
	}

	cfg := FetchConfig{
		RPCURL:       v.GetString("rpc"),
		Vault:        v.GetString("vault"),
		Pool:         v.GetString("pool"),
		Kind:         v.GetString("kind"),
		Block:        v.GetUint64("block"),
		Out:          v.GetString("out"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
		LogFile:      v.GetString("log-file"),
	}

	return cfg, nil
}
