package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quoting commands.
type QuoteConfig struct {
	Snapshot string
	TokenIn  string
	TokenOut string
	Token    string
	Amount   string
	Amounts  []string
	GivenOut bool

	// LastInvariant and ProtocolFee drive the fees command.
	LastInvariant string
	ProtocolFee   string

	Journal  string
	PGDSN    string
	LogLevel string
	LogFile  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"snapshot":     "./data/pool.json",
		"protocol-fee": "0.5",
		"log-level":    "info",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		Snapshot:      v.GetString("snapshot"),
		TokenIn:       v.GetString("token-in"),
		TokenOut:      v.GetString("token-out"),
		Token:         v.GetString("token"),
		Amount:        v.GetString("amount"),
		Amounts:       getStringSlice(v, "amounts"),
		GivenOut:      v.GetBool("given-out"),
		LastInvariant: v.GetString("last-invariant"),
		ProtocolFee:   v.GetString("protocol-fee"),
		Journal:       v.GetString("journal"),
		PGDSN:         v.GetString("pg-dsn"),
		LogLevel:      v.GetString("log-level"),
		LogFile:       v.GetString("log-file"),
	}

	return cfg, nil
}
