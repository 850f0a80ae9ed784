package extension

import (
	"time"

	"github.com/xraph/attest/signature"
)

// Config holds the attest extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.attest" or "attest" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// WriteCheck makes the health check append a synthetic HEALTH_PROBE
	// block on every run (default: false).
	WriteCheck bool `json:"write_check" mapstructure:"write_check" yaml:"write_check"`

	// RetryMaxTries bounds AppendWithRetry attempts (default: 8).
	RetryMaxTries uint `json:"retry_max_tries" mapstructure:"retry_max_tries" yaml:"retry_max_tries"`

	// RetryInitialInterval is the first backoff delay after a conflict
	// (default: 5ms).
	RetryInitialInterval time.Duration `json:"retry_initial_interval" mapstructure:"retry_initial_interval" yaml:"retry_initial_interval"`

	// SerializedAppends serializes appends within this process before they
	// reach the store.
	SerializedAppends bool `json:"serialized_appends" mapstructure:"serialized_appends" yaml:"serialized_appends"`

	// Signer selects the signing scheme: "ed25519" or "digest". When empty,
	// Ed25519 is used if the seed variable is set and the unkeyed digest
	// scheme otherwise.
	Signer string `json:"signer" mapstructure:"signer" yaml:"signer"`

	// SeedEnv names the environment variable holding the hex Ed25519 master
	// seed (default: ATTEST_SIGNING_SEED).
	SeedEnv string `json:"seed_env" mapstructure:"seed_env" yaml:"seed_env"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryMaxTries:        8,
		RetryInitialInterval: 5 * time.Millisecond,
		SeedEnv:              signature.DefaultSeedEnv,
	}
}
