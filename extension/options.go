package extension

import (
	"time"

	"github.com/xraph/attest"
	"github.com/xraph/attest/plugin"
	"github.com/xraph/attest/store"
)

// Option configures the attest Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes an attest.Option through to the underlying ledger.
func WithLedgerOption(opt attest.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, attest.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithWriteCheck enables the appending health check.
func WithWriteCheck() Option {
	return func(e *Extension) { e.config.WriteCheck = true }
}

// WithSerializedAppends serializes appends within this process.
func WithSerializedAppends() Option {
	return func(e *Extension) { e.config.SerializedAppends = true }
}

// WithRetry sets the conflict retry bounds.
func WithRetry(maxTries uint, initialInterval time.Duration) Option {
	return func(e *Extension) {
		e.config.RetryMaxTries = maxTries
		e.config.RetryInitialInterval = initialInterval
	}
}

// WithSigner selects the signing scheme and the environment variable
// holding its seed. See Config.Signer.
func WithSigner(kind, seedEnv string) Option {
	return func(e *Extension) {
		e.config.Signer = kind
		e.config.SeedEnv = seedEnv
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
