// Package extension provides the Forge extension adapter for attest.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
// The ledger, batch hasher and health probe are all provided in the
// container.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.attest" or "attest" keys.
package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/attest"
	"github.com/xraph/attest/batch"
	"github.com/xraph/attest/health"
	"github.com/xraph/attest/signature"
	"github.com/xraph/attest/store"
	"github.com/xraph/attest/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "attest"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Tamper-evident hash-linked integrity ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts attest as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *attest.Ledger
	hasher     *batch.Hasher
	probe      *health.Probe
	store      store.Store
	ledgerOpts []attest.Option
}

// New creates a new attest Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger. This is nil until Register is called.
func (e *Extension) Engine() *attest.Ledger { return e.engine }

// Hasher returns the batch hasher. This is nil until Register is called.
func (e *Extension) Hasher() *batch.Hasher { return e.hasher }

// Probe returns the health probe. This is nil until Register is called.
func (e *Extension) Probe() *health.Probe { return e.probe }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	if err := e.build(); err != nil {
		return err
	}
	if e.config.Signer == "" && e.engine.Signer().Scheme() == (signature.DigestSigner{}).Scheme() {
		e.Logger().Warn("attest: no signing seed configured, blocks carry unkeyed digest signatures",
			forge.F("seed_env", e.config.SeedEnv),
		)
	}

	if err := vessel.Provide(fapp.Container(), func() (*attest.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	if err := vessel.Provide(fapp.Container(), func() (*batch.Hasher, error) {
		return e.hasher, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*health.Probe, error) {
		return e.probe, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("attest: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. It runs the health probe and fails
// when the chain is unreachable, invalid, or (with write checks) unwritable.
func (e *Extension) Health(ctx context.Context) error {
	if e.probe == nil {
		return errors.New("attest: extension not initialized")
	}
	rep := e.probe.Check(ctx)
	if rep.Healthy() {
		return nil
	}
	return fmt.Errorf("attest: ledger unhealthy: %s", strings.Join(rep.Errors, "; "))
}

// build wires the ledger, hasher and probe from the resolved config.
func (e *Extension) build() error {
	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}
	e.engine = attest.New(e.store, opts...)
	e.hasher = batch.New(e.engine)
	e.probe = health.New(e.engine, health.WithWriteCheck(e.config.WriteCheck))
	return nil
}

// buildLedgerOpts constructs attest.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]attest.Option, error) {
	opts := make([]attest.Option, 0, len(e.ledgerOpts)+3)

	signer, err := signature.FromEnv(e.config.Signer, e.config.SeedEnv)
	if err != nil {
		return nil, fmt.Errorf("attest: configure signer: %w", err)
	}
	opts = append(opts, attest.WithSigner(signer))

	opts = append(opts, attest.WithRetryPolicy(attest.RetryPolicy{
		MaxTries:        e.config.RetryMaxTries,
		InitialInterval: e.config.RetryInitialInterval,
	}))
	if e.config.SerializedAppends {
		opts = append(opts, attest.WithSerializedAppends())
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("attest: configuration is required but not found in config files; " +
				"ensure 'extensions.attest' or 'attest' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("attest: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("write_check", e.config.WriteCheck),
		forge.F("retry_max_tries", e.config.RetryMaxTries),
		forge.F("retry_initial_interval", e.config.RetryInitialInterval),
		forge.F("serialized_appends", e.config.SerializedAppends),
		forge.F("signer", e.config.Signer),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.attest", "attest"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("attest: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("attest: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.RetryMaxTries == 0 {
		cfg.RetryMaxTries = defaults.RetryMaxTries
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = defaults.RetryInitialInterval
	}
	if cfg.SeedEnv == "" {
		cfg.SeedEnv = defaults.SeedEnv
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.WriteCheck {
		yamlConfig.WriteCheck = true
	}
	if programmaticConfig.SerializedAppends {
		yamlConfig.SerializedAppends = true
	}

	if yamlConfig.RetryMaxTries == 0 && programmaticConfig.RetryMaxTries != 0 {
		yamlConfig.RetryMaxTries = programmaticConfig.RetryMaxTries
	}
	if yamlConfig.RetryInitialInterval == 0 && programmaticConfig.RetryInitialInterval != 0 {
		yamlConfig.RetryInitialInterval = programmaticConfig.RetryInitialInterval
	}

	if yamlConfig.Signer == "" {
		yamlConfig.Signer = programmaticConfig.Signer
	}
	if yamlConfig.SeedEnv == "" {
		yamlConfig.SeedEnv = programmaticConfig.SeedEnv
	}

	return e.mergeWithDefaults(yamlConfig)
}
