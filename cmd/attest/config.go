package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xraph/attest/signature"
)

// Signer scheme names accepted by --signer.
const (
	signerDigest  = signature.KindDigest
	signerEd25519 = signature.KindEd25519
)

// config is the CLI configuration file.
type config struct {
	DBPath        string `yaml:"db_path"`
	Signer        string `yaml:"signer"`
	SeedEnv       string `yaml:"seed_env"`
	WriteCheck    bool   `yaml:"write_check"`
	RetryMaxTries uint   `yaml:"retry_max_tries"`
}

func defaultConfig() config {
	return config{
		DBPath:        "attest.db",
		Signer:        signerDigest,
		SeedEnv:       signature.DefaultSeedEnv,
		RetryMaxTries: 8,
	}
}

// loadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func loadConfig(path string, explicit bool) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// newSigner builds the signer named by cfg.Signer.
func newSigner(cfg config) (signature.Signer, error) {
	if cfg.Signer == "" {
		cfg.Signer = signerDigest
	}
	return signature.FromEnv(cfg.Signer, cfg.SeedEnv)
}
