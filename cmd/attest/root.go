package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/xraph/attest"
	"github.com/xraph/attest/store/leveldb"
)

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	dbPath     string
	signer     string
	verbose    bool

	cfg    config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "attest",
		Short:         "Tamper-evident ledger CLI",
		Long:          "Append fingerprints to a local hash-linked ledger and verify its integrity.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.configPath, "config", "attest.yaml", "config file")
	f.StringVar(&c.dbPath, "db", "", "ledger database directory (overrides db_path)")
	f.StringVar(&c.signer, "signer", "", "signing scheme: digest or ed25519 (overrides signer)")
	f.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.appendCmd(),
		c.verifyCmd(),
		c.showCmd(),
		c.batchCmd(),
		c.healthCmd(),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := loadConfig(c.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if c.dbPath != "" {
		cfg.DBPath = c.dbPath
	}
	if c.signer != "" {
		cfg.Signer = c.signer
	}
	c.cfg = cfg

	logger := pterm.DefaultLogger
	if c.verbose {
		logger = *logger.WithLevel(pterm.LogLevelDebug)
	}
	c.logger = slog.New(pterm.NewSlogHandler(&logger))
	return nil
}

// open opens the ledger; the returned func closes it.
func (c *cli) open(ctx context.Context) (*attest.Ledger, func(), error) {
	signer, err := newSigner(c.cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := leveldb.Open(c.cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	l := attest.New(st,
		attest.WithLogger(c.logger),
		attest.WithSigner(signer),
		attest.WithRetryPolicy(attest.RetryPolicy{MaxTries: c.cfg.RetryMaxTries}),
	)
	if err := l.Start(ctx); err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := l.Stop(); err != nil {
			c.logger.Warn("close ledger", "error", err)
		}
	}
	return l, closeFn, nil
}
