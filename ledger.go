package attest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/attest/block"
	"github.com/xraph/attest/plugin"
	"github.com/xraph/attest/signature"
	"github.com/xraph/attest/store"
)

const instrumentationName = "github.com/xraph/attest"

// Ledger is the append and verification engine for one chain.
//
// A Ledger keeps no tail cache: every append reads the tail from the store
// and the store's compare-and-swap decides which of two racing writers wins.
// Several Ledger values, in one process or many, may share a store.
type Ledger struct {
	store    store.Store
	verifier *Verifier
	plugins  *plugin.Registry
	logger   *slog.Logger
	signer   signature.Signer
	clock    func() time.Time
	tracer   trace.Tracer
	validate *validator.Validate

	// serialize, when set, holds appendMu across read-tail..persist so
	// goroutines of this process do not conflict with each other.
	serialize bool
	appendMu  sync.Mutex

	retry RetryPolicy
}

// New creates a new Ledger over s.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		signer:   signature.DigestSigner{},
		clock:    time.Now,
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
		validate: newValidator(),
		retry:    DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.verifier = NewVerifier(s, l.signer)

	return l
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("attest ledger started",
		"signer", l.signer.Scheme(),
		"serialized_appends", l.serialize,
		"retry_max_tries", l.retry.MaxTries,
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Signer returns the signing scheme blocks are signed and verified with.
func (l *Ledger) Signer() signature.Signer { return l.signer }

// Plugins returns the plugin registry. Components built on top of the
// ledger emit their own events through it.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Logger returns the ledger's logger.
func (l *Ledger) Logger() *slog.Logger { return l.logger }

// Verifier returns the read-only verifier bound to this ledger's store and signer.
func (l *Ledger) Verifier() *Verifier { return l.verifier }

// Length returns the number of blocks in the chain.
func (l *Ledger) Length(ctx context.Context) (uint64, error) {
	return l.store.Count(ctx)
}

// Tail returns the most recent block, or ErrChainEmpty.
func (l *Ledger) Tail(ctx context.Context) (*block.Block, error) {
	return l.store.ReadTail(ctx)
}

// BlockAt returns the block at index, or ErrBlockNotFound.
func (l *Ledger) BlockAt(ctx context.Context, index uint64) (*block.Block, error) {
	return l.store.FindByIndex(ctx, index)
}

// Blocks returns the whole chain in index order.
func (l *Ledger) Blocks(ctx context.Context) ([]*block.Block, error) {
	return l.store.ReadAllOrderedByIndex(ctx)
}
