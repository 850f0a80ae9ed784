// Package health reports whether a ledger is reachable, intact and,
// optionally, writable.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/attest"
	"github.com/xraph/attest/block"
	"github.com/xraph/attest/digest"
	"github.com/xraph/attest/id"
	"github.com/xraph/attest/plugin"
)

// Ledger is the ledger surface a Probe exercises.
type Ledger interface {
	Length(ctx context.Context) (uint64, error)
	VerifyChain(ctx context.Context) (*attest.VerificationResult, error)
	AppendWithRetry(ctx context.Context, req attest.AppendRequest) (*block.Block, error)
	VerifyByHash(ctx context.Context, h digest.Digest) (*block.Block, error)
	VerifyBlock(b *block.Block) error
}

// Report is the outcome of one probe run.
type Report struct {
	ChainReachable    bool                 `json:"chain_reachable"`
	ChainValid        bool                 `json:"chain_valid"`
	Writable          bool                 `json:"writable"`
	WriteChecked      bool                 `json:"write_checked"`
	ChainLength       uint64               `json:"chain_length"`
	FirstInvalidIndex *uint64              `json:"first_invalid_index,omitempty"`
	Reason            attest.ViolationKind `json:"reason,omitempty"`
	LastCheckedAt     time.Time            `json:"last_checked_at"`
	Duration          time.Duration        `json:"duration"`
	Errors            []string             `json:"errors,omitempty"`
}

// Healthy reports whether every performed check passed.
func (r Report) Healthy() bool {
	if !r.ChainReachable || !r.ChainValid {
		return false
	}
	return !r.WriteChecked || r.Writable
}

// Probe checks ledger health.
type Probe struct {
	ledger     Ledger
	plugins    *plugin.Registry
	logger     *slog.Logger
	clock      func() time.Time
	writeCheck bool
}

// New creates a Probe for l. Write checks are disabled unless enabled with
// WithWriteCheck. When l is an *attest.Ledger its plugin registry and
// logger are used unless overridden.
func New(l Ledger, opts ...Option) *Probe {
	p := &Probe{
		ledger: l,
		logger: slog.Default(),
		clock:  time.Now,
	}
	if al, ok := l.(*attest.Ledger); ok {
		p.plugins = al.Plugins()
		p.logger = al.Logger()
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.plugins == nil {
		p.plugins = plugin.NewRegistry().WithLogger(p.logger)
	}
	return p
}

// Check runs the probe. It never panics and never fails: every problem is
// recorded in the report.
func (p *Probe) Check(ctx context.Context) Report {
	start := p.clock()
	rep := Report{LastCheckedAt: start.UTC()}

	var (
		mu   sync.Mutex
		errs []string
	)
	addErr := func(format string, args ...any) {
		mu.Lock()
		errs = append(errs, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(safely(addErr, "length", func() {
		n, err := p.ledger.Length(ctx)
		if err != nil {
			addErr("length: %v", err)
			return
		}
		rep.ChainReachable = true
		rep.ChainLength = n
	}))
	var res *attest.VerificationResult
	g.Go(safely(addErr, "verify", func() {
		r, err := p.ledger.VerifyChain(ctx)
		if err != nil {
			addErr("verify: %v", err)
			return
		}
		res = r
	}))
	_ = g.Wait()

	if res != nil {
		rep.ChainValid = res.Valid
		rep.FirstInvalidIndex = res.FirstInvalidIndex
		rep.Reason = res.Reason
		if v := res.Violation(); v != nil {
			addErr("verify: %v", v)
		}
	}

	if p.writeCheck {
		rep.WriteChecked = true
		_ = safely(addErr, "write", func() {
			if err := p.checkWrite(ctx); err != nil {
				addErr("write: %v", err)
				return
			}
			rep.Writable = true
		})()
	}

	rep.Errors = errs
	rep.Duration = p.clock().Sub(start)

	if rep.Healthy() {
		p.logger.Debug("health: ledger healthy",
			"length", rep.ChainLength,
			"duration", rep.Duration,
		)
	} else {
		p.logger.Warn("health: ledger unhealthy",
			"reachable", rep.ChainReachable,
			"valid", rep.ChainValid,
			"writable", rep.Writable,
			"errors", rep.Errors,
		)
	}
	p.plugins.EmitHealthChecked(ctx, rep.Healthy(), rep.ChainLength, rep.Duration)
	return rep
}

// checkWrite appends a synthetic HEALTH_PROBE block and reads it back.
func (p *Probe) checkWrite(ctx context.Context) error {
	probeID := id.NewProbeID().String()
	b, err := p.ledger.AppendWithRetry(ctx, attest.AppendRequest{
		Payload:    []byte(probeID),
		RecordType: block.RecordHealthProbe,
		RecordID:   probeID,
		OwnerID:    block.SystemOwner,
	})
	if err != nil {
		return fmt.Errorf("append probe: %w", err)
	}

	got, err := p.ledger.VerifyByHash(ctx, b.BlockHash)
	if err != nil {
		return fmt.Errorf("read back probe %d: %w", b.Index, err)
	}
	if err := p.ledger.VerifyBlock(got); err != nil {
		return fmt.Errorf("verify probe %d: %w", b.Index, err)
	}
	return nil
}

func safely(addErr func(string, ...any), name string, fn func()) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				addErr("%s: panic: %v", name, r)
			}
		}()
		fn()
		return nil
	}
}
