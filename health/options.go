package health

import (
	"log/slog"
	"time"

	"github.com/xraph/attest/plugin"
)

// Option configures a Probe.
type Option func(*Probe)

// WithWriteCheck enables appending a synthetic HEALTH_PROBE block on every
// check. Each enabled check grows the chain by one block.
func WithWriteCheck(enabled bool) Option {
	return func(p *Probe) {
		p.writeCheck = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Probe) {
		p.logger = logger
	}
}

// WithPlugins sets the registry health events are emitted on.
func WithPlugins(r *plugin.Registry) Option {
	return func(p *Probe) {
		p.plugins = r
	}
}

// WithClock sets the time source used for report timestamps.
func WithClock(clock func() time.Time) Option {
	return func(p *Probe) {
		p.clock = clock
	}
}
