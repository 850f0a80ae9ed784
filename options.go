package attest

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/attest/plugin"
	"github.com/xraph/attest/signature"
)

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithSigner sets the signing scheme. The default is signature.DigestSigner.
func WithSigner(s signature.Signer) Option {
	return func(l *Ledger) {
		l.signer = s
	}
}

// WithClock overrides the time source used for block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(l *Ledger) {
		l.tracer = tp.Tracer(instrumentationName)
	}
}

// WithSerializedAppends makes appends from this Ledger take a local lock.
// Conflicts with other processes are still resolved by the store.
func WithSerializedAppends() Option {
	return func(l *Ledger) {
		l.serialize = true
	}
}

// WithRetryPolicy configures AppendWithRetry.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(l *Ledger) {
		l.retry = p.withDefaults()
	}
}
