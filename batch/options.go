package batch

import (
	"log/slog"

	"github.com/xraph/attest/plugin"
)

// Option configures a Hasher.
type Option func(*Hasher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hasher) {
		h.logger = logger
	}
}

// WithPlugins sets the registry batch events are emitted on.
func WithPlugins(r *plugin.Registry) Option {
	return func(h *Hasher) {
		h.plugins = r
	}
}
