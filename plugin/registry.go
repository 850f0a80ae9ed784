package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/attest/block"
)

// DefaultHookTimeout bounds how long a single hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so emitting never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onBlockAppended      []OnBlockAppended
	onAppendConflict     []OnAppendConflict
	onAppendFailed       []OnAppendFailed
	onChainVerified      []OnChainVerified
	onIntegrityViolation []OnIntegrityViolation
	onBatchCommitted     []OnBatchCommitted
	onBatchSkipped       []OnBatchSkipped
	onHealthChecked      []OnHealthChecked
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnBlockAppended); ok {
		r.onBlockAppended = append(r.onBlockAppended, v)
	}
	if v, ok := p.(OnAppendConflict); ok {
		r.onAppendConflict = append(r.onAppendConflict, v)
	}
	if v, ok := p.(OnAppendFailed); ok {
		r.onAppendFailed = append(r.onAppendFailed, v)
	}
	if v, ok := p.(OnChainVerified); ok {
		r.onChainVerified = append(r.onChainVerified, v)
	}
	if v, ok := p.(OnIntegrityViolation); ok {
		r.onIntegrityViolation = append(r.onIntegrityViolation, v)
	}
	if v, ok := p.(OnBatchCommitted); ok {
		r.onBatchCommitted = append(r.onBatchCommitted, v)
	}
	if v, ok := p.(OnBatchSkipped); ok {
		r.onBatchSkipped = append(r.onBatchSkipped, v)
	}
	if v, ok := p.(OnHealthChecked); ok {
		r.onHealthChecked = append(r.onHealthChecked, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnBlockAppended)(nil)).Elem(), "OnBlockAppended"},
	{reflect.TypeOf((*OnAppendConflict)(nil)).Elem(), "OnAppendConflict"},
	{reflect.TypeOf((*OnAppendFailed)(nil)).Elem(), "OnAppendFailed"},
	{reflect.TypeOf((*OnChainVerified)(nil)).Elem(), "OnChainVerified"},
	{reflect.TypeOf((*OnIntegrityViolation)(nil)).Elem(), "OnIntegrityViolation"},
	{reflect.TypeOf((*OnBatchCommitted)(nil)).Elem(), "OnBatchCommitted"},
	{reflect.TypeOf((*OnBatchSkipped)(nil)).Elem(), "OnBatchSkipped"},
	{reflect.TypeOf((*OnHealthChecked)(nil)).Elem(), "OnHealthChecked"},
}

// implementedInterfaces returns the hook names the plugin implements.
func implementedInterfaces(p Plugin) []string {
	var out []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			out = append(out, h.name)
		}
	}
	return out
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnInit", func() error {
			return p.OnInit(ctx, ledger)
		})
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnShutdown", func() error {
			return p.OnShutdown(ctx)
		})
	}
}

// EmitBlockAppended calls OnBlockAppended for all plugins that implement it.
func (r *Registry) EmitBlockAppended(ctx context.Context, b *block.Block) {
	r.mu.RLock()
	plugins := r.onBlockAppended
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnBlockAppended", func() error {
			return p.OnBlockAppended(ctx, b.Clone())
		})
	}
}

// EmitAppendConflict calls OnAppendConflict for all plugins that implement it.
func (r *Registry) EmitAppendConflict(ctx context.Context, index uint64, recordID string) {
	r.mu.RLock()
	plugins := r.onAppendConflict
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnAppendConflict", func() error {
			return p.OnAppendConflict(ctx, index, recordID)
		})
	}
}

// EmitAppendFailed calls OnAppendFailed for all plugins that implement it.
func (r *Registry) EmitAppendFailed(ctx context.Context, recordType block.RecordType, recordID string, err error) {
	r.mu.RLock()
	plugins := r.onAppendFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnAppendFailed", func() error {
			return p.OnAppendFailed(ctx, recordType, recordID, err)
		})
	}
}

// EmitChainVerified calls OnChainVerified for all plugins that implement it.
func (r *Registry) EmitChainVerified(ctx context.Context, valid bool, checked uint64, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onChainVerified
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnChainVerified", func() error {
			return p.OnChainVerified(ctx, valid, checked, elapsed)
		})
	}
}

// EmitIntegrityViolation calls OnIntegrityViolation for all plugins that implement it.
func (r *Registry) EmitIntegrityViolation(ctx context.Context, index uint64, kind string) {
	r.mu.RLock()
	plugins := r.onIntegrityViolation
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnIntegrityViolation", func() error {
			return p.OnIntegrityViolation(ctx, index, kind)
		})
	}
}

// EmitBatchCommitted calls OnBatchCommitted for all plugins that implement it.
func (r *Registry) EmitBatchCommitted(ctx context.Context, b *block.Block, recordCount int) {
	r.mu.RLock()
	plugins := r.onBatchCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnBatchCommitted", func() error {
			return p.OnBatchCommitted(ctx, b.Clone(), recordCount)
		})
	}
}

// EmitBatchSkipped calls OnBatchSkipped for all plugins that implement it.
func (r *Registry) EmitBatchSkipped(ctx context.Context, windowStart, windowEnd time.Time) {
	r.mu.RLock()
	plugins := r.onBatchSkipped
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnBatchSkipped", func() error {
			return p.OnBatchSkipped(ctx, windowStart, windowEnd)
		})
	}
}

// EmitHealthChecked calls OnHealthChecked for all plugins that implement it.
func (r *Registry) EmitHealthChecked(ctx context.Context, healthy bool, chainLength uint64, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onHealthChecked
	r.mu.RUnlock()

	for _, p := range plugins {
		r.dispatch(ctx, p.Name(), "OnHealthChecked", func() error {
			return p.OnHealthChecked(ctx, healthy, chainLength, elapsed)
		})
	}
}

// dispatch runs one hook and logs its failure. Hook errors never reach
// the caller of the ledger operation.
func (r *Registry) dispatch(ctx context.Context, pluginName, hook string, fn func() error) {
	if err := r.callWithTimeout(ctx, pluginName, fn); err != nil {
		r.logger.Warn("plugin "+hook+" failed",
			"plugin", pluginName,
			"error", err,
		)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the append path.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
