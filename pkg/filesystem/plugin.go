package filesystem

import (
	"context"
	"sync"

	"go.uber.org/zap"

	fserrors "github.com/driftfs/driftfs/pkg/errors"
)

// Plugin is a named operation that can be registered against a Filesystem at
// runtime. The handler receives the facade instance, giving it access to the
// bound adapter and cache.
type Plugin interface {
	// Name returns the operation name the plugin registers under.
	Name() string

	// Call invokes the plugin. Whatever it returns, including any failure,
	// is propagated to the dispatcher unchanged.
	Call(ctx context.Context, fs *Filesystem, args ...interface{}) (interface{}, error)
}

// PluginFunc adapts a function into a Plugin.
type PluginFunc struct {
	name string
	fn   func(ctx context.Context, fs *Filesystem, args ...interface{}) (interface{}, error)
}

// NewPluginFunc creates a Plugin from a name and handler function.
func NewPluginFunc(name string, fn func(ctx context.Context, fs *Filesystem, args ...interface{}) (interface{}, error)) *PluginFunc {
	return &PluginFunc{name: name, fn: fn}
}

// Name implements Plugin.
func (p *PluginFunc) Name() string { return p.name }

// Call implements Plugin.
func (p *PluginFunc) Call(ctx context.Context, fs *Filesystem, args ...interface{}) (interface{}, error) {
	return p.fn(ctx, fs, args...)
}

// PluginRegistry maps operation names to handlers. Re-registering a name
// overwrites the prior binding; there is no ordering guarantee across
// distinct names.
type PluginRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Plugin
}

// NewPluginRegistry creates an empty registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{handlers: make(map[string]Plugin)}
}

// Register binds a plugin under its declared name.
func (r *PluginRegistry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[p.Name()] = p
}

// Lookup returns the handler bound to name, if any.
func (r *PluginRegistry) Lookup(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.handlers[name]
	return p, ok
}

// AddPlugin registers a plugin against this facade instance. It returns the
// receiver for chaining.
func (f *Filesystem) AddPlugin(p Plugin) *Filesystem {
	f.plugins.Register(p)
	f.logger.Debug("plugin registered", zap.String("plugin", p.Name()))
	return f
}

// Invoke dispatches a registered plugin operation by name. It fails with
// METHOD_NOT_FOUND when no handler is registered under name; otherwise the
// handler's result and error are returned unchanged.
func (f *Filesystem) Invoke(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	done := f.track("plugin:" + name)
	p, ok := f.plugins.Lookup(name)
	if !ok {
		err := fserrors.MethodNotFound(name)
		done(err)
		return nil, err
	}
	result, err := p.Call(ctx, f, args...)
	done(err)
	return result, err
}
