package hostfuncs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// HandlerRegistry is an immutable collection of named capabilities.
// Once created via NewRegistry, handlers cannot be added or removed, so
// lookups need no locking while commands execute concurrently.
type HandlerRegistry struct {
	handlers       map[string]ByteHandler
	names          []string // sorted
	maxRequestSize int
}

type registryBuilder struct {
	handlers       map[string]ByteHandler
	middleware     []Middleware
	errors         []error
	maxRequestSize int
}

// NewRegistry creates an immutable HandlerRegistry with the given options.
// Every malformed or duplicate capability name is reported in the joined
// error.
//
// Example usage:
//
//	registry, err := NewRegistry(
//	    WithMiddleware(PanicRecoveryMiddleware(), LoggingMiddleware(logger)),
//	    WithBundle(AdminBundles(sim, db)),
//	)
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{
		handlers:       make(map[string]ByteHandler),
		maxRequestSize: DefaultMaxRequestSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	if err := errors.Join(b.errors...); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(b.handlers))
	for name := range b.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware in reverse order so the first one wraps outermost.
	wrappedHandlers := make(map[string]ByteHandler, len(b.handlers))
	for name, handler := range b.handlers {
		wrapped := handler
		for i := len(b.middleware) - 1; i >= 0; i-- {
			wrapped = b.middleware[i](wrapped)
		}
		wrappedHandlers[name] = wrapped
	}

	return &HandlerRegistry{
		handlers:       wrappedHandlers,
		names:          names,
		maxRequestSize: b.maxRequestSize,
	}, nil
}

// Invoke dispatches a capability call by qualified name.
// Unknown names and oversized payloads produce ErrorResponse JSON.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	handler, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	if len(payload) > r.maxRequestSize {
		return NewTooLargeError(r.maxRequestSize).ToJSON(), nil
	}

	hctx := HostContextFrom(ctx, name)
	return handler(hctx, payload)
}

// Has returns true if a capability with the given name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns a sorted list of all registered capability names.
func (r *HandlerRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Modules returns the sorted distinct module prefixes ("map", "system").
func (r *HandlerRegistry) Modules() []string {
	var modules []string
	for _, name := range r.names {
		module, _ := SplitName(name)
		if len(modules) == 0 || modules[len(modules)-1] != module {
			modules = append(modules, module)
		}
	}
	return modules
}

// Functions returns the sorted function names registered under module.
func (r *HandlerRegistry) Functions(module string) []string {
	var fns []string
	for _, name := range r.names {
		if m, fn := SplitName(name); m == module {
			fns = append(fns, fn)
		}
	}
	return fns
}

// MaxRequestSize is the largest payload Invoke accepts.
func (r *HandlerRegistry) MaxRequestSize() int {
	return r.maxRequestSize
}

// SplitName splits "module.function" at its first dot.
func SplitName(name string) (module, function string) {
	module, function, _ = strings.Cut(name, ".")
	return module, function
}

func (b *registryBuilder) addHandler(name string, handler ByteHandler) error {
	if name == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	if module, fn := SplitName(name); module == "" || fn == "" || strings.Contains(fn, ".") {
		return fmt.Errorf("handler name %q must have the form module.function", name)
	}
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("duplicate handler name: %q", name)
	}
	b.handlers[name] = handler
	return nil
}

// WithByteHandler registers a raw ByteHandler with the given name.
// Use WithHandler for type-safe registration with automatic JSON handling.
func WithByteHandler(name string, handler ByteHandler) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithMaxRequestSize overrides DefaultMaxRequestSize.
func WithMaxRequestSize(n int) RegistryOption {
	return func(b *registryBuilder) {
		if n > 0 {
			b.maxRequestSize = n
		}
	}
}
