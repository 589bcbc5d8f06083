package hostfuncs

import (
	"github.com/reglet-dev/cligate/domain/ports"
)

// Bundle is a set of related capabilities keyed by qualified name.
type Bundle map[string]ByteHandler

// Handlers returns a copy of the bundle's handlers.
func (b Bundle) Handlers() map[string]ByteHandler {
	out := make(map[string]ByteHandler, len(b))
	for name, h := range b {
		out[name] = h
	}
	return out
}

// SystemBundle returns the simulation control capabilities:
// system.pauseSimulation, system.resumeSimulation, system.getTickDuration,
// system.setTickDuration.
func SystemBundle(sim SimulationControl) Bundle {
	return systemHandlers(sim)
}

// MapBundle returns the room status capabilities backed by db's rooms
// collection: map.openRoom, map.closeRoom.
func MapBundle(db ports.Database) Bundle {
	return mapHandlers(db)
}

// AdminBundles returns every administrative capability.
func AdminBundles(sim SimulationControl, db ports.Database) Bundle {
	all := Bundle{}
	for _, b := range []Bundle{SystemBundle(sim), MapBundle(db)} {
		for name, h := range b {
			all[name] = h
		}
	}
	return all
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle Bundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle {
			if err := b.addHandler(name, handler); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithHandler registers a typed capability with automatic JSON handling.
//
// Example usage:
//
//	WithHandler("system.version", func(ctx context.Context, _ Args) (string, error) {
//	    return version, nil
//	})
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		handler := NewJSONHandler(fn)
		if err := b.addHandler(name, handler); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}
