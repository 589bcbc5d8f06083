// Package hostfuncs provides the administrative capabilities exposed to
// Elevated-tier commands (simulation control, room status) as a registry of
// named JSON handlers.
//
// Handlers are plain Go and know nothing about the interpreter: the host
// package encodes a command's positional arguments as a JSON array, invokes
// the handler by its qualified name ("system.getTickDuration") and decodes
// the JSON envelope that comes back.
package hostfuncs
