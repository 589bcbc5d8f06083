// Package host provides the execution context commands run in.
//
// Every execution gets a fresh gopher-lua state holding the base, table,
// string and math libraries, the storage.db collection tables of the
// Database it was given, and for Elevated callers the capability modules of
// a hostfuncs registry. Collection methods and capabilities do not block:
// they return a Future, which the command may await() or return. Returning
// a Future makes the execution's Outcome Pending, and the caller decides
// how long to wait for it.
//
// The state is discarded when Run returns, so nothing a command defines
// survives into the next execution.
package host
