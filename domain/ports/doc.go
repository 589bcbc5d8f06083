// Package ports defines the interfaces between the gateway engine and its
// collaborators: the collection store, the identity store, the host's
// session lifecycle and output transport, and settings persistence.
// Infrastructure adapters implement these interfaces.
package ports
