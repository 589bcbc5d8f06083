// Package entities provides the core domain types of the gateway: caller
// identities and roles, the operator settings and the allow-list derived from
// them, the document model shared by every store backend, and the transient
// result of one execution.
package entities
