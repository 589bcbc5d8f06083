package ports

// DenialHandler is called when the gateway refuses an execution or a view
// refuses an operation. Implementations can log, collect metrics, or take
// other actions.
type DenialHandler interface {
	// OnDenial is called when a request is denied.
	// kind: "admission", "authorization", "permission"
	// subject: the caller identity
	// reason: human-readable denial reason
	OnDenial(kind string, subject string, reason string)
}
