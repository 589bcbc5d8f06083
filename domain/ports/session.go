package ports

// SubmitFunc is the synchronous entry point installed into a session. It
// must return without waiting for the command to run.
type SubmitFunc func(code string) string

// Session is one caller's sandbox as exposed by the host.
type Session interface {
	// Inject installs fn under name in the caller's sandbox.
	Inject(name string, fn SubmitFunc) error
}

// SessionHost is the host process lifecycle the gateway plugs into.
type SessionHost interface {
	// OnSession registers hook, which the host invokes once per new caller
	// session with the caller's identity.
	OnSession(hook func(s Session, userID string)) error
}
