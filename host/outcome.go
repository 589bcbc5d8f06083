package host

// Outcome is what a command evaluated to: either a concrete value or a
// Future still to be awaited.
type Outcome struct {
	value  any
	future *Future
}

// Immediate wraps a concrete value. A nil value means "no value".
func Immediate(v any) Outcome {
	return Outcome{value: v}
}

// Pending wraps an asynchronous result.
func Pending(f *Future) Outcome {
	return Outcome{future: f}
}

// IsPending reports whether the outcome must be awaited.
func (o Outcome) IsPending() bool {
	return o.future != nil
}

// Value returns the concrete value of an Immediate outcome.
func (o Outcome) Value() any {
	return o.value
}

// Future returns the future of a Pending outcome, nil otherwise.
func (o Outcome) Future() *Future {
	return o.future
}
