package core

// Finalizer is a scope-guard: an action that runs once, on Run, unless
// Cancel dismisses it first. Go has no destructors, so the caller plays the
// role of stack unwind with an explicit `defer f.Run()`.
type Finalizer struct {
	action func()
	active bool
}

// Finally returns a Finalizer wrapping action. Typical use:
//
//	release := core.Finally(func() { cleanedUp = true })
//	defer release.Run()
//	... commit to the resource succeeding ...
//	release.Cancel()
func Finally(action func()) *Finalizer {
	return &Finalizer{action: action, active: true}
}

// Cancel dismisses the action permanently; a later Run is then a no-op.
func (f *Finalizer) Cancel() {
	f.active = false
}

// Run invokes the action exactly once, unless Cancel was already called.
func (f *Finalizer) Run() {
	if !f.active {
		return
	}
	f.active = false
	f.action()
}
