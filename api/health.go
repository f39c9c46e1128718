// Package api defines public API contracts for shmregion.
package api

// Checker is a named health probe. The health registry evaluates all
// registered checkers when liveness or readiness is queried.
type Checker interface {
	Name() string
	Check() error
}

// CheckFunc adapts a named function to Checker.
type CheckFunc struct {
	Probe string
	Fn    func() error
}

// Name implements Checker.
func (c CheckFunc) Name() string { return c.Probe }

// Check implements Checker.
func (c CheckFunc) Check() error { return c.Fn() }
