package ports

// RegistrationGate decides whether the instance may currently announce itself.
// When it returns false, the beacon withholds (or withdraws) registration and
// checks again on the next renewal.
type RegistrationGate interface {
	Allowed() bool
}

// GateFunc adapts a function to RegistrationGate.
type GateFunc func() bool

// Allowed calls f.
func (f GateFunc) Allowed() bool { return f() }
