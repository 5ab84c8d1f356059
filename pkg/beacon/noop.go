package beacon

// Noop is a beacon that announces nothing.
type Noop struct{}

// NewNoop creates a Noop beacon.
func NewNoop() Noop { return Noop{} }

// Start does nothing.
func (Noop) Start() {}

// Stop does nothing.
func (Noop) Stop() {}
