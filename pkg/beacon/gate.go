package beacon

import "github.com/bft-labs/apphost/internal/ports"

// Gate decides whether the instance may currently be registered.
// When Allowed returns false, HTTP withholds or withdraws the registration
// and asks again on the next renewal.
type Gate = ports.RegistrationGate

// GateFunc adapts a function to Gate.
type GateFunc = ports.GateFunc

// HTTPClient sends directory requests. *http.Client satisfies it.
type HTTPClient = ports.HTTPClient
