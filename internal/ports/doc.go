// Package ports defines the narrow interfaces that connect host components
// to infrastructure they do not own.
//
// # Port Interfaces
//
//   - [HTTPClient]: HTTP request abstraction used by the beacon and the
//     state notifier, so tests can substitute a transport
//   - [RegistrationGate]: decides whether the beacon may keep the instance
//     registered in the service directory
//
// Implementations live next to their consumers: net/http.Client satisfies
// HTTPClient and the resourcegating plugin satisfies RegistrationGate.
package ports
