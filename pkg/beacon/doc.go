// Package beacon provides presence announcement for hosted applications.
//
// A beacon is started by the host when the application enters Running and
// stopped before the host leaves it. Two implementations are provided:
//
//   - [Noop]: does nothing, used when no service directory is configured
//   - [HTTP]: registers the replica with a service directory over HTTP,
//     renews the registration on an interval and removes it on Stop
//
// # HTTP Protocol
//
//	PUT    {DirectoryURL}/v1/replicas/{service}/{instance}   register / renew
//	DELETE {DirectoryURL}/v1/replicas/{service}/{instance}   deregister
//
// The PUT body is a JSON [Replica]. Failures are logged and retried with
// exponential backoff; they never affect the application lifecycle.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package beacon
