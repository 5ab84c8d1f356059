// Package shutdown provides the one-shot shutdown token shared by the host,
// its environment and the hosted application.
//
// A Token starts in the "not requested" state and moves to "requested"
// exactly once. Readers either poll Requested, block on Done, or pass
// Context to code that already understands context cancellation:
//
//	token := shutdown.New()
//	go func() {
//	    <-sigCh
//	    token.Request()
//	}()
//
//	select {
//	case <-token.Done():
//	    // stop accepting work
//	case <-work:
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package shutdown
