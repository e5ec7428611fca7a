// Package transport carries framed messages between the agent and the build
// coordinator.
//
// The session layer treats a Channel as a reliable, ordered, single-connection
// pipe with strict request/response pairing. Timeouts, reconnects, and retry
// policy live here or below, never in the session core: a RoundTrip either
// returns the paired response or an error that fails that one resolution.
package transport

// Channel is the request/response primitive the session layer speaks.
//
// Implementations must preserve pairing (the returned payload is the response
// to exactly the request passed in) but are not required to be safe for
// concurrent RoundTrip calls: the session serializes exchanges behind its
// communication lock.
type Channel interface {
	// RoundTrip sends one framed request and blocks until the paired
	// response frame arrives.
	RoundTrip(msgType byte, request []byte) ([]byte, error)

	// Close tears down the underlying connection. Any blocked RoundTrip
	// returns an error.
	Close() error
}
