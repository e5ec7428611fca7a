package metrics

// SessionMetrics instruments the virtual filesystem session: coordinator
// exchanges, table synchronization, and how lookups resolve.
//
// Implementations must be safe for concurrent use; every intercepted thread
// reports through the same instance.
type SessionMetrics interface {
	// ExchangeCompleted records one coordinator round trip.
	ExchangeCompleted(msgType string, seconds float64, ok bool)

	// TableDelta records delta bytes appended to a table stream
	// ("file" or "directory").
	TableDelta(table string, bytes int)

	// LookupResolved records how a resolution was answered: "local" (from
	// already-populated tables) or "remote" (a listing round trip was
	// required).
	LookupResolved(outcome string)

	// DrainPage counts one written-files drain page.
	DrainPage()
}

// noopSessionMetrics discards everything.
type noopSessionMetrics struct{}

func (noopSessionMetrics) ExchangeCompleted(string, float64, bool) {}
func (noopSessionMetrics) TableDelta(string, int)                 {}
func (noopSessionMetrics) LookupResolved(string)                  {}
func (noopSessionMetrics) DrainPage()                             {}

// NewNoopSessionMetrics returns a metrics sink that does nothing.
func NewNoopSessionMetrics() SessionMetrics {
	return noopSessionMetrics{}
}
