package observability

import "testing"

// NewMetrics registers every collector against the default Prometheus
// registerer, so only one instance may be created per test binary — all
// assertions live in one test function rather than one NewMetrics() call
// per subtest.
func TestMetrics_NilReceiverMethodsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveTurn(1)
	m.RecordToolDispatch("weather", "server", "success", 0.01)
	m.RecordProviderRequest("anthropic", "claude-sonnet", "success", 0.5)
	m.SessionConnected()
	m.SessionDisconnected()
}

func TestMetrics_RecordingMethodsDoNotPanic(t *testing.T) {
	m := NewMetrics()

	m.ObserveTurn(3)
	m.RecordToolDispatch("weather", "server", "success", 0.01)
	m.RecordToolDispatch("toggleDarkMode", "client", "timeout", 1.2)
	m.RecordProviderRequest("anthropic", "claude-sonnet-4-20250514", "success", 0.75)
	m.SessionConnected()
	m.SessionConnected()
	m.SessionDisconnected()
}
