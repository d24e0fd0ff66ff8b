/*
Package metrics keeps process-wide counters for the realtime core on top of go-metrics.

Counters are registered lazily by name. A periodic JSON report can be written to any
writer, and a one-shot snapshot backs the HTTP surface's metrics endpoint.
*/
package metrics

import (
	"io"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Counter names used across the core.
const (
	BusPublished     = "bus.published"
	BusDelivered     = "bus.delivered"
	BusHandlerErrors = "bus.handler_errors"
	BusSubscribers   = "bus.subscribers"

	TransportSent    = "transport.sent"
	TransportRecv    = "transport.recv"
	TransportDropped = "transport.dropped"
	TransportOpen    = "transport.open"

	SessionMalformed     = "session.malformed_frames"
	SessionUnknownSender = "session.unknown_sender"

	MediaShared = "media.shared"
	MediaFailed = "media.failed"
)

var registry = gometrics.NewRegistry()

// Registry exposes the underlying registry, mainly for reporters.
func Registry() gometrics.Registry {
	return registry
}

// Incr increments the named counter by i.
func Incr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, registry).Inc(i)
}

// Decr decrements the named counter by i.
func Decr(name string, i int64) {
	gometrics.GetOrRegisterCounter(name, registry).Dec(i)
}

// Count returns the current value of the named counter.
func Count(name string) int64 {
	return gometrics.GetOrRegisterCounter(name, registry).Count()
}

// Start writes a JSON snapshot of every counter to w once per tick until the process exits.
// A non-positive tick disables reporting.
func Start(tick time.Duration, w io.Writer) {
	if tick <= 0 {
		return
	}
	go gometrics.WriteJSON(registry, tick, w)
}

// WriteOnce writes a single JSON snapshot of every counter to w.
func WriteOnce(w io.Writer) {
	gometrics.WriteJSONOnce(registry, w)
}
