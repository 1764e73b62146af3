// Package observability exposes the bridge's prometheus collectors.
//
// Collectors register on the default registry on first use; callers that
// serve /metrics use promhttp against prometheus.DefaultGatherer.
package observability
