package metrics

import (
	"time"
)

// HTTPMetrics provides observability for the REST API server.
//
// This interface is optional - pass nil to disable metrics collection
// with zero overhead.
type HTTPMetrics interface {
	// RecordRequest records a completed HTTP request.
	//
	// Parameters:
	//   - method: HTTP method (e.g., "GET", "POST")
	//   - route: matched route pattern (e.g., "/api/search")
	//   - status: HTTP response status code
	//   - duration: time taken to serve the request
	RecordRequest(method string, route string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight request gauge.
	RecordRequestStart()

	// RecordRequestEnd decrements the in-flight request gauge.
	RecordRequestEnd()
}
