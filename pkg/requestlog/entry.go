package requestlog

import "time"

// Entry captures complete details of one request/response cycle for
// debugging and inspection. Entries are immutable once stored.
type Entry struct {
	// Sequence is a monotonically increasing number assigned at
	// insertion. It defines the total order of capture and is never
	// reused, even after eviction or Clear.
	Sequence int64 `json:"sequence"`

	// Timestamp is when the request was captured.
	Timestamp time.Time `json:"timestamp"`

	// Request holds the captured request side.
	Request RequestInfo `json:"request"`

	// Response holds the captured response side.
	Response ResponseInfo `json:"response"`

	// ResponseTimeMs is the request processing time in milliseconds,
	// measured from request received to response sent.
	ResponseTimeMs int64 `json:"responseTime"`
}

// RequestInfo captures details about an incoming HTTP request.
type RequestInfo struct {
	// Method is the HTTP method (GET, POST, etc.).
	Method string `json:"method"`

	// Path is the request URL path.
	Path string `json:"path"`

	// Query is the raw query string.
	Query string `json:"query,omitempty"`

	// IP is the client address, honoring X-Forwarded-For when present.
	IP string `json:"ip,omitempty"`

	// Headers are the request headers. Values under sensitive field
	// names are masked at insertion.
	Headers map[string]any `json:"headers,omitempty"`

	// Body is the parsed request body when capture is configured for
	// it: decoded JSON where possible, a raw string otherwise.
	Body any `json:"body,omitempty"`
}

// ResponseInfo captures details about the outgoing HTTP response.
type ResponseInfo struct {
	// StatusCode is the HTTP status code that was sent.
	StatusCode int `json:"statusCode"`

	// Headers are the response headers, masked like request headers.
	Headers map[string]any `json:"headers,omitempty"`

	// Body is the captured response body, subject to the same capture
	// level and masking as the request body.
	Body any `json:"body,omitempty"`
}
