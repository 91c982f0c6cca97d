// Package middleware provides the net/http capture adapter.
//
// Handler wraps an http.Handler and records one requestlog.Entry per
// completed request/response cycle. Capture failures never affect the
// response sent to the original caller: the capture path recovers its
// own panics and the recorder's Add never blocks on I/O.
package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

// TraceHeader carries the per-request capture trace ID.
const TraceHeader = "X-Sniffer-Trace"

// maxBodyCapture caps how much of a body is retained per entry.
const maxBodyCapture = 64 * 1024

// Level controls how much of each request is captured.
type Level string

// Capture levels.
const (
	// LevelMinimal captures method, path, status, and timing only.
	LevelMinimal Level = "minimal"

	// LevelHeaders adds request and response headers, omitting bodies.
	LevelHeaders Level = "headers-only"

	// LevelFull adds request and response bodies.
	LevelFull Level = "full"
)

// ParseLevel parses a capture level string. Unrecognized values fall
// back to LevelHeaders.
func ParseLevel(s string) Level {
	switch s {
	case string(LevelMinimal):
		return LevelMinimal
	case string(LevelFull):
		return LevelFull
	default:
		return LevelHeaders
	}
}

// Middleware wraps an http.Handler and records captured entries.
type Middleware struct {
	next     http.Handler
	recorder requestlog.Recorder
	level    Level
	log      *slog.Logger
}

// New creates a capture middleware around next. A nil logger uses
// slog.Default().
func New(next http.Handler, recorder requestlog.Recorder, level Level, log *slog.Logger) *Middleware {
	if log == nil {
		log = slog.Default()
	}
	return &Middleware{next: next, recorder: recorder, level: level, log: log}
}

// Handler is a convenience for building middleware chains:
//
//	mux.Handle("/", middleware.Handler(store, middleware.LevelFull, nil)(appHandler))
func Handler(recorder requestlog.Recorder, level Level, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return New(next, recorder, level, log)
	}
}

// ServeHTTP implements http.Handler.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	traceID := uuid.New().String()
	w.Header().Set(TraceHeader, traceID)

	var requestBody []byte
	if m.level == LevelFull && r.Body != nil && r.ContentLength != 0 {
		// Read up to the capture cap and recombine with the remainder
		// so the wrapped handler sees the full body.
		buf := make([]byte, maxBodyCapture)
		n, _ := io.ReadFull(r.Body, buf)
		if n > 0 {
			requestBody = buf[:n]
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf[:n]), r.Body))
		}
	}

	capture := &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		maxCapture:     maxBodyCapture,
		captureBody:    m.level == LevelFull,
	}

	m.next.ServeHTTP(capture, r)

	elapsed := time.Since(start)
	m.record(r, capture, requestBody, elapsed)
}

// record builds and stores the entry. It runs after the response has
// been written and must never propagate a failure.
func (m *Middleware) record(r *http.Request, capture *responseCapture, requestBody []byte, elapsed time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("request capture failed", "panic", rec, "path", r.URL.Path)
		}
	}()

	entry := &requestlog.Entry{
		Request: requestlog.RequestInfo{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			IP:     clientIP(r),
		},
		Response: requestlog.ResponseInfo{
			StatusCode: capture.statusCode,
		},
		ResponseTimeMs: elapsed.Milliseconds(),
	}

	if m.level == LevelHeaders || m.level == LevelFull {
		entry.Request.Headers = headerMap(r.Header)
		entry.Response.Headers = headerMap(capture.Header())
	}
	if m.level == LevelFull {
		entry.Request.Body = decodeBody(requestBody)
		entry.Response.Body = decodeBody(capture.body.Bytes())
	}

	m.recorder.Add(entry)
}

// headerMap flattens an http.Header into the captured representation,
// joining multi-value headers the way they appear on the wire.
func headerMap(h http.Header) map[string]any {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// decodeBody parses a captured body as JSON when possible, falling
// back to the raw string. Empty bodies stay nil.
func decodeBody(data []byte) any {
	if len(data) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err == nil {
		return decoded
	}
	return string(data)
}

// clientIP extracts the client address, honoring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseCapture wraps http.ResponseWriter to record the status code
// and optionally buffer the response body up to maxCapture bytes.
type responseCapture struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	captureBody bool
	maxCapture  int
	body        bytes.Buffer
}

func (c *responseCapture) WriteHeader(code int) {
	if !c.wroteHeader {
		c.statusCode = code
		c.wroteHeader = true
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.wroteHeader = true
	}
	if c.captureBody && c.body.Len() < c.maxCapture {
		remain := c.maxCapture - c.body.Len()
		if remain > len(p) {
			remain = len(p)
		}
		c.body.Write(p[:remain])
	}
	return c.ResponseWriter.Write(p)
}

// Flush passes through to the underlying writer when it supports it,
// so streaming handlers keep working under capture.
func (c *responseCapture) Flush() {
	if f, ok := c.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
