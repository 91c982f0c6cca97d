// Package requestlog provides types and storage for captured HTTP
// request/response pairs.
//
// This package serves developers who need to inspect the traffic an
// instrumented service received: which requests came in, what was
// returned, and how long each cycle took. It is distinct from
// operational logging (which uses log/slog for platform debugging).
//
// # Core Types
//
// Entry is the central type representing one captured request/response
// cycle with timing metadata. Entries are immutable once stored;
// sensitive header and body fields are redacted by a masking.Policy at
// insertion time, so no reader ever observes an unmasked value.
//
// # Store Interface
//
// Store defines the interface for capture history storage, supporting:
//   - Adding new entries (never blocking on I/O)
//   - Querying with filters, most-recent-first
//   - On-demand statistics aggregation
//   - Clearing history
//
// MemoryStore is the canonical implementation: a bounded FIFO ring
// buffer with strictly increasing sequence numbers. Capacity overflow
// evicts the oldest entry; sequence numbers are never reused, even
// across evictions or Clear.
//
// # Usage
//
//	store := requestlog.NewMemoryStore(1000, masking.NewPolicy())
//	seq := store.Add(&requestlog.Entry{
//	    Request:  requestlog.RequestInfo{Method: "GET", Path: "/api/users"},
//	    Response: requestlog.ResponseInfo{StatusCode: 200},
//	})
//
// # Package Design
//
// This is a leaf package with no dependency on any web framework,
// allowing capture adapters, the persistence layer, and the admin API
// to import it without cycles.
package requestlog
