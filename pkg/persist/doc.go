// Package persist adds durable file persistence to a request log store
// with adaptive write coalescing.
//
// A Store wraps a requestlog.MemoryStore and decides when to flush the
// in-memory buffer to disk. Three triggers are combined so that capture
// never waits on file I/O and the file never goes stale for long:
//
//   - a debounce timer that restarts on every new entry and fires after
//     a quiet period (WriteDebounce)
//   - a batch threshold that forces an immediate flush once enough
//     unflushed entries accumulate (WriteBatchSize)
//   - a ceiling timer armed at the first unflushed entry and never
//     reset, bounding staleness under continuous load (WriteInterval)
//
// Flushes are single-flight: at most one runs at a time. Each flush
// serializes the full buffer and writes it atomically (temp file, then
// rename), so the file at rest is always a complete snapshot. Close
// cancels all timers and performs one final synchronous flush, so no
// entry accepted before shutdown is lost.
//
// Flush performance and the current coalescing mode are observable via
// SyncStatus.
package persist
