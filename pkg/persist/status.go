package persist

import "time"

// Mode identifies the coalescer's current scheduling state.
type Mode string

// Coalescing modes.
const (
	// ModeIdle means no unflushed entries exist.
	ModeIdle Mode = "idle"

	// ModeDebouncing means unflushed entries exist and a quiet-period
	// timer is pending.
	ModeDebouncing Mode = "debouncing"

	// ModeBatching means the batch threshold was reached and a flush
	// is being forced.
	ModeBatching Mode = "batching"

	// ModeFlushing means a flush is in progress.
	ModeFlushing Mode = "flushing"
)

// SyncStatus reports coalescing state and flush performance.
type SyncStatus struct {
	// Mode is the current coalescing mode.
	Mode Mode `json:"currentMode"`

	// FlushCount is the cumulative number of completed flushes.
	FlushCount int64 `json:"flushCount"`

	// ErrorCount is the cumulative number of failed flushes.
	ErrorCount int64 `json:"errorCount"`

	// AvgFlushMs is the mean duration of completed flushes.
	AvgFlushMs float64 `json:"avgFlushMs"`

	// LastFlush is when the most recent flush completed.
	LastFlush time.Time `json:"lastFlush"`

	// CoalescedCount is the number of entries that were absorbed into
	// an already-pending flush window rather than opening one.
	CoalescedCount int64 `json:"coalescedCount"`

	// PendingCount is the number of entries not yet flushed.
	PendingCount int64 `json:"pendingCount"`
}
