package requestlog

// Recorder is the minimal interface for recording captured entries.
// Capture adapters accept this interface so they can work with any
// implementation, whether an in-memory buffer or a persistent store.
type Recorder interface {
	// Add records an entry and returns its assigned sequence number.
	// Implementations must return without blocking on I/O and must not
	// surface errors to the capture path.
	Add(entry *Entry) int64
}

// Store defines the interface for capture history storage.
// Store embeds Recorder, so any Store can be used where Recorder is
// expected.
type Store interface {
	Recorder

	// List returns entries matching the filter, most recent first.
	// It returns an error only for an invalid filter (bad pattern or
	// expression), never for an empty result.
	List(filter *Filter) ([]*Entry, error)

	// Stats computes aggregate statistics over the current buffer.
	Stats() *Statistics

	// Clear removes all entries. The sequence counter is not reset.
	Clear()

	// Count returns the number of entries currently held.
	Count() int

	// Close releases observers and any owned resources. Idempotent.
	Close() error
}

// Subscriber is a channel that receives new entries as they are added.
// Used for real-time streaming to the dashboard and live-tail clients.
type Subscriber chan *Entry

// SubscribableStore extends Store with subscription support.
type SubscribableStore interface {
	Store

	// Subscribe registers a subscriber for new entries. It returns the
	// receiving channel and an unsubscribe function. Sends are
	// non-blocking; slow subscribers miss entries rather than stalling
	// capture.
	Subscribe() (Subscriber, func())
}
