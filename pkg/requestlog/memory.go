package requestlog

import (
	"sync"
	"time"

	"github.com/Shubhon9/api-sniffer/pkg/masking"
)

// MemoryStore implements SubscribableStore with a bounded in-memory
// FIFO buffer. Insertion beyond capacity evicts the oldest entry.
// A capacity of zero stores nothing: every insertion is immediately
// evicted but still sequenced, masked, and published to subscribers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
	maxLogs int
	nextSeq int64
	policy  *masking.Policy
	closed  bool

	subMu       sync.RWMutex
	subscribers map[Subscriber]struct{}
}

// NewMemoryStore creates a MemoryStore with the given capacity and
// masking policy. A nil policy uses the default field set. A negative
// capacity is treated as zero.
func NewMemoryStore(maxLogs int, policy *masking.Policy) *MemoryStore {
	if maxLogs < 0 {
		maxLogs = 0
	}
	if policy == nil {
		policy = masking.NewPolicy()
	}
	return &MemoryStore{
		entries:     make([]*Entry, 0, maxLogs),
		maxLogs:     maxLogs,
		policy:      policy,
		subscribers: make(map[Subscriber]struct{}),
	}
}

// Add records an entry: assigns the next sequence number, defaults the
// timestamp, masks sensitive header and body fields, appends, and
// evicts from the front while over capacity. Subscribers are notified
// with a non-blocking send. Add never performs I/O.
func (s *MemoryStore) Add(entry *Entry) int64 {
	if entry == nil {
		return 0
	}

	s.mu.Lock()
	s.nextSeq++
	entry.Sequence = s.nextSeq

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	// Masked copies replace the captured references; the caller's
	// originals are left untouched.
	entry.Request.Headers = s.policy.MaskHeaders(entry.Request.Headers)
	entry.Response.Headers = s.policy.MaskHeaders(entry.Response.Headers)
	entry.Request.Body = s.policy.Mask(entry.Request.Body)
	entry.Response.Body = s.policy.Mask(entry.Response.Body)

	s.entries = append(s.entries, entry)
	for len(s.entries) > s.maxLogs {
		s.entries = s.entries[1:]
	}
	s.mu.Unlock()

	s.notify(entry)
	return entry.Sequence
}

// notify fans an entry out to subscribers without blocking.
func (s *MemoryStore) notify(entry *Entry) {
	s.subMu.RLock()
	for sub := range s.subscribers {
		select {
		case sub <- entry:
		default:
			// Drop if subscriber is slow.
		}
	}
	s.subMu.RUnlock()
}

// List returns entries matching the filter, most recent first.
func (s *MemoryStore) List(filter *Filter) ([]*Entry, error) {
	cf, err := filter.compile()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if !cf.matches(entry) {
			continue
		}
		result = append(result, entry)
		if filter != nil && filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

// Snapshot returns a copy of the current buffer in insertion order.
// The returned slice is private to the caller; the entries themselves
// are immutable once stored.
func (s *MemoryStore) Snapshot() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore replaces the buffer with previously persisted entries,
// trimming to capacity from the front and advancing the sequence
// counter past the highest restored sequence. Used by the persistence
// layer at startup.
func (s *MemoryStore) Restore(entries []*Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) > s.maxLogs {
		entries = entries[len(entries)-s.maxLogs:]
	}
	s.entries = make([]*Entry, len(entries))
	copy(s.entries, entries)

	for _, e := range s.entries {
		if e.Sequence > s.nextSeq {
			s.nextSeq = e.Sequence
		}
	}
}

// Stats computes aggregate statistics over the current buffer.
func (s *MemoryStore) Stats() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.entries)
}

// Clear removes all entries. The sequence counter keeps its value so
// sequence numbers are never reused.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]*Entry, 0, s.maxLogs)
}

// Count returns the number of entries currently held.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe registers a subscriber for new entries.
func (s *MemoryStore) Subscribe() (Subscriber, func()) {
	ch := make(Subscriber, 100) // Buffer to prevent blocking

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}

	return ch, unsubscribe
}

// Close releases all subscribers. Safe to call multiple times.
func (s *MemoryStore) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for sub := range s.subscribers {
		delete(s.subscribers, sub)
		close(sub)
	}
	return nil
}
