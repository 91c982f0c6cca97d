package persist

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

// Default scheduling tunables.
const (
	DefaultWriteInterval  = 5 * time.Second
	DefaultWriteDebounce  = 100 * time.Millisecond
	DefaultWriteBatchSize = 50
)

// Config holds persistence configuration.
type Config struct {
	// Path is the destination file for the serialized buffer.
	Path string

	// WriteInterval is the hard ceiling on durability staleness.
	WriteInterval time.Duration

	// WriteDebounce is the quiet period after the most recent entry
	// before a flush fires.
	WriteDebounce time.Duration

	// WriteBatchSize is the unflushed-entry count that forces an
	// immediate flush.
	WriteBatchSize int

	// RefreshOnStartup controls whether the destination file is loaded
	// into the buffer when the store is created.
	RefreshOnStartup bool

	// Logger receives operational log output. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		WriteInterval:    DefaultWriteInterval,
		WriteDebounce:    DefaultWriteDebounce,
		WriteBatchSize:   DefaultWriteBatchSize,
		RefreshOnStartup: true,
	}
}

// Store wraps a requestlog.MemoryStore with coalesced file persistence.
// It implements requestlog.SubscribableStore; queries are served from
// the wrapped buffer and never block on a flush in progress.
type Store struct {
	mem *requestlog.MemoryStore
	cfg Config
	log *slog.Logger

	// mu guards the scheduling state: dirty counter, timers, mode.
	mu       sync.Mutex
	dirty    int
	mode     Mode
	inFlight bool
	debounce *time.Timer
	ceiling  *time.Timer
	closed   bool

	// flushMu serializes flush execution (single-flight). Scheduled
	// flushes skip when it is held; Close blocks on it.
	flushMu sync.Mutex

	// statMu guards flush performance counters.
	statMu     sync.Mutex
	flushCount int64
	errorCount int64
	totalFlush time.Duration
	lastFlush  time.Time
	coalesced  int64

	reloadMu sync.RWMutex
	reloadFns []func(count int)
}

// New creates a persistent store around mem. Call Open to load the
// destination file into the buffer.
func New(mem *requestlog.MemoryStore, cfg Config) *Store {
	if cfg.WriteInterval <= 0 {
		cfg.WriteInterval = DefaultWriteInterval
	}
	if cfg.WriteDebounce <= 0 {
		cfg.WriteDebounce = DefaultWriteDebounce
	}
	if cfg.WriteBatchSize <= 0 {
		cfg.WriteBatchSize = DefaultWriteBatchSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Store{
		mem:  mem,
		cfg:  cfg,
		log:  cfg.Logger,
		mode: ModeIdle,
	}
	return s
}

// Open loads the destination file into the buffer when
// cfg.RefreshOnStartup is set. A missing file starts from an empty
// buffer; a corrupt file logs a warning and also starts empty. Open
// never fails startup.
func (s *Store) Open() {
	if !s.cfg.RefreshOnStartup {
		return
	}
	s.load()
}

// load reads the destination file into the buffer. Missing and corrupt
// files both start from an empty buffer.
func (s *Store) load() {
	data, err := os.ReadFile(s.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read capture log file, starting empty",
				"path", s.cfg.Path, "error", err)
		}
		return
	}

	var entries []*requestlog.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn("discarding corrupt capture log file, starting empty",
			"path", s.cfg.Path, "error", err)
		return
	}

	s.mem.Restore(entries)
	s.notifyReload(len(entries))
}

// OnReload registers a handler called after persisted entries are
// loaded back into the buffer.
func (s *Store) OnReload(fn func(count int)) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.reloadFns = append(s.reloadFns, fn)
}

func (s *Store) notifyReload(count int) {
	s.reloadMu.RLock()
	fns := make([]func(int), len(s.reloadFns))
	copy(fns, s.reloadFns)
	s.reloadMu.RUnlock()
	for _, fn := range fns {
		fn(count)
	}
}

// Add records an entry in the wrapped buffer and updates the flush
// schedule. It returns without waiting on any disk I/O.
func (s *Store) Add(entry *requestlog.Entry) int64 {
	seq := s.mem.Add(entry)
	s.markDirty()
	return seq
}

// markDirty applies the scheduling rules for one new unflushed entry.
func (s *Store) markDirty() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.dirty++
	if s.dirty > 1 {
		s.statMu.Lock()
		s.coalesced++
		s.statMu.Unlock()
	}

	// Batch threshold preempts both timers and forces a flush now.
	if s.dirty >= s.cfg.WriteBatchSize {
		s.mode = ModeBatching
		s.stopTimersLocked()
		s.mu.Unlock()
		go s.tryFlush()
		return
	}

	if !s.inFlight {
		s.mode = ModeDebouncing
	}

	// Each arrival restarts the quiet-period timer.
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.WriteDebounce, s.tryFlush)

	// The ceiling timer runs from the first unflushed entry and is not
	// reset by further arrivals.
	if s.ceiling == nil {
		s.ceiling = time.AfterFunc(s.cfg.WriteInterval, s.tryFlush)
	}
	s.mu.Unlock()
}

func (s *Store) stopTimersLocked() {
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if s.ceiling != nil {
		s.ceiling.Stop()
		s.ceiling = nil
	}
}

// rearmLocked schedules a fresh debounce and ceiling for entries that
// arrived while a flush was running. Timers may have fired during the
// flush and lost the single-flight lock, leaving spent handles, so
// both are replaced unconditionally.
func (s *Store) rearmLocked() {
	s.mode = ModeDebouncing
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.WriteDebounce, s.tryFlush)
	if s.ceiling != nil {
		s.ceiling.Stop()
	}
	s.ceiling = time.AfterFunc(s.cfg.WriteInterval, s.tryFlush)
}

// tryFlush runs a flush unless one is already in progress. A trigger
// that loses the lock here is consumed; the completion path replaces
// both timers whenever unflushed entries remain, so a consumed trigger
// never strands them.
func (s *Store) tryFlush() {
	if !s.flushMu.TryLock() {
		return
	}
	defer s.flushMu.Unlock()
	if err := s.doFlush(); err != nil {
		s.log.Error("failed to flush capture log", "path", s.cfg.Path, "error", err)
	}
}

// Flush forces a synchronous flush, waiting for any in-flight flush to
// complete first.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.doFlush()
}

// doFlush serializes the full buffer and writes it atomically: temp
// file first, then rename over the destination. Callers must hold
// flushMu.
func (s *Store) doFlush() error {
	s.mu.Lock()
	dirtyBefore := s.dirty
	s.dirty = 0
	s.stopTimersLocked()
	s.inFlight = true
	s.mode = ModeFlushing
	s.mu.Unlock()

	start := time.Now()
	snapshot := s.mem.Snapshot()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err == nil {
		tmpFile := s.cfg.Path + ".tmp"
		if err = os.WriteFile(tmpFile, data, 0600); err == nil {
			if err = os.Rename(tmpFile, s.cfg.Path); err != nil {
				_ = os.Remove(tmpFile) // Clean up temp file on failure
			}
		}
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		// Retain the dirty state and retry on the next trigger.
		s.dirty += dirtyBefore
		if !s.closed && s.dirty > 0 {
			s.rearmLocked()
		}
		s.mu.Unlock()

		s.statMu.Lock()
		s.errorCount++
		s.statMu.Unlock()
		return err
	}

	if !s.closed && s.dirty > 0 {
		// Entries arrived during the flush; scheduling resumes for them.
		s.rearmLocked()
	} else {
		s.mode = ModeIdle
	}
	s.mu.Unlock()

	s.statMu.Lock()
	s.flushCount++
	s.totalFlush += elapsed
	s.lastFlush = time.Now()
	s.statMu.Unlock()
	return nil
}

// List returns entries matching the filter, most recent first.
func (s *Store) List(filter *requestlog.Filter) ([]*requestlog.Entry, error) {
	return s.mem.List(filter)
}

// Stats computes aggregate statistics over the current buffer.
func (s *Store) Stats() *requestlog.Statistics {
	return s.mem.Stats()
}

// Count returns the number of entries currently held.
func (s *Store) Count() int {
	return s.mem.Count()
}

// Clear empties the buffer and schedules a flush so the file catches
// up with the cleared state.
func (s *Store) Clear() {
	s.mem.Clear()
	s.markDirty()
}

// Subscribe registers a subscriber for new entries.
func (s *Store) Subscribe() (requestlog.Subscriber, func()) {
	return s.mem.Subscribe()
}

// SyncStatus reports the current coalescing mode and flush performance.
func (s *Store) SyncStatus() SyncStatus {
	s.mu.Lock()
	mode := s.mode
	if s.inFlight {
		mode = ModeFlushing
	} else if s.dirty == 0 && mode != ModeFlushing {
		mode = ModeIdle
	}
	pending := int64(s.dirty)
	s.mu.Unlock()

	s.statMu.Lock()
	defer s.statMu.Unlock()
	status := SyncStatus{
		Mode:           mode,
		FlushCount:     s.flushCount,
		ErrorCount:     s.errorCount,
		LastFlush:      s.lastFlush,
		CoalescedCount: s.coalesced,
		PendingCount:   pending,
	}
	if s.flushCount > 0 {
		status.AvgFlushMs = float64(s.totalFlush.Microseconds()) / 1000.0 / float64(s.flushCount)
	}
	return status
}

// Path returns the destination file path.
func (s *Store) Path() string {
	return s.cfg.Path
}

// Close cancels all pending timers, waits for any in-flight flush, and
// performs one final synchronous flush so nothing accepted before
// shutdown is lost. Safe to call multiple times.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.stopTimersLocked()
	s.mu.Unlock()

	s.flushMu.Lock()
	err := s.doFlush()
	s.flushMu.Unlock()

	if memErr := s.mem.Close(); err == nil {
		err = memErr
	}
	return err
}
