package persist

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shubhon9/api-sniffer/pkg/logging"
	"github.com/Shubhon9/api-sniffer/pkg/masking"
	"github.com/Shubhon9/api-sniffer/pkg/requestlog"
)

func testConfig(t *testing.T, debounce, interval time.Duration, batch int) Config {
	t.Helper()
	return Config{
		Path:             filepath.Join(t.TempDir(), "capture.json"),
		WriteInterval:    interval,
		WriteDebounce:    debounce,
		WriteBatchSize:   batch,
		RefreshOnStartup: true,
		Logger:           logging.Nop(),
	}
}

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	mem := requestlog.NewMemoryStore(1000, masking.NewPolicy())
	s := New(mem, cfg)
	s.Open()
	return s
}

func entry(path string) *requestlog.Entry {
	return &requestlog.Entry{
		Request:  requestlog.RequestInfo{Method: "GET", Path: path},
		Response: requestlog.ResponseInfo{StatusCode: 200},
	}
}

func readFileEntries(t *testing.T, path string) []*requestlog.Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entries []*requestlog.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestStore_MissingFileStartsEmpty(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 100))
	defer s.Close()

	assert.Equal(t, 0, s.Count())
}

func TestStore_CorruptFileStartsEmpty(t *testing.T) {
	cfg := testConfig(t, 25*time.Millisecond, time.Second, 100)
	require.NoError(t, os.WriteFile(cfg.Path, []byte("not json{"), 0600))

	s := newTestStore(t, cfg)
	defer s.Close()

	assert.Equal(t, 0, s.Count())
}

func TestStore_OpenRestoresPersistedEntries(t *testing.T) {
	cfg := testConfig(t, 25*time.Millisecond, time.Second, 100)
	persisted := []*requestlog.Entry{
		{Sequence: 3, Request: requestlog.RequestInfo{Method: "GET", Path: "/a"}},
		{Sequence: 4, Request: requestlog.RequestInfo{Method: "GET", Path: "/b"}},
	}
	data, err := json.Marshal(persisted)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Path, data, 0600))

	mem := requestlog.NewMemoryStore(1000, masking.NewPolicy())
	s := New(mem, cfg)

	var reloaded int
	s.OnReload(func(n int) { reloaded = n })
	s.Open()
	defer s.Close()

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 2, reloaded)

	// Sequence numbering resumes past the restored entries.
	seq := s.Add(entry("/c"))
	assert.Equal(t, int64(5), seq)
}

func TestStore_RefreshOnStartupDisabled(t *testing.T) {
	cfg := testConfig(t, 25*time.Millisecond, time.Second, 100)
	cfg.RefreshOnStartup = false
	data, err := json.Marshal([]*requestlog.Entry{{Sequence: 1}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfg.Path, data, 0600))

	s := newTestStore(t, cfg)
	defer s.Close()

	assert.Equal(t, 0, s.Count())
}

func TestStore_DebounceCoalescesBurst(t *testing.T) {
	// Five entries in quick succession produce exactly one flush,
	// shortly after the last insertion.
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, 10*time.Second, 20))
	defer s.Close()

	for i := 0; i < 5; i++ {
		s.Add(entry(fmt.Sprintf("/burst/%d", i)))
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return s.SyncStatus().FlushCount == 1
	}, 2*time.Second, 5*time.Millisecond, "debounce flush did not fire")

	// Quiescent afterwards: no further flushes.
	time.Sleep(100 * time.Millisecond)
	status := s.SyncStatus()
	assert.Equal(t, int64(1), status.FlushCount)
	assert.Equal(t, int64(0), status.PendingCount)
	assert.Equal(t, ModeIdle, status.Mode)
	assert.Equal(t, int64(4), status.CoalescedCount,
		"four of five burst entries coalesced into the first window")

	assert.Len(t, readFileEntries(t, s.Path()), 5)
}

func TestStore_BatchThresholdForcesImmediateFlush(t *testing.T) {
	// With a debounce window far longer than the test, reaching the
	// batch size must flush without waiting for quiescence.
	s := newTestStore(t, testConfig(t, 10*time.Second, time.Hour, 20))
	defer s.Close()

	for i := 0; i < 20; i++ {
		s.Add(entry(fmt.Sprintf("/batch/%d", i)))
	}

	require.Eventually(t, func() bool {
		return s.SyncStatus().FlushCount >= 1
	}, 2*time.Second, 5*time.Millisecond, "batch flush did not fire")

	assert.Len(t, readFileEntries(t, s.Path()), 20)
}

func TestStore_IntervalCeilingUnderContinuousLoad(t *testing.T) {
	// Insertions every 10ms never let a 30ms debounce window go quiet,
	// so only the 100ms ceiling bounds staleness.
	s := newTestStore(t, testConfig(t, 30*time.Millisecond, 100*time.Millisecond, 1000))
	defer s.Close()

	stop := time.Now().Add(350 * time.Millisecond)
	for time.Now().Before(stop) {
		s.Add(entry("/continuous"))
		time.Sleep(10 * time.Millisecond)
	}

	status := s.SyncStatus()
	assert.GreaterOrEqual(t, status.FlushCount, int64(2),
		"ceiling timer must flush at least once per interval under continuous load")
}

func TestStore_CloseFlushesPendingEntries(t *testing.T) {
	// Entries inserted within the debounce window survive Close.
	s := newTestStore(t, testConfig(t, 10*time.Second, time.Hour, 1000))

	for i := 0; i < 3; i++ {
		s.Add(entry(fmt.Sprintf("/pending/%d", i)))
	}
	require.NoError(t, s.Close())

	assert.Len(t, readFileEntries(t, s.Path()), 3)
}

func TestStore_CloseIdempotent(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 100))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestStore_FlushWritesAtomically(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 100))
	defer s.Close()

	s.Add(entry("/atomic"))
	require.NoError(t, s.Flush())

	// No temp file left behind after a successful flush.
	_, err := os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
	assert.Len(t, readFileEntries(t, s.Path()), 1)
}

func TestStore_FlushFailureRetainsDirtyState(t *testing.T) {
	cfg := testConfig(t, 10*time.Second, time.Hour, 1000)
	cfg.Path = filepath.Join(t.TempDir(), "missing-dir", "capture.json")

	s := newTestStore(t, cfg)

	s.Add(entry("/fail"))
	err := s.Flush()
	require.Error(t, err)

	status := s.SyncStatus()
	assert.Equal(t, int64(1), status.ErrorCount)
	assert.Equal(t, int64(0), status.FlushCount)
	assert.Equal(t, int64(1), status.PendingCount, "dirty state retained for retry")

	// Create the directory; the retry path can now succeed.
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Path), 0700))
	require.NoError(t, s.Flush())
	assert.Len(t, readFileEntries(t, cfg.Path), 1)
	_ = s.Close()
}

func TestStore_ResidualEntriesFlushAfterSlowFlush(t *testing.T) {
	// An entry added while a flush is in progress arms timers that can
	// fire before the flush finishes; those triggers are consumed by the
	// single-flight lock. The completion path must reschedule, or the
	// residual entry would sit unflushed until the next insertion.
	cfg := testConfig(t, 15*time.Millisecond, 60*time.Millisecond, 1000)
	s := newTestStore(t, cfg)
	defer s.Close()

	// A FIFO with no reader at the temp path blocks the first flush
	// until the test drains it.
	require.NoError(t, syscall.Mkfifo(s.Path()+".tmp", 0600))

	s.Add(entry("/first"))
	require.Eventually(t, func() bool {
		return s.SyncStatus().Mode == ModeFlushing
	}, 2*time.Second, time.Millisecond, "first flush did not start")

	s.Add(entry("/residual"))

	// Let both the debounce and the ceiling elapse while the flush is
	// still blocked.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, int64(1), s.SyncStatus().PendingCount)

	// Unblock the flush.
	reader, err := os.OpenFile(s.Path()+".tmp", os.O_RDONLY, 0)
	require.NoError(t, err)
	defer reader.Close()
	go func() { _, _ = io.Copy(io.Discard, reader) }()

	require.Eventually(t, func() bool {
		st := s.SyncStatus()
		return st.FlushCount >= 2 && st.PendingCount == 0
	}, 2*time.Second, 5*time.Millisecond, "residual entry was never flushed")

	assert.Len(t, readFileEntries(t, s.Path()), 2)
}

func TestStore_SyncStatusModes(t *testing.T) {
	s := newTestStore(t, testConfig(t, 10*time.Second, time.Hour, 1000))
	defer s.Close()

	assert.Equal(t, ModeIdle, s.SyncStatus().Mode)

	s.Add(entry("/mode"))
	assert.Equal(t, ModeDebouncing, s.SyncStatus().Mode)

	require.NoError(t, s.Flush())
	status := s.SyncStatus()
	assert.Equal(t, ModeIdle, status.Mode)
	assert.Equal(t, int64(1), status.FlushCount)
	assert.False(t, status.LastFlush.IsZero())
	assert.GreaterOrEqual(t, status.AvgFlushMs, 0.0)
}

func TestStore_AddNeverBlocksOnFlush(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 50))
	defer s.Close()

	start := time.Now()
	for i := 0; i < 500; i++ {
		s.Add(entry("/fast"))
	}
	elapsed := time.Since(start)

	// 500 insertions while flushes happen in the background should be
	// far faster than a single disk write per entry would allow.
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 500, s.Count())
}

func TestStore_ClearPersistsEmptyState(t *testing.T) {
	s := newTestStore(t, testConfig(t, 10*time.Second, time.Hour, 1000))

	s.Add(entry("/x"))
	require.NoError(t, s.Flush())
	s.Clear()
	require.NoError(t, s.Close())

	assert.Empty(t, readFileEntries(t, s.Path()))
}

func TestStore_QueriesDelegateToBuffer(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 100))
	defer s.Close()

	s.Add(entry("/q"))
	s.Add(&requestlog.Entry{
		Request:  requestlog.RequestInfo{Method: "POST", Path: "/q"},
		Response: requestlog.ResponseInfo{StatusCode: 500},
	})

	entries, err := s.List(&requestlog.Filter{Method: "POST"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalCount)

	sub, unsub := s.Subscribe()
	defer unsub()
	s.Add(entry("/notify"))
	select {
	case e := <-sub:
		assert.Equal(t, "/notify", e.Request.Path)
	case <-time.After(time.Second):
		t.Fatal("subscription did not deliver")
	}
}

func TestLoadFile(t *testing.T) {
	s := newTestStore(t, testConfig(t, 25*time.Millisecond, time.Second, 100))
	s.Add(entry("/persisted"))
	require.NoError(t, s.Close())

	entries, err := LoadFile(s.Path())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/persisted", entries[0].Request.Path)

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
