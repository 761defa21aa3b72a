package timers

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalnet/chanop/internal/storage"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan struct{}
}

func newFireRecorder() *fireRecorder {
	return &fireRecorder{ch: make(chan struct{}, 16)}
}

func (f *fireRecorder) fire(target, channel, mode string) {
	f.mu.Lock()
	f.fired = append(f.fired, "-"+mode+" "+target+" "+channel)
	f.mu.Unlock()
	f.ch <- struct{}{}
}

func (f *fireRecorder) entries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fired...)
}

func TestScheduleReplacesSameTriple(t *testing.T) {
	dir := t.TempDir()
	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()

	for i := 0; i < 5; i++ {
		r.Schedule("*!*@evil.example.net", "#help", "q", time.Hour)
	}

	assert.Equal(t, 1, r.Len())

	entries, err := storage.LoadTimers(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCancelRemovesMemoryAndDisk(t *testing.T) {
	dir := t.TempDir()
	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()

	r.Schedule("*!*@evil.example.net", "#help", "b", time.Hour)
	r.Cancel("*!*@evil.example.net", "#help", "b")

	assert.False(t, r.Contains("*!*@evil.example.net", "#help", "b"))

	entries, err := storage.LoadTimers(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Cancelling a triple that was never scheduled is a no-op.
	r.Cancel("*!*@ghost.example.net", "#help", "b")
}

func TestCancelReconcilesDiskWithoutMemoryEntry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, storage.SaveTimers(dir, []storage.TimerEntry{
		{FireAt: time.Now().Add(time.Hour).Unix(), Target: "*!*@a", Channel: "#c", Mode: "q"},
	}))

	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()

	// No in-memory timer exists, but the durable list must still be
	// rewritten so a restart cannot resurrect the entry.
	r.Cancel("*!*@a", "#c", "q")

	entries, err := storage.LoadTimers(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFireRemovesEntryAndInvokesCallback(t *testing.T) {
	dir := t.TempDir()
	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()
	r.minDelay = 10 * time.Millisecond

	r.Schedule("*!*@evil.example.net", "#help", "q", 0)

	select {
	case <-rec.ch:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	assert.Equal(t, []string{"-q *!*@evil.example.net #help"}, rec.entries())
	assert.Equal(t, 0, r.Len())

	entries, err := storage.LoadTimers(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCancelledTimerNeverFires(t *testing.T) {
	dir := t.TempDir()
	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()
	r.minDelay = 20 * time.Millisecond

	r.Schedule("*!*@evil.example.net", "#help", "q", 0)
	r.Cancel("*!*@evil.example.net", "#help", "q")

	select {
	case <-rec.ch:
		t.Fatal("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRestoreAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, storage.SaveTimers(dir, []storage.TimerEntry{
		// Already past due: must be clamped, not dropped.
		{FireAt: time.Now().Add(-time.Minute).Unix(), Target: "*!*@a", Channel: "#c", Mode: "b"},
		{FireAt: time.Now().Add(time.Hour).Unix(), Target: "*!*@b", Channel: "#c", Mode: "q"},
	}))

	rec := newFireRecorder()
	r := New(dir, rec.fire)
	defer r.Stop()
	r.minDelay = 10 * time.Millisecond

	require.NoError(t, r.RestoreAll())
	assert.Equal(t, 2, r.Len())

	// The overdue entry fires promptly after restore.
	select {
	case <-rec.ch:
	case <-time.After(time.Second):
		t.Fatal("overdue timer did not fire after restore")
	}
	assert.Equal(t, []string{"-b *!*@a #c"}, rec.entries())
	assert.True(t, r.Contains("*!*@b", "#c", "q"))
}
