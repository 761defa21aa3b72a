// Package timers tracks scheduled mode reversals ("remove +b from mask X
// in channel Y at time T"). Entries are keyed by (target, channel, mode),
// persisted so they survive restarts, and cancellable when the mode is
// removed manually before the timer fires.
package timers

import (
	"log"
	"sync"
	"time"

	"github.com/dalnet/chanop/internal/storage"
)

// FireFunc issues the reversal when an entry comes due. It runs on the
// timer's own goroutine and may block.
type FireFunc func(target, channel, mode string)

type key struct {
	target  string
	channel string
	mode    string
}

// Registry owns the timer table and its durable mirror.
type Registry struct {
	mu       sync.Mutex
	dataDir  string
	fire     FireFunc
	timers   map[key]*time.Timer
	fireAt   map[key]int64
	minDelay time.Duration
}

// New creates a registry persisting under dataDir.
func New(dataDir string, fire FireFunc) *Registry {
	return &Registry{
		dataDir:  dataDir,
		fire:     fire,
		timers:   make(map[key]*time.Timer),
		fireAt:   make(map[key]int64),
		minDelay: time.Second,
	}
}

// Schedule arms a reversal of mode for target on channel after delay,
// replacing any existing entry for the same triple. The timer never
// fires sooner than one second out, so a zero delay cannot fire in the
// same tick it was scheduled.
func (r *Registry) Schedule(target, channel, mode string, delay time.Duration) {
	k := key{target, channel, mode}
	if delay < r.minDelay {
		delay = r.minDelay
	}

	r.mu.Lock()
	if old, ok := r.timers[k]; ok {
		old.Stop()
	}
	r.fireAt[k] = time.Now().Add(delay).Unix()
	r.timers[k] = time.AfterFunc(delay, func() { r.fired(k) })
	r.persistLocked()
	r.mu.Unlock()

	log.Printf("Setting -%s on %s in %s in %s", mode, target, channel, delay)
}

// Cancel removes the entry for the triple, if any. The durable list is
// rewritten even when no in-memory timer exists, so memory and disk can
// never disagree across a restart.
func (r *Registry) Cancel(target, channel, mode string) {
	k := key{target, channel, mode}

	r.mu.Lock()
	if t, ok := r.timers[k]; ok {
		t.Stop()
		log.Printf("Cancelled pending -%s for %s in %s", mode, target, channel)
	}
	delete(r.timers, k)
	delete(r.fireAt, k)
	r.persistLocked()
	r.mu.Unlock()
}

// RestoreAll re-arms every persisted entry, recomputing the remaining
// delay from its absolute fire time. Called once at startup.
func (r *Registry) RestoreAll() error {
	entries, err := storage.LoadTimers(r.dataDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		delay := time.Until(time.Unix(e.FireAt, 0))
		r.Schedule(e.Target, e.Channel, e.Mode, delay)
	}
	return nil
}

// Stop halts all in-memory timers without touching the durable list, so
// pending reversals are picked up again on the next start.
func (r *Registry) Stop() {
	r.mu.Lock()
	for k, t := range r.timers {
		t.Stop()
		delete(r.timers, k)
	}
	r.mu.Unlock()
}

// Contains reports whether an entry exists for the triple.
func (r *Registry) Contains(target, channel, mode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.fireAt[key{target, channel, mode}]
	return ok
}

// Len returns the number of pending entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fireAt)
}

func (r *Registry) fired(k key) {
	r.mu.Lock()
	if _, ok := r.fireAt[k]; !ok {
		// Cancelled between firing and acquiring the lock.
		r.mu.Unlock()
		return
	}
	delete(r.timers, k)
	delete(r.fireAt, k)
	r.persistLocked()
	r.mu.Unlock()

	log.Printf("timed request: -%s for %s in %s", k.mode, k.target, k.channel)
	r.fire(k.target, k.channel, k.mode)
}

// persistLocked rewrites the whole durable list. Caller must hold r.mu.
func (r *Registry) persistLocked() {
	entries := make([]storage.TimerEntry, 0, len(r.fireAt))
	for k, at := range r.fireAt {
		entries = append(entries, storage.TimerEntry{
			FireAt:  at,
			Target:  k.target,
			Channel: k.channel,
			Mode:    k.mode,
		})
	}
	if err := storage.SaveTimers(r.dataDir, entries); err != nil {
		log.Printf("Error saving timer list: %v", err)
	}
}
