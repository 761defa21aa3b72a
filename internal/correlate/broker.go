// Package correlate pairs asynchronous IRC responses back to the callers
// that asked for them. IRC has no native request/response correlation, so
// every "ask and wait" operation (WHOIS, topic query, op acquisition) is
// emulated by keying pending waiters on an identity string and resolving
// them when a matching event arrives, or failing them on timeout.
package correlate

import (
	"errors"
	"sync"
	"time"
)

// ErrTimedOut is delivered to waiters when no correlated event arrives
// within the broker's bound.
var ErrTimedOut = errors.New("request timed out")

// Result is what a waiter eventually receives. Exactly one of Value or
// Err is meaningful.
type Result struct {
	Value string
	Err   error
}

// Broker maps identity keys to sets of pending waiters. At most one
// network request is outstanding per key regardless of how many callers
// are waiting on it.
type Broker struct {
	mu      sync.Mutex
	request func(key string)
	timeout time.Duration
	caching bool
	cache   map[string]string
	pending map[string]*waitSet
}

type waitSet struct {
	waiters []chan Result
	timer   *time.Timer
}

// New creates a broker. request is invoked (once per key) to issue the
// network request that should eventually produce a Deliver or Fail call.
// Caching brokers remember delivered values and answer later Resolve
// calls without a network round trip; failures are never cached.
func New(timeout time.Duration, caching bool, request func(key string)) *Broker {
	return &Broker{
		request: request,
		timeout: timeout,
		caching: caching,
		cache:   make(map[string]string),
		pending: make(map[string]*waitSet),
	}
}

// Resolve returns a channel that receives exactly one Result for key.
// If a request for key is already in flight the caller joins the
// existing waiter set; otherwise a new request is issued.
func (b *Broker) Resolve(key string) <-chan Result {
	ch := make(chan Result, 1)

	b.mu.Lock()
	if b.caching {
		if v, ok := b.cache[key]; ok {
			b.mu.Unlock()
			ch <- Result{Value: v}
			return ch
		}
	}

	if ws, ok := b.pending[key]; ok {
		ws.waiters = append(ws.waiters, ch)
		b.mu.Unlock()
		return ch
	}

	ws := &waitSet{waiters: []chan Result{ch}}
	ws.timer = time.AfterFunc(b.timeout, func() { b.expire(key) })
	b.pending[key] = ws
	b.mu.Unlock()

	// Issue the request outside the lock; the response handler may call
	// Deliver before this returns, which is fine.
	b.request(key)
	return ch
}

// Deliver resolves every waiter for key with value. A late delivery with
// no waiters only fills the cache (on caching brokers).
func (b *Broker) Deliver(key, value string) {
	b.mu.Lock()
	if b.caching {
		b.cache[key] = value
	}
	ws := b.take(key)
	b.mu.Unlock()

	for _, ch := range ws {
		ch <- Result{Value: value}
	}
}

// Fail resolves every waiter for key with err. Nothing is cached; a Fail
// with no waiters is a no-op.
func (b *Broker) Fail(key string, err error) {
	b.mu.Lock()
	ws := b.take(key)
	b.mu.Unlock()

	for _, ch := range ws {
		ch <- Result{Err: err}
	}
}

// Forget drops any cached value for key.
func (b *Broker) Forget(key string) {
	b.mu.Lock()
	delete(b.cache, key)
	b.mu.Unlock()
}

func (b *Broker) expire(key string) {
	b.mu.Lock()
	ws := b.take(key)
	b.mu.Unlock()

	for _, ch := range ws {
		ch <- Result{Err: ErrTimedOut}
	}
}

// take removes and returns the waiters for key. Caller must hold b.mu.
func (b *Broker) take(key string) []chan Result {
	ws, ok := b.pending[key]
	if !ok {
		return nil
	}
	delete(b.pending, key)
	ws.timer.Stop()
	return ws.waiters
}
