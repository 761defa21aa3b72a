// Package topic keeps a bounded per-channel history of topic strings and
// implements the positional edit operations built on it. The current
// topic is learned only from confirmed server notifications; when it is
// unknown, a fetch is correlated through a broker keyed by channel name.
package topic

import (
	"log"
	"sync"

	"github.com/dalnet/chanop/internal/correlate"
)

// historyCap bounds how many past topics are remembered per channel.
const historyCap = 10

// Stack owns the per-channel topic histories.
type Stack struct {
	broker *correlate.Broker

	mu        sync.Mutex
	histories map[string][]string
}

// NewStack creates a stack. broker must be a non-caching broker whose
// request func issues a topic query for the channel key; Observe feeds
// its deliveries.
func NewStack(broker *correlate.Broker) *Stack {
	return &Stack{
		broker:    broker,
		histories: make(map[string][]string),
	}
}

// Current returns a channel that receives the channel's topic: from
// history when known, otherwise via a correlated topic query.
func (s *Stack) Current(channel string) <-chan correlate.Result {
	s.mu.Lock()
	if h := s.histories[channel]; len(h) > 0 {
		top := h[len(h)-1]
		s.mu.Unlock()
		ch := make(chan correlate.Result, 1)
		ch <- correlate.Result{Value: top}
		return ch
	}
	s.mu.Unlock()

	log.Printf("Requesting current topic for %s since I don't know it", channel)
	return s.broker.Resolve(channel)
}

// Observe records a confirmed topic update. Unchanged topics are not
// pushed, but waiters are always answered so a pending fetch resolves
// even when the topic matches what was last recorded.
func (s *Stack) Observe(channel, newTopic string) {
	s.mu.Lock()
	h := s.histories[channel]
	if len(h) == 0 || h[len(h)-1] != newTopic {
		h = append(h, newTopic)
		if len(h) > historyCap {
			h = h[1:]
		}
		s.histories[channel] = h
		log.Printf("Topic updated in %s, now tracking %d past topics", channel, len(h))
	}
	s.mu.Unlock()

	s.broker.Deliver(channel, newTopic)
}

// Undo discards the current topic and returns the previous one, which
// the caller re-issues as a topic change. Both entries are consumed; the
// re-issued topic re-enters history through Observe once the server
// confirms it.
func (s *Stack) Undo(channel string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.histories[channel]
	if len(h) < 2 {
		return "", ErrNoHistory
	}
	prev := h[len(h)-2]
	s.histories[channel] = h[:len(h)-2]
	return prev, nil
}

// Depth returns how many topics are remembered for channel.
func (s *Stack) Depth(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories[channel])
}
