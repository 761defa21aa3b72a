// Package ops issues privileged channel requests, acquiring operator
// status from ChanServ on demand. Acquisition is itself a correlated
// wait: the request is a ChanServ OP message and the success criterion
// is seeing our own +o mode change in the channel.
package ops

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalnet/chanop/internal/correlate"
)

// Sender is the slice of the IRC connection the provider needs.
type Sender interface {
	Send(command string, params ...string) error
	CurrentNick() string
}

// OpFailedError means operator status could not be acquired, so the
// requested operation was never issued.
type OpFailedError struct {
	Channel string
	Cause   error
}

func (e *OpFailedError) Error() string {
	return fmt.Sprintf("I could not become op in %s (%v)", e.Channel, e.Cause)
}

func (e *OpFailedError) Unwrap() error { return e.Cause }

// Provider tracks where the bot currently has op and serializes the
// acquire-then-act pattern behind Mode, Kick and Topic.
type Provider struct {
	conn     Sender
	chanserv string
	keepOp   bool
	broker   *correlate.Broker

	mu    sync.Mutex
	opped map[string]bool
}

// NewProvider creates a provider requesting op from the chanserv service
// nick. When keepOp is false the bot drops op again as part of each mode
// request.
func NewProvider(conn Sender, chanserv string, keepOp bool, timeout time.Duration) *Provider {
	p := &Provider{
		conn:     conn,
		chanserv: chanserv,
		keepOp:   keepOp,
		opped:    make(map[string]bool),
	}
	p.broker = correlate.New(timeout, false, p.requestOp)
	return p
}

func (p *Provider) requestOp(channel string) {
	p.conn.Send("PRIVMSG", p.chanserv, fmt.Sprintf("OP %s %s", channel, p.conn.CurrentNick()))
}

// Mode sets a mode on param in channel, acquiring op first. When the bot
// is not keeping op, the deop rides along in the same MODE line.
func (p *Provider) Mode(channel, mode, param string) error {
	if err := p.ensureOp(channel); err != nil {
		return err
	}

	modes := mode
	args := []string{param}
	if !p.keepOp {
		modes += "-o"
		args = append(args, p.conn.CurrentNick())
		p.setOpped(channel, false)
	}
	return p.conn.Send("MODE", append([]string{channel, modes}, args...)...)
}

// Kick removes target from channel. Op is retained afterwards: a kick is
// usually followed by a ban, whose mode request handles the deop.
func (p *Provider) Kick(channel, target, reason string) error {
	if err := p.ensureOp(channel); err != nil {
		return err
	}
	if reason == "" {
		return p.conn.Send("KICK", channel, target)
	}
	return p.conn.Send("KICK", channel, target, reason)
}

// Topic sets the channel topic.
func (p *Provider) Topic(channel, text string) error {
	if err := p.ensureOp(channel); err != nil {
		return err
	}
	if err := p.conn.Send("TOPIC", channel, text); err != nil {
		return err
	}
	if !p.keepOp {
		p.setOpped(channel, false)
		return p.conn.Send("MODE", channel, "-o", p.conn.CurrentNick())
	}
	return nil
}

// HandleModeChange observes channel mode changes. +o/-o on our own nick
// updates the op table and resolves pending acquisitions.
func (p *Provider) HandleModeChange(channel, mode string, set bool, param string) {
	if mode != "o" || !strings.EqualFold(param, p.conn.CurrentNick()) {
		return
	}
	p.setOpped(channel, set)
	if set {
		p.broker.Deliver(channel, "opped")
	}
}

// Opped reports whether the bot currently has op in channel.
func (p *Provider) Opped(channel string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opped[channel]
}

func (p *Provider) setOpped(channel string, v bool) {
	p.mu.Lock()
	if v {
		p.opped[channel] = true
	} else {
		delete(p.opped, channel)
	}
	p.mu.Unlock()
}

func (p *Provider) ensureOp(channel string) error {
	if p.Opped(channel) {
		return nil
	}

	res := <-p.broker.Resolve(channel)
	if res.Err != nil {
		return &OpFailedError{Channel: channel, Cause: res.Err}
	}
	return nil
}
