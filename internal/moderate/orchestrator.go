// Package moderate implements the command-level moderation logic: nick
// to hostmask resolution, mode changes with optional timed reversal, and
// the kick-before-ban ordering.
package moderate

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dalnet/chanop/internal/correlate"
	"github.com/dalnet/chanop/internal/timers"
)

// ErrNoSuchNick means a WHOIS found no user by the requested nick.
var ErrNoSuchNick = errors.New("no such nick on the network")

// ErrWhoisTimedOut means the WHOIS got no answer within the bound.
var ErrWhoisTimedOut = errors.New("whois timed out")

// OpRequester issues privileged channel operations, acquiring operator
// status as needed. Failures mean the operation could not be completed
// (typically op could not be acquired) and are never retried.
type OpRequester interface {
	Mode(channel, mode, param string) error
	Kick(channel, target, reason string) error
}

// Orchestrator ties nick resolution, the op provider and the timer
// registry together behind the moderation commands.
type Orchestrator struct {
	whois  *correlate.Broker
	ops    OpRequester
	timers *timers.Registry
}

// New creates an orchestrator. whois must be keyed by lowercased nick
// and deliver the user's host.
func New(whois *correlate.Broker, ops OpRequester, reg *timers.Registry) *Orchestrator {
	return &Orchestrator{whois: whois, ops: ops, timers: reg}
}

// ModeVerb names a mode for user-facing messages.
func ModeVerb(mode string) string {
	switch mode {
	case "q":
		return "quiet"
	case "b":
		return "ban"
	}
	return "apply to"
}

// ResolveMask turns a free-text target into a ban/quiet parameter. Full
// hostmasks and $-extbans pass through verbatim; anything else is
// treated as a nick and resolved via WHOIS into *!*@host, so the ban
// matches any nick!user from that host.
func (o *Orchestrator) ResolveMask(target string) (string, error) {
	if (strings.Contains(target, "!") && strings.Contains(target, "@")) || strings.HasPrefix(target, "$") {
		return target, nil
	}

	res := <-o.whois.Resolve(strings.ToLower(target))
	if res.Err != nil {
		if errors.Is(res.Err, correlate.ErrTimedOut) {
			return "", ErrWhoisTimedOut
		}
		return "", res.Err
	}
	return "*!*@" + res.Value, nil
}

// ApplyMode sets +mode on target in channel, scheduling the reversal if
// a duration was given. Errors are reported through reply and the
// reversal is only scheduled after the mode request succeeded.
func (o *Orchestrator) ApplyMode(channel, mode, target, duration string, reply func(string)) {
	mask, err := o.ResolveMask(target)
	if err != nil {
		if errors.Is(err, ErrNoSuchNick) {
			reply(fmt.Sprintf("There is no user by that nick on the network. Try %s!*@* to %s anyone with that nick, or specify your own hostmask.", target, ModeVerb(mode)))
		} else {
			reply(fmt.Sprintf("That's odd, the whois I did on %s didn't work. Sorry.", target))
		}
		return
	}

	seconds := ParseTime(duration)
	if seconds > 0 {
		log.Printf("+%s for %s in %s for %ds", mode, mask, channel, seconds)
	} else {
		log.Printf("+%s for %s in %s", mode, mask, channel)
	}

	if err := o.ops.Mode(channel, "+"+mode, mask); err != nil {
		reply(err.Error())
		return
	}

	if seconds > 0 {
		o.timers.Schedule(mask, channel, mode, time.Duration(seconds)*time.Second)
	}
}

// RemoveMode unsets mode from target, either now or after an optional
// delay (".unban x in 1h" schedules the removal instead of issuing it).
func (o *Orchestrator) RemoveMode(channel, mode, target, delay string, reply func(string)) {
	mask, err := o.ResolveMask(target)
	if err != nil {
		if errors.Is(err, ErrNoSuchNick) {
			reply("There is no user by that nick on the network. Check the username or try specifying a full hostmask.")
		} else {
			reply(fmt.Sprintf("That's odd, the whois I did on %s didn't work. Sorry.", target))
		}
		return
	}

	if seconds := ParseTime(delay); seconds > 0 {
		o.timers.Schedule(mask, channel, mode, time.Duration(seconds)*time.Second)
		reply("It shall be done.")
		return
	}

	log.Printf("-%s for %s in %s", mode, mask, channel)
	if err := o.ops.Mode(channel, "-"+mode, mask); err != nil {
		reply(err.Error())
	}
}

// Ban bans target in channel, kicking first when the target names a
// single kickable user. The kick must come before the mode request:
// the kick acquires op, and the mode request drops it again in the same
// line, so the other order would cost an extra op acquisition and leave
// a window with the ban active but the user still present.
func (o *Orchestrator) Ban(channel, target, duration, reason, requestor string, reply func(string)) {
	if nick, ok := kickableNick(target); ok {
		if reason == "" {
			reason = "Requested by " + requestor
		}
		log.Printf("issuing kick for %s in %s before the ban", nick, channel)
		if err := o.ops.Kick(channel, nick, reason); err != nil {
			reply(err.Error())
			return
		}
	}

	o.ApplyMode(channel, "b", target, duration, reply)
}

// Kick removes target from channel.
func (o *Orchestrator) Kick(channel, target, reason string, reply func(string)) {
	if err := o.ops.Kick(channel, target, reason); err != nil {
		reply(err.Error())
	}
}

// GrantMode applies a simple nick-parameter mode change (+o, -v, ...)
// without resolution or timers.
func (o *Orchestrator) GrantMode(channel, flag, nick string, reply func(string)) {
	log.Printf("%s %s in %s", flag, nick, channel)
	if err := o.ops.Mode(channel, flag, nick); err != nil {
		reply(err.Error())
	}
}

// kickableNick extracts the nick to kick when banning target. A bare
// nick is kickable; a full mask is kickable by its nick part when that
// part has no wildcard; extbans never are.
func kickableNick(target string) (string, bool) {
	if strings.Contains(target, "$") {
		return "", false
	}
	if strings.Contains(target, "!") && strings.Contains(target, "@") {
		nick := strings.SplitN(target, "!", 2)[0]
		if !strings.Contains(nick, "*") {
			return nick, true
		}
		return "", false
	}
	if !strings.Contains(target, "!") && !strings.Contains(target, "@") {
		return target, true
	}
	return "", false
}
