// Package auth resolves hostmasks to services account names over WHOIS
// and maps accounts to permission lists. Account lookups are cached
// until the user quits or changes nick; unidentified users resolve to no
// permissions.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dalnet/chanop/internal/correlate"
)

// ErrNotIdentified means the WHOIS finished without an account line.
var ErrNotIdentified = errors.New("user is not identified with services")

// Authenticator answers "what may this hostmask do".
type Authenticator struct {
	broker *correlate.Broker

	mu    sync.Mutex
	perms map[string][]string
}

// New creates an authenticator. whois is invoked with the nick part of a
// hostmask to issue the lookup; SetAccount and EndWhois feed the
// responses back in.
func New(perms map[string][]string, timeout time.Duration, whois func(nick string)) *Authenticator {
	a := &Authenticator{perms: perms}
	if a.perms == nil {
		a.perms = make(map[string][]string)
	}
	a.broker = correlate.New(timeout, true, func(hostmask string) {
		whois(strings.SplitN(hostmask, "!", 2)[0])
	})
	return a
}

// Permissions blocks until the hostmask's account is known (or the
// lookup fails) and returns the account's permission list. Any failure
// means no permissions.
func (a *Authenticator) Permissions(hostmask string) []string {
	res := <-a.broker.Resolve(hostmask)
	if res.Err != nil || res.Value == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.perms[res.Value]
}

// SetAccount records that hostmask is identified as account, resolving
// any pending lookups.
func (a *Authenticator) SetAccount(hostmask, account string) {
	a.broker.Deliver(hostmask, account)
}

// EndWhois marks a finished WHOIS. Pending lookups that never saw an
// account line resolve as unidentified; nothing is cached, so the user
// can identify later and be seen.
func (a *Authenticator) EndWhois(hostmask string) {
	a.broker.Fail(hostmask, ErrNotIdentified)
}

// Forget drops the cached account for hostmask (user quit or changed
// nick).
func (a *Authenticator) Forget(hostmask string) {
	a.broker.Forget(hostmask)
}

// HasPermission reports whether perms grants required. A trailing ".*"
// in a granted permission matches any permission under that prefix, and
// a bare "*" grants everything. An empty requirement always passes.
func HasPermission(perms []string, required string) bool {
	if required == "" {
		return true
	}
	for _, p := range perms {
		if p == required || p == "*" {
			return true
		}
		if strings.HasSuffix(p, ".*") && strings.HasPrefix(required, p[:len(p)-1]) {
			return true
		}
	}
	return false
}
