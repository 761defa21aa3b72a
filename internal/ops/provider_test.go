package ops

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalnet/chanop/internal/correlate"
)

type fakeSender struct {
	mu     sync.Mutex
	lines  []string
	onSend func(line string)
}

func (f *fakeSender) Send(command string, params ...string) error {
	line := command + " " + strings.Join(params, " ")
	f.mu.Lock()
	f.lines = append(f.lines, line)
	hook := f.onSend
	f.mu.Unlock()
	if hook != nil {
		hook(line)
	}
	return nil
}

func (f *fakeSender) CurrentNick() string { return "chanop" }

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func TestModeWhenAlreadyOpped(t *testing.T) {
	conn := &fakeSender{}
	p := NewProvider(conn, "ChanServ", false, time.Second)
	p.HandleModeChange("#help", "o", true, "chanop")

	require.NoError(t, p.Mode("#help", "+b", "*!*@lamer.example.net"))

	// No ChanServ round trip, and the deop rides in the same MODE line.
	assert.Equal(t, []string{"MODE #help +b-o *!*@lamer.example.net chanop"}, conn.sent())
	assert.False(t, p.Opped("#help"))
}

func TestModeAcquiresOpFromChanServ(t *testing.T) {
	conn := &fakeSender{}
	var p *Provider
	conn.onSend = func(line string) {
		// ChanServ grants op as soon as it sees the request.
		if strings.HasPrefix(line, "PRIVMSG ChanServ OP") {
			go p.HandleModeChange("#help", "o", true, "chanop")
		}
	}
	p = NewProvider(conn, "ChanServ", true, time.Second)

	require.NoError(t, p.Mode("#help", "+q", "*!*@spam.example.org"))

	sent := conn.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "OP #help chanop")
	assert.Equal(t, "MODE #help +q *!*@spam.example.org", sent[1])
	assert.True(t, p.Opped("#help"), "keep_op retains op after the request")
}

func TestModeOpAcquisitionTimeout(t *testing.T) {
	conn := &fakeSender{}
	p := NewProvider(conn, "ChanServ", false, 10*time.Millisecond)

	err := p.Mode("#help", "+b", "*!*@lamer.example.net")
	var opErr *OpFailedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "#help", opErr.Channel)
	assert.ErrorIs(t, err, correlate.ErrTimedOut)

	// Only the ChanServ request went out; the MODE never did.
	require.Len(t, conn.sent(), 1)
}

func TestKickRetainsOp(t *testing.T) {
	conn := &fakeSender{}
	p := NewProvider(conn, "ChanServ", false, time.Second)
	p.HandleModeChange("#help", "o", true, "chanop")

	require.NoError(t, p.Kick("#help", "evil", "flooding"))

	assert.Equal(t, []string{"KICK #help evil flooding"}, conn.sent())
	assert.True(t, p.Opped("#help"), "the follow-up ban's mode line does the deop")
}

func TestTopicDeopsAfterwards(t *testing.T) {
	conn := &fakeSender{}
	p := NewProvider(conn, "ChanServ", false, time.Second)
	p.HandleModeChange("#help", "o", true, "chanop")

	require.NoError(t, p.Topic("#help", "welcome | rules"))

	assert.Equal(t, []string{
		"TOPIC #help welcome | rules",
		"MODE #help -o chanop",
	}, conn.sent())
}

func TestHandleModeChangeIgnoresOthers(t *testing.T) {
	conn := &fakeSender{}
	p := NewProvider(conn, "ChanServ", false, time.Second)

	p.HandleModeChange("#help", "o", true, "someoneelse")
	assert.False(t, p.Opped("#help"))

	p.HandleModeChange("#help", "v", true, "chanop")
	assert.False(t, p.Opped("#help"))
}
