package irc

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ergochat/irc-go/ircmsg"

	"github.com/dalnet/chanop/internal/moderate"
)

func (c *Client) onConnect(e ircmsg.Message) {
	log.Println("Connected to IRC server")

	// Identify to NickServ
	if c.cfg.NickPass != "" {
		c.conn.Privmsg("NickServ", fmt.Sprintf("IDENTIFY %s %s", c.cfg.Nick, c.cfg.NickPass))
	}

	for _, channel := range c.cfg.Channels {
		if err := c.conn.Join(channel); err != nil {
			log.Printf("Error joining %s: %v", channel, err)
		}
	}

	// Re-arm persisted unban/unquiet timers, once per process
	c.mu.Lock()
	restored := c.restored
	c.restored = true
	c.mu.Unlock()

	if !restored {
		if err := c.timers.RestoreAll(); err != nil {
			log.Printf("Error restoring timers: %v", err)
		}
	}

	log.Println("Bot initialization complete")
}

func (c *Client) onPrivMsg(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}

	target := e.Params[0]
	message := e.Params[1]

	// Commands only live in channels
	if !strings.HasPrefix(target, "#") || !strings.HasPrefix(message, commandPrefix) {
		return
	}

	nuh, err := e.NUH()
	if err != nil {
		return
	}

	c.dispatchCommand(e.Nick(), nuh.Canonical(), target, message)
}

func (c *Client) onMode(e ircmsg.Message) {
	if len(e.Params) < 2 || !strings.HasPrefix(e.Params[0], "#") {
		return
	}
	channel := e.Params[0]

	for _, ch := range parseModeChanges(e.Params[1], e.Params[2:]) {
		c.ops.HandleModeChange(channel, ch.mode, ch.set, ch.param)

		// Someone lifted a ban/quiet by hand: the matching scheduled
		// reversal would now be redundant.
		if !ch.set && ch.param != "" {
			c.timers.Cancel(ch.param, channel, ch.mode)
		}
	}
}

func (c *Client) onTopic(e ircmsg.Message) {
	if len(e.Params) < 2 {
		return
	}
	c.topics.Observe(e.Params[0], e.Params[1])
}

func (c *Client) onTopicReply(e ircmsg.Message) {
	// 332 <me> <channel> :<topic>
	if len(e.Params) < 3 {
		return
	}
	c.topics.Observe(e.Params[1], e.Params[2])
}

func (c *Client) onNoTopic(e ircmsg.Message) {
	// 331 <me> <channel> :No topic is set
	if len(e.Params) < 2 {
		return
	}
	c.topics.Observe(e.Params[1], "")
}

func (c *Client) onWhoisUser(e ircmsg.Message) {
	// 311 <me> <nick> <user> <host> * :<realname>
	if len(e.Params) < 4 {
		return
	}
	nick := e.Params[1]
	user := e.Params[2]
	host := e.Params[3]

	key := strings.ToLower(nick)
	c.mu.Lock()
	c.whoisMask[key] = fmt.Sprintf("%s!%s@%s", nick, user, host)
	c.mu.Unlock()

	c.whois.Deliver(key, host)
}

func (c *Client) onWhoisAccount(e ircmsg.Message) {
	// 330 <me> <nick> <account> :is logged in as
	if len(e.Params) < 3 {
		return
	}

	c.mu.Lock()
	mask := c.whoisMask[strings.ToLower(e.Params[1])]
	c.mu.Unlock()

	if mask == "" {
		// Account line without a preceding user line; some servers
		// reorder or omit parts of the WHOIS response.
		log.Printf("Got RPL_WHOISACCOUNT for %s but no hostmask for it", e.Params[1])
		return
	}
	c.authn.SetAccount(mask, e.Params[2])
}

func (c *Client) onWhoisEnd(e ircmsg.Message) {
	// 318 <me> <nick> :End of /WHOIS list
	if len(e.Params) < 2 {
		return
	}
	key := strings.ToLower(e.Params[1])

	c.mu.Lock()
	mask := c.whoisMask[key]
	delete(c.whoisMask, key)
	c.mu.Unlock()

	if mask != "" {
		// No-op if an account line already resolved the lookup.
		c.authn.EndWhois(mask)
	}
	// Likewise a no-op unless the server sent neither 311 nor 401.
	c.whois.Fail(key, moderate.ErrNoSuchNick)
}

func (c *Client) onNoSuchNick(e ircmsg.Message) {
	// 401 <me> <nick> :No such nick/channel
	if len(e.Params) < 2 {
		return
	}
	c.whois.Fail(strings.ToLower(e.Params[1]), moderate.ErrNoSuchNick)
}

func (c *Client) onQuit(e ircmsg.Message) {
	if nuh, err := e.NUH(); err == nil {
		c.authn.Forget(nuh.Canonical())
	}
}

func (c *Client) onNick(e ircmsg.Message) {
	// The account cache is keyed by hostmask; a nick change makes the
	// old mask stale.
	if nuh, err := e.NUH(); err == nil {
		c.authn.Forget(nuh.Canonical())
	}
}

func (c *Client) onKick(e ircmsg.Message) {
	// KICK <channel> <nick> [reason]
	if len(e.Params) < 2 {
		return
	}
	channel := e.Params[0]
	if !strings.EqualFold(e.Params[1], c.conn.CurrentNick()) {
		return
	}

	log.Printf("Kicked from %s, rejoining", channel)
	time.AfterFunc(2*time.Second, func() {
		if err := c.conn.Join(channel); err != nil {
			log.Printf("Error rejoining %s: %v", channel, err)
		}
	})
}

func (c *Client) onNickHeld(e ircmsg.Message) {
	if c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	log.Printf("Nick is held, switching to alternate: %s", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)

	// Schedule nick recovery
	go func() {
		time.Sleep(15 * time.Second)
		c.conn.Privmsg("NickServ", fmt.Sprintf("RELEASE %s %s", c.cfg.Nick, c.cfg.NickPass))
		time.Sleep(2 * time.Second)
		c.conn.SetNick(c.cfg.Nick)
	}()
}

func (c *Client) onNickInUse(e ircmsg.Message) {
	if c.conn.CurrentNick() == c.cfg.Alternate {
		return
	}
	log.Printf("Nick in use, switching to alternate: %s", c.cfg.Alternate)
	c.conn.SetNick(c.cfg.Alternate)

	// Schedule nick recovery
	go func() {
		time.Sleep(15 * time.Second)
		c.conn.Privmsg("NickServ", fmt.Sprintf("GHOST %s %s", c.cfg.Nick, c.cfg.NickPass))
		time.Sleep(2 * time.Second)
		c.conn.SetNick(c.cfg.Nick)
	}()
}

func (c *Client) onCtcpVersion(e ircmsg.Message) {
	nick := e.Nick()
	reply := fmt.Sprintf("chanop %s (built %s, commit %s)", Version, BuildDate, GitCommit)
	c.conn.SendRaw(fmt.Sprintf("NOTICE %s :\x01VERSION %s\x01", nick, reply))
}
