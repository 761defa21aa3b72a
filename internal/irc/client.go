package irc

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"golang.org/x/time/rate"

	"github.com/dalnet/chanop/internal/auth"
	"github.com/dalnet/chanop/internal/config"
	"github.com/dalnet/chanop/internal/correlate"
	"github.com/dalnet/chanop/internal/moderate"
	"github.com/dalnet/chanop/internal/ops"
	"github.com/dalnet/chanop/internal/timers"
	"github.com/dalnet/chanop/internal/topic"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Correlation bounds. WHOIS answers arrive fast or not at all; topic
// replies and ChanServ can be slower.
const (
	whoisTimeout = 5 * time.Second
	topicTimeout = 10 * time.Second
	opTimeout    = 10 * time.Second
)

// Client represents the IRC moderation bot
type Client struct {
	conn *ircevent.Connection
	cfg  *config.Config

	whois  *correlate.Broker
	authn  *auth.Authenticator
	ops    *ops.Provider
	timers *timers.Registry
	topics *topic.Stack
	mod    *moderate.Orchestrator

	commands map[string]*command

	mu sync.Mutex
	// nick (lowercased) -> canonical hostmask, correlating the separate
	// lines of a WHOIS response
	whoisMask map[string]string
	restored  bool

	// Outbound messages funnel through a single writer so replies from
	// command goroutines are flood-limited in one place.
	outgoing chan outboundMsg
	limiter  *rate.Limiter

	// Shutdown/restart callbacks
	OnShutdown func()
	OnRestart  func()
}

type outboundMsg struct {
	target string
	text   string
}

// NewClient creates a new IRC client
func NewClient(cfg *config.Config) (*Client, error) {
	c := &Client{
		cfg:       cfg,
		whoisMask: make(map[string]string),
		outgoing:  make(chan outboundMsg, 64),
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
	}

	conn := &ircevent.Connection{
		Server:      fmt.Sprintf("%s:%d", cfg.Server, cfg.Port),
		Nick:        cfg.Nick,
		User:        cfg.Username,
		RealName:    cfg.IRCName,
		Password:    cfg.ServerPass,
		QuitMessage: "Shutting down",
		Debug:       false,
		UseTLS:      cfg.UseTLS,
		TLSConfig:   &tls.Config{InsecureSkipVerify: true},
	}
	c.conn = conn

	whoisRequest := func(nick string) {
		if err := conn.Send("WHOIS", nick); err != nil {
			log.Printf("Error sending WHOIS for %s: %v", nick, err)
		}
	}
	c.whois = correlate.New(whoisTimeout, false, whoisRequest)
	c.authn = auth.New(cfg.Permissions, whoisTimeout, whoisRequest)
	c.ops = ops.NewProvider(conn, cfg.ChanServ, cfg.KeepOp, opTimeout)
	c.topics = topic.NewStack(correlate.New(topicTimeout, false, func(channel string) {
		if err := conn.Send("TOPIC", channel); err != nil {
			log.Printf("Error requesting topic for %s: %v", channel, err)
		}
	}))
	c.timers = timers.New(cfg.DataDir, c.reverseMode)
	c.mod = moderate.New(c.whois, c.ops, c.timers)
	c.commands = commandTable()

	c.registerHandlers()

	return c, nil
}

func (c *Client) registerHandlers() {
	// Connected (end of MOTD)
	c.conn.AddCallback("376", c.onConnect)
	c.conn.AddCallback("422", c.onConnect) // MOTD missing is also "connected"

	// Channel messages carry the commands
	c.conn.AddCallback("PRIVMSG", c.onPrivMsg)

	// Mode changes: op tracking and early timer cancellation
	c.conn.AddCallback("MODE", c.onMode)

	// Topic updates and replies
	c.conn.AddCallback("TOPIC", c.onTopic)
	c.conn.AddCallback("332", c.onTopicReply) // RPL_TOPIC
	c.conn.AddCallback("331", c.onNoTopic)    // RPL_NOTOPIC

	// WHOIS correlation
	c.conn.AddCallback("311", c.onWhoisUser)    // RPL_WHOISUSER
	c.conn.AddCallback("330", c.onWhoisAccount) // RPL_WHOISACCOUNT
	c.conn.AddCallback("318", c.onWhoisEnd)     // RPL_ENDOFWHOIS
	c.conn.AddCallback("401", c.onNoSuchNick)   // ERR_NOSUCHNICK

	// Volatile auth cache maintenance
	c.conn.AddCallback("QUIT", c.onQuit)
	c.conn.AddCallback("NICK", c.onNick)

	// Getting kicked ourselves
	c.conn.AddCallback("KICK", c.onKick)

	// Nick issues
	c.conn.AddCallback("432", c.onNickHeld)  // ERR_ERRONEUSNICKNAME
	c.conn.AddCallback("433", c.onNickInUse) // ERR_NICKNAMEINUSE

	// CTCP VERSION
	c.conn.AddCallback("CTCP_VERSION", c.onCtcpVersion)
}

// Connect initiates the IRC connection
func (c *Client) Connect() error {
	go c.writeLoop()
	return c.conn.Connect()
}

// Loop runs the IRC event loop (blocking)
func (c *Client) Loop() {
	c.conn.Loop()
}

// Quit disconnects from IRC and halts pending timers. Their durable
// entries stay on disk for the next start.
func (c *Client) Quit(message string) {
	c.timers.Stop()
	if message != "" {
		c.conn.QuitMessage = message
	}
	c.conn.Quit()
}

// say queues a message for target through the flood limiter.
func (c *Client) say(target, text string) {
	select {
	case c.outgoing <- outboundMsg{target: target, text: text}:
	default:
		log.Printf("Outgoing queue full, dropping message to %s", target)
	}
}

func (c *Client) writeLoop() {
	for m := range c.outgoing {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}
		c.conn.Privmsg(m.target, m.text)
	}
}

// reverseMode is the timer registry's fire callback: undo a timed mode.
// Failure is reported to the channel, never retried; a missed reversal
// needs a human.
func (c *Client) reverseMode(target, channel, mode string) {
	if err := c.ops.Mode(channel, "-"+mode, target); err != nil {
		c.say(channel, fmt.Sprintf("I was about to un-%s %s, but %v", moderate.ModeVerb(mode), target, err))
	}
}
