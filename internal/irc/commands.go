package irc

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dalnet/chanop/internal/auth"
	"github.com/dalnet/chanop/internal/moderate"
	"github.com/dalnet/chanop/internal/topic"
)

const commandPrefix = "."

// command is one entry in the registry built at startup. Aliases map to
// the same entry; perm is the permission the caller's account must hold.
type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	perm    string
	handler func(c *Client, ev *commandEvent)
	// denied runs when the caller lacks perm; returning true suppresses
	// the standard denial reply.
	denied func(c *Client, ev *commandEvent) bool
}

// commandEvent carries one parsed command invocation.
type commandEvent struct {
	nick     string
	hostmask string
	channel  string
	args     []string
	reply    func(string)
}

func commandTable() map[string]*command {
	cmds := []*command{
		{
			name:    "kick",
			usage:   "<nickname> [reason]",
			help:    "Kicks a user from the current channel",
			perm:    "irc.op.kick",
			handler: cmdKick,
			denied:  deniedKick,
		},
		{
			name:    "op",
			usage:   "[nick]",
			help:    "Gives op to the specified user",
			perm:    "irc.op.op",
			handler: cmdOp,
		},
		{
			name:    "deop",
			usage:   "[nick]",
			help:    "Takes op from the specified user",
			perm:    "irc.op.op",
			handler: cmdDeop,
		},
		{
			name:    "voice",
			aliases: []string{"hat"},
			usage:   "[nick]",
			help:    "Grants a user voice in the current channel",
			perm:    "irc.op.voice",
			handler: cmdVoice,
		},
		{
			name:    "devoice",
			aliases: []string{"dehat", "unhat"},
			usage:   "[nick]",
			help:    "Revokes a user's voice in the current channel",
			perm:    "irc.op.voice",
			handler: cmdDevoice,
		},
		{
			name:    "quiet",
			aliases: []string{"mute"},
			usage:   "<nick or hostmask> [for <duration>]",
			help:    "Quiets a user",
			perm:    "irc.op.quiet",
			handler: cmdQuiet,
			denied:  deniedQuiet,
		},
		{
			name:    "unquiet",
			aliases: []string{"unmute"},
			usage:   "<nick or hostmask> [in <delay>]",
			help:    "Un-quiets a user",
			perm:    "irc.op.quiet",
			handler: cmdUnquiet,
		},
		{
			name:    "ban",
			usage:   "<nick or hostmask> [for <duration>] [reason]",
			help:    "Bans a user",
			perm:    "irc.op.ban",
			handler: cmdBan,
		},
		{
			name:    "unban",
			usage:   "<nick or hostmask> [in <delay>]",
			help:    "Un-bans a user",
			perm:    "irc.op.ban",
			handler: cmdUnban,
		},
		{
			name:    "topic",
			usage:   "append|insert|replace|remove|pop|undo ...",
			help:    "Topic manipulation commands",
			perm:    "irc.op.topic",
			handler: cmdTopic,
		},
		{
			name:    "help",
			help:    "Lists available commands",
			handler: cmdHelp,
		},
		{
			name:    "version",
			help:    "Displays bot version information",
			handler: cmdVersion,
		},
	}

	table := make(map[string]*command)
	for _, cmd := range cmds {
		table[cmd.name] = cmd
		for _, a := range cmd.aliases {
			table[a] = cmd
		}
	}
	return table
}

// dispatchCommand parses a channel message and runs the matching
// command on its own goroutine; handlers block on WHOIS and topic
// correlation, and those answers arrive through the event loop that
// called us.
func (c *Client) dispatchCommand(nick, hostmask, channel, message string) {
	fields := strings.Fields(strings.TrimPrefix(message, commandPrefix))
	if len(fields) == 0 {
		return
	}

	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return
	}

	ev := &commandEvent{
		nick:     nick,
		hostmask: hostmask,
		channel:  channel,
		args:     fields[1:],
		reply: func(s string) {
			c.say(channel, fmt.Sprintf("%s: %s", nick, s))
		},
	}

	go c.runCommand(cmd, ev)
}

func (c *Client) runCommand(cmd *command, ev *commandEvent) {
	if cmd.perm != "" {
		perms := c.authn.Permissions(ev.hostmask)
		if !auth.HasPermission(perms, cmd.perm) {
			if cmd.denied != nil && cmd.denied(c, ev) {
				return
			}
			ev.reply("You don't have permission to do that.")
			return
		}
	}
	cmd.handler(c, ev)
}

func cmdKick(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "kick <nickname> [reason]")
		return
	}
	c.mod.Kick(ev.channel, ev.args[0], strings.Join(ev.args[1:], " "), ev.reply)
}

// deniedKick: asking the bot to kick yourself works even without the
// permission.
func deniedKick(c *Client, ev *commandEvent) bool {
	if len(ev.args) > 0 && strings.EqualFold(ev.args[0], ev.nick) {
		c.mod.Kick(ev.channel, ev.nick, "okay, you asked for it", ev.reply)
		return true
	}
	return false
}

// deniedQuiet: likewise for quieting yourself, briefly.
func deniedQuiet(c *Client, ev *commandEvent) bool {
	if len(ev.args) > 0 && strings.EqualFold(ev.args[0], ev.nick) {
		c.mod.ApplyMode(ev.channel, "q", ev.nick, "10s", ev.reply)
		return true
	}
	return false
}

func cmdOp(c *Client, ev *commandEvent) {
	c.mod.GrantMode(ev.channel, "+o", nickOrSelf(ev), ev.reply)
}

func cmdDeop(c *Client, ev *commandEvent) {
	c.mod.GrantMode(ev.channel, "-o", nickOrSelf(ev), ev.reply)
}

func cmdVoice(c *Client, ev *commandEvent) {
	c.mod.GrantMode(ev.channel, "+v", nickOrSelf(ev), ev.reply)
}

func cmdDevoice(c *Client, ev *commandEvent) {
	c.mod.GrantMode(ev.channel, "-v", nickOrSelf(ev), ev.reply)
}

// nickOrSelf defaults the op/voice target to the requester.
func nickOrSelf(ev *commandEvent) string {
	if len(ev.args) > 0 {
		return ev.args[0]
	}
	return ev.nick
}

func cmdQuiet(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "quiet <nick or hostmask> [for <duration>]")
		return
	}
	target, duration, _ := splitTargetDuration(ev.args, "for")
	c.mod.ApplyMode(ev.channel, "q", target, duration, ev.reply)
}

func cmdUnquiet(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "unquiet <nick or hostmask> [in <delay>]")
		return
	}
	target, delay, _ := splitTargetDuration(ev.args, "in")
	c.mod.RemoveMode(ev.channel, "q", target, delay, ev.reply)
}

func cmdBan(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "ban <nick or hostmask> [for <duration>] [reason]")
		return
	}
	target, duration, rest := splitTargetDuration(ev.args, "for")
	c.mod.Ban(ev.channel, target, duration, strings.Join(rest, " "), ev.nick, ev.reply)
}

func cmdUnban(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "unban <nick or hostmask> [in <delay>]")
		return
	}
	target, delay, _ := splitTargetDuration(ev.args, "in")
	c.mod.RemoveMode(ev.channel, "b", target, delay, ev.reply)
}

// splitTargetDuration parses "<target> [marker] [duration...] [rest]".
// The marker word ("for"/"in") is optional; duration tokens like "1h30m"
// are concatenated. Remaining words are returned untouched (ban reason).
func splitTargetDuration(args []string, marker string) (target, duration string, rest []string) {
	target = args[0]
	i := 1
	if i < len(args) && strings.EqualFold(args[i], marker) &&
		i+1 < len(args) && moderate.IsDuration(args[i+1]) {
		i++
	}
	for i < len(args) && moderate.IsDuration(args[i]) {
		duration += args[i]
		i++
	}
	return target, duration, args[i:]
}

func cmdTopic(c *Client, ev *commandEvent) {
	if len(ev.args) == 0 {
		ev.reply("Usage: " + commandPrefix + "topic append|insert|replace|remove|pop|undo ...")
		return
	}
	sub := strings.ToLower(ev.args[0])
	args := ev.args[1:]

	switch sub {
	case "undo":
		prev, err := c.topics.Undo(ev.channel)
		if err != nil {
			ev.reply("I don't know what the topic used to be. Cannot undo =(")
			return
		}
		c.setTopic(ev, prev)

	case "append", "push":
		if len(args) == 0 {
			ev.reply("Usage: " + commandPrefix + "topic append <text>")
			return
		}
		c.editTopic(ev, func(current string) (string, error) {
			return topic.Append(current, strings.Join(args, " ")), nil
		})

	case "insert":
		pos, text, ok := posAndText(args)
		if !ok {
			ev.reply("Usage: " + commandPrefix + "topic insert <pos> <text>")
			return
		}
		c.editTopic(ev, func(current string) (string, error) {
			return topic.Insert(current, pos, text), nil
		})

	case "replace", "set":
		pos, text, ok := posAndText(args)
		if !ok {
			ev.reply("Usage: " + commandPrefix + "topic replace <pos> <text>")
			return
		}
		c.editTopic(ev, func(current string) (string, error) {
			return topic.Replace(current, pos, text)
		})

	case "remove":
		if len(args) != 1 {
			ev.reply("Usage: " + commandPrefix + "topic remove <pos>")
			return
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			ev.reply("Usage: " + commandPrefix + "topic remove <pos>")
			return
		}
		c.editTopic(ev, func(current string) (string, error) {
			return topic.Remove(current, pos)
		})

	case "pop":
		c.editTopic(ev, topic.Pop)

	default:
		ev.reply("Unknown topic subcommand. Try append, insert, replace, remove, pop or undo.")
	}
}

func posAndText(args []string) (int, string, bool) {
	if len(args) < 2 {
		return 0, "", false
	}
	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, "", false
	}
	return pos, strings.Join(args[1:], " "), true
}

// editTopic fetches the current topic, applies edit and issues the
// result as a topic change. The change only enters history once the
// server confirms it.
func (c *Client) editTopic(ev *commandEvent, edit func(current string) (string, error)) {
	res := <-c.topics.Current(ev.channel)
	if res.Err != nil {
		ev.reply("Could not determine current topic")
		return
	}

	newTopic, err := edit(res.Value)
	if err != nil {
		var ie *topic.IndexError
		if errors.As(err, &ie) {
			ev.reply(fmt.Sprintf("There are only %d topic parts. Remember indexes start at 0", ie.Count))
			return
		}
		ev.reply(err.Error())
		return
	}

	c.setTopic(ev, newTopic)
}

func (c *Client) setTopic(ev *commandEvent, text string) {
	if err := c.ops.Topic(ev.channel, text); err != nil {
		ev.reply(err.Error())
	}
}

func cmdHelp(c *Client, ev *commandEvent) {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range c.commands {
		if !seen[cmd.name] {
			seen[cmd.name] = true
			names = append(names, cmd.name)
		}
	}
	sort.Strings(names)

	c.say(ev.nick, "Available commands:")
	for _, name := range names {
		cmd := c.commands[name]
		line := commandPrefix + cmd.name
		if cmd.usage != "" {
			line += " " + cmd.usage
		}
		c.say(ev.nick, fmt.Sprintf("%s - %s", line, cmd.help))
	}
}

func cmdVersion(c *Client, ev *commandEvent) {
	ev.reply(fmt.Sprintf("chanop version %s (built %s, commit %s)", Version, BuildDate, GitCommit))
}
