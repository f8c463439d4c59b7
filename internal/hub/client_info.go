package hub

import (
	"net"

	"github.com/google/uuid"

	"github.com/meowirc/catrelay/internal/irc"
)

// ClientInfo is the per-session identity: nickname, username, realname, and
// the channels the client has joined. It is created empty on accept and
// mutated by NICK/USER/JOIN handlers; it is destroyed along with its
// Session.
type ClientInfo struct {
	ID         uuid.UUID
	RemoteAddr net.Addr

	Nickname string
	Username string
	Realname string

	Channels []string
}

// Identity returns the view of this ClientInfo that the irc package needs
// to fill in numeric reply parameters.
func (c *ClientInfo) Identity() irc.Identity {
	return irc.Identity{
		Nickname: c.Nickname,
		Username: c.Username,
		Realname: c.Realname,
	}
}

// InChannel reports whether the client has joined channel.
func (c *ClientInfo) InChannel(channel string) bool {
	for _, ch := range c.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// Intersects reports whether any of channels is one this client has joined.
func (c *ClientInfo) Intersects(channels []string) bool {
	for _, ch := range channels {
		if c.InChannel(ch) {
			return true
		}
	}
	return false
}

// addChannel appends channel if not already present.
func (c *ClientInfo) addChannel(channel string) {
	if !c.InChannel(channel) {
		c.Channels = append(c.Channels, channel)
	}
}

// removeChannel deletes channel if present.
func (c *ClientInfo) removeChannel(channel string) {
	for i, ch := range c.Channels {
		if ch == channel {
			c.Channels = append(c.Channels[:i], c.Channels[i+1:]...)
			return
		}
	}
}
