package irc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivmsg(t *testing.T) {
	msg, err := Parse("PRIVMSG #meow :Hi there")
	require.NoError(t, err)
	assert.Equal(t, VerbPrivmsg, msg.Command.Verb)
	assert.Equal(t, []string{"#meow"}, msg.Command.Targets)
	assert.Equal(t, "Hi there", msg.Command.Message)
}

func TestParsePing(t *testing.T) {
	msg, err := Parse("PING wuiobgv9")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbPing, Token: "wuiobgv9"}, msg.Command)
}

func TestParseJoinNoKeys(t *testing.T) {
	msg, err := Parse("JOIN #meow")
	require.NoError(t, err)
	assert.Equal(t, []string{"#meow"}, msg.Command.Channels)
	assert.False(t, msg.Command.HasKeys)
}

func TestParseJoinWithKey(t *testing.T) {
	msg, err := Parse("JOIN #meow nyaa")
	require.NoError(t, err)
	assert.Equal(t, []string{"#meow"}, msg.Command.Channels)
	assert.True(t, msg.Command.HasKeys)
	assert.Equal(t, []string{"nyaa"}, msg.Command.Keys)
}

func TestParseMultiJoin(t *testing.T) {
	msg, err := Parse("JOIN #meow,#blep nyaa,mlem")
	require.NoError(t, err)
	assert.Equal(t, []string{"#meow", "#blep"}, msg.Command.Channels)
	assert.Equal(t, []string{"nyaa", "mlem"}, msg.Command.Keys)
}

func TestParsePong(t *testing.T) {
	msg, err := Parse("PONG tigercat2000.dev wuiobgv9")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbPong, Server: "tigercat2000.dev", Token: "wuiobgv9"}, msg.Command)
}

func TestParseMotd(t *testing.T) {
	msg, err := Parse("MOTD")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbMotd}, msg.Command)
}

func TestParseMotdWithServerIsUnimplemented(t *testing.T) {
	msg, err := Parse("MOTD othernetwork.example")
	require.NoError(t, err)
	assert.Equal(t, VerbUnimplemented, msg.Command.Verb)
	assert.Equal(t, "MOTD othernetwork.example", msg.Command.Raw)
}

func TestParseQuitNoMessage(t *testing.T) {
	msg, err := Parse("QUIT")
	require.NoError(t, err)
	assert.Equal(t, Command{Verb: VerbQuit}, msg.Command)
}

func TestParseQuitWithMessage(t *testing.T) {
	msg, err := Parse("QUIT :Leaving")
	require.NoError(t, err)
	assert.True(t, msg.Command.HasMessage)
	assert.Equal(t, "Leaving", msg.Command.Message)
}

func TestParseUser(t *testing.T) {
	msg, err := Parse("USER guest 0 * :Meow Tompski")
	require.NoError(t, err)
	assert.Equal(t, Command{
		Verb: VerbUser, Username: "guest", Mode: "0", Unused: "*", Realname: "Meow Tompski",
	}, msg.Command)
}

func TestParseUserRealnameNoSpaceNoColon(t *testing.T) {
	msg, err := Parse("USER guest 0 * hola")
	require.NoError(t, err)
	assert.Equal(t, "hola", msg.Command.Realname)
}

func TestParseMalformedUserEmptyTrailer(t *testing.T) {
	_, err := Parse("USER guest 0 * :")
	require.Error(t, err)
	var pe *ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestParseUnknownVerb(t *testing.T) {
	msg, err := Parse("POST / HTTP/1.1")
	require.NoError(t, err)
	assert.Equal(t, VerbUnknown, msg.Command.Verb)
	assert.Equal(t, "POST / HTTP/1.1", msg.Command.Raw)
}

func TestParseBlankLine(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestParseDoubleColonIsInvalid(t *testing.T) {
	_, err := Parse(": : PRIVMSG")
	require.Error(t, err)
}

func TestParseTagsAndSource(t *testing.T) {
	msg, err := Parse("@meow;mlem :irc.example.com WIBBLE LS * :multi-prefix extended-join sasl")
	require.NoError(t, err)
	assert.Equal(t, []string{"meow", "mlem"}, msg.Tags)
	assert.Equal(t, "irc.example.com", msg.Source)
	assert.Equal(t, VerbUnknown, msg.Command.Verb)
}

func TestParseTagsSourceAndKnownVerb(t *testing.T) {
	msg, err := Parse("@meow;mlem :irc.example.com USER guest 0 * :Meow Tompski")
	require.NoError(t, err)
	assert.Equal(t, []string{"meow", "mlem"}, msg.Tags)
	assert.Equal(t, "irc.example.com", msg.Source)
	assert.Equal(t, VerbUser, msg.Command.Verb)
	assert.Equal(t, "Meow Tompski", msg.Command.Realname)
}

// TestRoundTrip covers spec.md's invariant 1: for every well-formed line in
// the recognized verb set, serialize(parse(L)) == L.
func TestRoundTrip(t *testing.T) {
	lines := []string{
		"PRIVMSG #meow :hey dudes",
		"USER guest 0 * :Meow Tompski",
		"USER guest 0 * meow",
		"QUIT :Leaving",
		"QUIT",
		"NICK alice",
		"PING abc123",
		"PONG irc.example.com abc123",
		"JOIN #meow",
		"JOIN #meow,#blep nyaa,mlem",
		"PART #meow",
		"PART #meow :goodbye",
		"TOPIC #meow",
		"TOPIC #meow :new topic here",
		"KICK #meow alice :bye",
	}

	for _, line := range lines {
		msg, err := Parse(line)
		require.NoError(t, err, line)
		assert.Equal(t, line, msg.String(), line)
	}
}

func TestRoundTripWithSource(t *testing.T) {
	line := ":alice PRIVMSG #cats :meow"
	msg, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, line, msg.String())
}

// TestNoPanicParsing covers spec.md's invariant 2: parse must never panic,
// regardless of input shape.
func TestNoPanicParsing(t *testing.T) {
	inputs := []string{
		" ",
		"@",
		":",
		"@ :",
		"@tag",
		":source",
		"::double",
		strings.Repeat("a", 5000),
		"NICK",
		"USER a b",
		"JOIN",
		"PRIVMSG",
		"PRIVMSG #a",
		"\x00\x01\x02",
		"@a;b :c ",
	}

	for _, in := range inputs {
		assert.NotPanics(t, func() {
			_, _ = Parse(in)
		}, in)
	}
}

func TestIdentityCanonical(t *testing.T) {
	id := Identity{Nickname: "alice", Username: "alice"}
	assert.Equal(t, "alice!alice@irc.example.com", id.Canonical("irc.example.com"))
}
