// Package irc implements the line-oriented protocol grammar described by
// RFC 1459/2812: parsing a wire line into a typed Message, and serializing
// a Message back to wire bytes with round-trip fidelity.
package irc

import "strings"

// Side records which direction a Message travelled. It is provenance
// metadata only: it is never part of the wire form.
type Side int

// Side values.
const (
	SideUnknown Side = iota
	SideClient
	SideServer
)

func (s Side) String() string {
	switch s {
	case SideClient:
		return "client"
	case SideServer:
		return "server"
	default:
		return "unknown"
	}
}

// Verb identifies which Command variant a Message carries.
type Verb string

// Verbs the codec can produce. Most of these are recognized for parsing
// only and surface as Unimplemented; see parseCommand.
const (
	VerbNick          Verb = "NICK"
	VerbUser          Verb = "USER"
	VerbPass          Verb = "PASS"
	VerbPing          Verb = "PING"
	VerbPong          Verb = "PONG"
	VerbJoin          Verb = "JOIN"
	VerbPart          Verb = "PART"
	VerbPrivmsg       Verb = "PRIVMSG"
	VerbNotice        Verb = "NOTICE"
	VerbQuit          Verb = "QUIT"
	VerbMotd          Verb = "MOTD"
	VerbMode          Verb = "MODE"
	VerbTopic         Verb = "TOPIC"
	VerbKick          Verb = "KICK"
	VerbAdmin         Verb = "ADMIN"
	VerbAway          Verb = "AWAY"
	VerbConnect       Verb = "CONNECT"
	VerbDie           Verb = "DIE"
	VerbEncap         Verb = "ENCAP"
	VerbError         Verb = "ERROR"
	VerbHelp          Verb = "HELP"
	VerbInfo          Verb = "INFO"
	VerbInvite        Verb = "INVITE"
	VerbKill          Verb = "KILL"
	VerbKnock         Verb = "KNOCK"
	VerbLinks         Verb = "LINKS"
	VerbList          Verb = "LIST"
	VerbLusers        Verb = "LUSERS"
	VerbNames         Verb = "NAMES"
	VerbOper          Verb = "OPER"
	VerbRehash        Verb = "REHASH"
	VerbSquit         Verb = "SQUIT"
	VerbStats         Verb = "STATS"
	VerbTime          Verb = "TIME"
	VerbTrace         Verb = "TRACE"
	VerbUserhost      Verb = "USERHOST"
	VerbUserip        Verb = "USERIP"
	VerbUsers         Verb = "USERS"
	VerbVersion       Verb = "VERSION"
	VerbWallops       Verb = "WALLOPS"
	VerbWho           Verb = "WHO"
	VerbWhois         Verb = "WHOIS"
	VerbUnknown       Verb = "UNKNOWN"
	VerbUnimplemented Verb = "UNIMPLEMENTED"
)

// Command is the tagged variant carrying one parsed IRC command and its
// payload. Only some of the fields below are meaningful for a given Verb;
// which ones is documented per field. Raw carries the trimmed original tail
// for VerbUnknown and VerbUnimplemented.
type Command struct {
	Verb Verb

	Nickname string // NICK
	Username string // USER
	Mode     string // USER, MODE
	Unused   string // USER
	Realname string // USER

	Password string // PASS

	Token string // PING; also PONG's second param

	Server string // PONG

	Channels []string // JOIN, PART
	Keys     []string // JOIN; nil means absent, distinct from an empty slice
	HasKeys  bool

	Targets []string // PRIVMSG, NOTICE

	Message    string // PRIVMSG/NOTICE trailer, PART/QUIT/KICK/TOPIC optional message
	HasMessage bool

	Target string // MODE

	ModeArgs []string // MODE

	Channel string // TOPIC, KICK

	Raw string // UNKNOWN, UNIMPLEMENTED
}

func minLen(parts []string, n int) error {
	if len(parts) < n {
		return &ParseError{Reason: "not enough parameters"}
	}
	return nil
}

// stripColon removes one leading ':' from a trailer and rejects an empty
// result. A trailer consisting of only ':' is invalid input.
func stripColon(s string) (string, error) {
	if s == "" {
		return "", &ParseError{Reason: "empty trailer"}
	}
	if s[0] == ':' {
		s = s[1:]
	}
	if s == "" {
		return "", &ParseError{Reason: "no content after colon"}
	}
	return s, nil
}

// parseCommand parses the verb and its parameters from rest, which is the
// portion of the line after any tags/source have been stripped.
func parseCommand(rest string) (Command, error) {
	parts := strings.Split(rest, " ")
	if len(parts) == 0 || parts[0] == "" {
		return Command{}, &ParseError{Reason: "blank command"}
	}

	verb := Verb(strings.ToUpper(parts[0]))

	switch verb {
	case VerbNick:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbNick, Nickname: parts[1]}, nil

	case VerbUser:
		if err := minLen(parts, 5); err != nil {
			return Command{}, err
		}
		realname, err := stripColon(strings.Join(parts[4:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{
			Verb:     VerbUser,
			Username: parts[1],
			Mode:     parts[2],
			Unused:   parts[3],
			Realname: realname,
		}, nil

	case VerbPass:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbPass, Password: parts[1]}, nil

	case VerbPing:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbPing, Token: parts[1]}, nil

	case VerbPong:
		if err := minLen(parts, 3); err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbPong, Server: parts[1], Token: parts[2]}, nil

	case VerbJoin:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		channels := strings.Split(parts[1], ",")
		cmd := Command{Verb: VerbJoin, Channels: channels}
		if len(parts) >= 3 {
			cmd.Keys = strings.Split(parts[2], ",")
			cmd.HasKeys = true
		}
		return cmd, nil

	case VerbPart:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		channels := strings.Split(parts[1], ",")
		cmd := Command{Verb: VerbPart, Channels: channels}
		if len(parts) >= 3 {
			msg, err := stripColon(strings.Join(parts[2:], " "))
			if err != nil {
				return Command{}, err
			}
			cmd.Message = msg
			cmd.HasMessage = true
		}
		return cmd, nil

	case VerbPrivmsg:
		if err := minLen(parts, 3); err != nil {
			return Command{}, err
		}
		message, err := stripColon(strings.Join(parts[2:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{
			Verb:    VerbPrivmsg,
			Targets: strings.Split(parts[1], ","),
			Message: message,
		}, nil

	case VerbNotice:
		if err := minLen(parts, 3); err != nil {
			return Command{}, err
		}
		message, err := stripColon(strings.Join(parts[2:], " "))
		if err != nil {
			return Command{}, err
		}
		return Command{
			Verb:    VerbNotice,
			Targets: strings.Split(parts[1], ","),
			Message: message,
		}, nil

	case VerbQuit:
		cmd := Command{Verb: VerbQuit}
		if len(parts) > 1 && parts[1] != "" {
			msg, err := stripColon(strings.Join(parts[1:], " "))
			if err != nil {
				return Command{}, err
			}
			cmd.Message = msg
			cmd.HasMessage = true
		}
		return cmd, nil

	case VerbMotd:
		if len(parts) != 1 {
			return Command{Verb: VerbUnimplemented, Raw: strings.TrimSpace(rest)}, nil
		}
		return Command{Verb: VerbMotd}, nil

	case VerbTopic:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		cmd := Command{Verb: VerbTopic, Channel: parts[1]}
		if len(parts) >= 3 {
			msg, err := stripColon(strings.Join(parts[2:], " "))
			if err != nil {
				return Command{}, err
			}
			cmd.Message = msg
			cmd.HasMessage = true
		}
		return cmd, nil

	case VerbKick:
		if err := minLen(parts, 3); err != nil {
			return Command{}, err
		}
		cmd := Command{Verb: VerbKick, Channel: parts[1], Nickname: parts[2]}
		if len(parts) >= 4 {
			msg, err := stripColon(strings.Join(parts[3:], " "))
			if err != nil {
				return Command{}, err
			}
			cmd.Message = msg
			cmd.HasMessage = true
		}
		return cmd, nil

	case VerbMode:
		if err := minLen(parts, 2); err != nil {
			return Command{}, err
		}
		cmd := Command{Verb: VerbMode, Target: parts[1]}
		if len(parts) >= 3 {
			cmd.Mode = parts[2]
		}
		if len(parts) >= 4 {
			cmd.ModeArgs = parts[3:]
		}
		return cmd, nil

	case VerbDie, VerbHelp, VerbRehash:
		return Command{Verb: verb}, nil

	case VerbAdmin, VerbAway, VerbConnect, VerbEncap, VerbError, VerbInfo,
		VerbInvite, VerbKill, VerbKnock, VerbLinks, VerbList, VerbLusers,
		VerbNames, VerbOper, VerbSquit, VerbStats, VerbTime, VerbTrace,
		VerbUserhost, VerbUserip, VerbUsers, VerbVersion, VerbWallops,
		VerbWho, VerbWhois:
		// Grammatically recognized but we don't have a typed payload shape
		// wired yet; keep the trimmed tail around for logging.
		return Command{Verb: VerbUnimplemented, Raw: strings.TrimSpace(rest)}, nil

	default:
		return Command{Verb: VerbUnknown, Raw: strings.TrimSpace(rest)}, nil
	}
}

// encodeCommand is the inverse of parseCommand: it reconstructs the verb
// and parameter portion of a line (no tags/source prefix, no CRLF).
func encodeCommand(c Command) string {
	switch c.Verb {
	case VerbNick:
		return "NICK " + c.Nickname
	case VerbUser:
		if strings.Contains(c.Realname, " ") {
			return "USER " + c.Username + " " + c.Mode + " " + c.Unused + " :" + c.Realname
		}
		return "USER " + c.Username + " " + c.Mode + " " + c.Unused + " " + c.Realname
	case VerbPass:
		return "PASS " + c.Password
	case VerbPing:
		return "PING " + c.Token
	case VerbPong:
		return "PONG " + c.Server + " " + c.Token
	case VerbJoin:
		s := "JOIN " + strings.Join(c.Channels, ",")
		if c.HasKeys {
			s += " " + strings.Join(c.Keys, ",")
		}
		return s
	case VerbPart:
		s := "PART " + strings.Join(c.Channels, ",")
		if c.HasMessage {
			s += " :" + c.Message
		}
		return s
	case VerbPrivmsg:
		return "PRIVMSG " + strings.Join(c.Targets, ",") + " :" + c.Message
	case VerbNotice:
		return "NOTICE " + strings.Join(c.Targets, ",") + " :" + c.Message
	case VerbQuit:
		if c.HasMessage {
			return "QUIT :" + c.Message
		}
		return "QUIT"
	case VerbMotd:
		return "MOTD"
	case VerbTopic:
		s := "TOPIC " + c.Channel
		if c.HasMessage {
			s += " :" + c.Message
		}
		return s
	case VerbKick:
		s := "KICK " + c.Channel + " " + c.Nickname
		if c.HasMessage {
			s += " :" + c.Message
		}
		return s
	case VerbMode:
		s := "MODE " + c.Target
		if c.Mode != "" {
			s += " " + c.Mode
		}
		if len(c.ModeArgs) > 0 {
			s += " " + strings.Join(c.ModeArgs, " ")
		}
		return s
	case VerbDie, VerbHelp, VerbRehash:
		return string(c.Verb)
	case VerbUnknown, VerbUnimplemented:
		return c.Raw
	default:
		return c.Raw
	}
}

// ParseError is returned for any malformed line. It is always recoverable:
// the caller should drop the line and continue.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "irc: invalid input: " + e.Reason
}
