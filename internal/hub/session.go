package hub

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/meowirc/catrelay/internal/irc"
)

// sessionState is the Session state machine: Unregistered -> Registered ->
// Quitting -> Done.
type sessionState int

const (
	stateUnregistered sessionState = iota
	stateRegistered
	stateQuitting
)

// outcome is what apply() asks the Session's main loop to do next.
type outcome int

const (
	outcomeFine outcome = iota
	outcomeBroadcast
	outcomeExit
)

// session is one client connection's lifetime: it owns the Connection and
// ClientInfo, applies inbound messages, and originates outbound broadcasts.
type session struct {
	hub   *Hub
	conn  *irc.Connection
	info  *ClientInfo
	state sessionState
	log   *slog.Logger
}

func newSession(h *Hub, conn net.Conn) *session {
	id := uuid.New()
	return &session{
		hub:  h,
		conn: irc.NewConnection(conn, h.cfg.ServerName),
		info: &ClientInfo{ID: id, RemoteAddr: conn.RemoteAddr()},
		log:  h.cfg.Logger.With("session", id, "remote", conn.RemoteAddr().String()),
	}
}

// lineResult carries one ReadLine outcome from the read pump goroutine to
// the main select loop.
type lineResult struct {
	line string
	err  error
}

// run is the Session's main loop: a single cooperative select over the
// next inbound line, the next hub broadcast, and the shutdown signal.
// Inbound lines are processed strictly in arrival order; outbound writes
// on this connection are never interleaved because only this goroutine
// writes to conn.
func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	broadcasts := s.hub.subscribe(s.info.ID)
	defer s.hub.unsubscribe(s.info.ID)

	lines := make(chan lineResult)
	done := make(chan struct{})
	defer close(done)
	go s.readPump(lines, done)

	s.log.Info("session started")

	for {
		select {
		case res := <-lines:
			if res.err != nil {
				if errors.Is(res.err, io.EOF) {
					s.log.Info("peer closed connection")
				} else {
					s.log.Warn("read error, ending session", "error", res.err)
				}
				s.farewell(ctx, "Connection reset", "Connection reset")
				return
			}

			msg, err := irc.Parse(res.line)
			if err != nil {
				// Recoverable: log and continue (SPEC_FULL.md §7/§9).
				s.log.Warn("dropping unparseable line", "error", err)
				continue
			}
			msg.Side = irc.SideClient

			if s.applyAndMaybeBroadcast(ctx, &msg) {
				return
			}

		case env, ok := <-broadcasts:
			if !ok {
				return
			}
			if msg, deliver := s.filterBroadcast(env); deliver {
				msg.Side = irc.SideServer
				if s.applyAndMaybeBroadcast(ctx, &msg) {
					return
				}
			}

		case <-ctx.Done():
			s.state = stateQuitting
			s.farewell(ctx, "Quit: Server shutting down.", "Server shutting down.")
			return
		}
	}
}

// applyAndMaybeBroadcast runs apply() on msg and, if it asks for a
// broadcast, forwards the rewritten message to the hub. It returns true if
// the session should terminate.
func (s *session) applyAndMaybeBroadcast(ctx context.Context, msg *irc.Message) bool {
	oc, err := s.apply(msg)
	if err != nil {
		s.log.Warn("write error, ending session", "error", err)
		return true
	}

	switch oc {
	case outcomeExit:
		return true
	case outcomeBroadcast:
		// A broadcast command whose origin is the server must never be
		// re-broadcast by the receiver: only client-originated messages reach
		// here with outcomeBroadcast (apply() never returns it for
		// irc.SideServer), so this is safe by construction.
		out := *msg
		out.Source = s.info.Username
		out.Side = irc.SideServer
		s.hub.requestBroadcast(ctx, out)
	}

	return false
}

// filterBroadcast decides whether this session should observe env, per the
// spec's broadcast filter rules:
//   - PrivMessage: deliver iff the origin differs from this session's own
//     username and this session's channels intersect the envelope's.
//   - Join: deliver unconditionally.
//   - Part: deliver iff this session shares a parted channel (scoped,
//     unlike Join).
func (s *session) filterBroadcast(env envelope) (irc.Message, bool) {
	switch e := env.(type) {
	case privMessageEnvelope:
		if e.OriginUsername == s.info.Username {
			return irc.Message{}, false
		}
		if !s.info.Intersects(e.Channels) {
			return irc.Message{}, false
		}
		msg, err := irc.Parse(e.Frame)
		if err != nil {
			return irc.Message{}, false
		}
		return msg, true

	case joinEnvelope:
		msg, err := irc.Parse(e.Frame)
		if err != nil {
			return irc.Message{}, false
		}
		return msg, true

	case partEnvelope:
		if !s.info.Intersects(e.Channels) {
			return irc.Message{}, false
		}
		msg, err := irc.Parse(e.Frame)
		if err != nil {
			return irc.Message{}, false
		}
		return msg, true

	case topicEnvelope:
		if !s.info.InChannel(e.Channel) {
			return irc.Message{}, false
		}
		msg, err := irc.Parse(e.Frame)
		if err != nil {
			return irc.Message{}, false
		}
		return msg, true

	default:
		return irc.Message{}, false
	}
}

// readPump continuously reads lines from the socket and forwards them (or
// the terminal error) to lines. It exits once ReadLine returns an error,
// which it will as soon as run() closes the connection on the way out, or
// once run() has closed done and no longer receives from lines.
func (s *session) readPump(lines chan<- lineResult, done <-chan struct{}) {
	for {
		line, err := s.conn.ReadLine()
		select {
		case lines <- lineResult{line: line, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// farewell performs the best-effort QUIT/ERROR write pair used both when the
// socket read ends (peer EOF or read error) and for a server-initiated
// shutdown; a client-initiated QUIT gets only the ERROR line written by
// apply(). quitReason and
// errorReason are distinct literals, not one shared string: the QUIT line
// and the ERROR line carry different text (spec.md §8 S6). I/O errors here
// are swallowed: the session is ending regardless.
func (s *session) farewell(ctx context.Context, quitReason, errorReason string) {
	_ = s.conn.WriteQuit(s.info.Identity(), quitReason)
	_ = s.conn.WriteError(errorReason)
	s.log.Info("session ended", "reason", errorReason)
}

// apply dispatches one Message against this session's state, per the
// per-command table in SPEC_FULL.md §4.5.
func (s *session) apply(msg *irc.Message) (outcome, error) {
	cmd := msg.Command

	switch cmd.Verb {
	case irc.VerbNick:
		if msg.Side == irc.SideClient {
			s.info.Nickname = cmd.Nickname
		}
		return outcomeFine, nil

	case irc.VerbUser:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		s.info.Username = cmd.Username
		s.info.Realname = cmd.Realname
		s.state = stateRegistered
		return outcomeFine, s.conn.WriteRegistration(s.info.Identity(), s.hub.cfg.Version)

	case irc.VerbPing:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		return outcomeFine, s.conn.WritePong(cmd.Token)

	case irc.VerbMotd:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		return outcomeFine, s.conn.WriteMOTD(s.info.Identity(), s.hub.cfg.MOTD)

	case irc.VerbQuit:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		// The client's own QUIT reason is discarded: the server always
		// replies with the fixed "Goodbye!" text (spec.md §8 S5), not an
		// echo of whatever the client supplied.
		s.state = stateQuitting
		if err := s.conn.WriteError("Goodbye!"); err != nil {
			return outcomeExit, nil // best effort: still exit cleanly
		}
		return outcomeExit, nil

	case irc.VerbPrivmsg, irc.VerbNotice:
		if msg.Side == irc.SideClient {
			return outcomeBroadcast, nil
		}
		return outcomeFine, s.conn.WriteRaw(msg.String())

	case irc.VerbJoin:
		if msg.Side == irc.SideClient {
			for _, ch := range cmd.Channels {
				s.info.addChannel(ch)
			}
			// Echo the JOIN back to the originating client (spec §4.4).
			if err := s.conn.WriteRaw(msg.String()); err != nil {
				return outcomeFine, err
			}
			return outcomeBroadcast, nil
		}
		return outcomeFine, s.conn.WriteRaw(msg.String())

	case irc.VerbPart:
		if msg.Side == irc.SideClient {
			for _, ch := range cmd.Channels {
				s.info.removeChannel(ch)
			}
			if err := s.conn.WriteRaw(msg.String()); err != nil {
				return outcomeFine, err
			}
			return outcomeBroadcast, nil
		}
		return outcomeFine, s.conn.WriteRaw(msg.String())

	case irc.VerbTopic:
		if msg.Side != irc.SideClient {
			return outcomeFine, s.conn.WriteRaw(msg.String())
		}
		if !cmd.HasMessage {
			// Bare TOPIC query: no persistent topic store to answer from
			// (SPEC_FULL.md §4.5 Open Question resolution).
			return outcomeFine, s.conn.WriteUnknown(s.info.Identity(), string(cmd.Verb))
		}
		if err := s.conn.WriteRaw(msg.String()); err != nil {
			return outcomeFine, err
		}
		return outcomeBroadcast, nil

	case irc.VerbKick:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		// Requires a channel membership registry keyed by nickname that the
		// spec does not otherwise require (SPEC_FULL.md §4.5 Open Question).
		return outcomeFine, s.conn.WriteUnknown(s.info.Identity(), string(cmd.Verb))

	case irc.VerbUnknown, irc.VerbUnimplemented:
		if msg.Side != irc.SideClient {
			return outcomeFine, nil
		}
		return outcomeFine, s.conn.WriteUnknown(s.info.Identity(), cmd.Raw)

	default:
		// Parsed but not given handling above (e.g. PASS, MODE): recognized
		// at the codec layer only, silently a no-op, matching the
		// "parse-only" classification in spec.md §6.
		return outcomeFine, nil
	}
}
