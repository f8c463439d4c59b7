// Package hub implements the concurrent relay engine: a Hub that accepts
// connections and owns the broadcast fabric, and per-connection Sessions
// that apply inbound commands and originate outbound broadcasts.
package hub

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/meowirc/catrelay/internal/connlimit"
	"github.com/meowirc/catrelay/internal/irc"
)

// requestQueueCapacity bounds the hub's inbound broadcast-request queue. A
// Session blocks on send into it once full, which applies backpressure to
// that session's inbound socket reads.
const requestQueueCapacity = 20

// broadcastBufferCapacity bounds each session's broadcast receive buffer.
// Publish to a full buffer is dropped (lossy fan-out) rather than blocking
// the Hub on a slow subscriber.
const broadcastBufferCapacity = 32

// state is the Hub's lifecycle: Running -> Draining -> Stopped.
type state int

const (
	stateRunning state = iota
	stateDraining
	stateStopped
)

// Config carries the values Hub needs to construct Sessions and reply to
// clients.
type Config struct {
	ServerName   string
	Version      string
	MOTD         string
	ConnLimiter  *connlimit.Limiter
	Logger       *slog.Logger
}

// Hub is the process-wide coordinator. It owns the listener, the broadcast
// fabric, and the inbound request queue that sessions use to ask for a
// broadcast-class command to be fanned out.
type Hub struct {
	cfg Config

	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan envelope
	state       state

	requests chan irc.Message

	wg sync.WaitGroup
}

// New creates a Hub. Call Run to start accepting connections.
func New(cfg Config) *Hub {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Hub{
		cfg:         cfg,
		subscribers: make(map[uuid.UUID]chan envelope),
		requests:    make(chan irc.Message, requestQueueCapacity),
	}
}

// Run blocks until ctx is cancelled or the accept loop fails fatally. On
// return every spawned Session has finished (the join barrier has closed).
func (h *Hub) Run(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.cfg.Logger.Info("hub starting", "addr", listener.Addr().String())

	go h.processRequests(ctx)

	acceptErr := make(chan error, 1)
	go func() {
		acceptErr <- h.acceptLoop(ctx, listener)
	}()

	var runErr error
	acceptReturned := false
	select {
	case err := <-acceptErr:
		runErr = err
		acceptReturned = true
	case <-ctx.Done():
		h.cfg.Logger.Info("shutdown signalled, draining")
	}

	h.setState(stateDraining)
	cancel() // every Session observes the shutdown signal
	_ = listener.Close()
	if !acceptReturned {
		<-acceptErr // acceptLoop always returns once the listener is closed
	}

	h.wg.Wait()
	h.setState(stateStopped)
	h.cfg.Logger.Info("hub stopped")

	return runErr
}

func (h *Hub) setState(s state) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// acceptLoop accepts sockets until listener is closed (which Run does on
// shutdown), spawning one Session per accepted socket.
func (h *Hub) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if isClosedConnError(err) {
				return nil
			}
			return errors.Wrap(err, "accept failed")
		}

		h.accept(ctx, conn)
	}
}

// accept admits or rejects a new socket, and for an admitted socket spawns
// its Session as an independent goroutine tracked by the join barrier.
func (h *Hub) accept(ctx context.Context, conn net.Conn) {
	remoteHost, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	if h.cfg.ConnLimiter != nil && !h.cfg.ConnLimiter.Allow(remoteHost) {
		h.cfg.Logger.Warn("rejecting connection: rate exceeded", "remote", remoteHost)
		_, _ = conn.Write([]byte("ERROR :Connection rate exceeded\r\n"))
		_ = conn.Close()
		return
	}

	sess := newSession(h, conn)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		sess.run(ctx)
	}()
}

// processRequests reads broadcast-class Messages sessions have asked the
// hub to fan out, wraps them in the appropriate envelope, and publishes.
func (h *Hub) processRequests(ctx context.Context) {
	for {
		select {
		case msg, ok := <-h.requests:
			if !ok {
				return
			}
			h.route(msg)
		case <-ctx.Done():
			return
		}
	}
}

// route inspects a client-originated Message and decides whether the hub
// should fan it out, per spec: PRIVMSG/NOTICE, JOIN/PART and TOPIC are the
// only broadcast-class commands; anything else is ignored.
func (h *Hub) route(msg irc.Message) {
	frame := msg.String()

	switch msg.Command.Verb {
	case irc.VerbPrivmsg, irc.VerbNotice:
		h.publish(privMessageEnvelope{
			Channels:       msg.Command.Targets,
			OriginUsername: msg.Source,
			Frame:          frame,
		})
	case irc.VerbJoin:
		h.publish(joinEnvelope{
			OriginUsername: msg.Source,
			Frame:          frame,
		})
	case irc.VerbPart:
		h.publish(partEnvelope{
			Channels:       msg.Command.Channels,
			OriginUsername: msg.Source,
			Frame:          frame,
		})
	case irc.VerbTopic:
		h.publish(topicEnvelope{
			Channel: msg.Command.Channel,
			Frame:   frame,
		})
	}
}

// publish fans env out to every subscriber. Send is non-blocking: a
// subscriber whose buffer is full observes a lag (the message is dropped
// for it) rather than blocking the hub.
func (h *Hub) publish(env envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- env:
		default:
			h.cfg.Logger.Warn("broadcast lag: dropping for slow subscriber", "session", id)
		}
	}
}

// subscribe registers id for broadcast delivery and returns its receive
// channel.
func (h *Hub) subscribe(id uuid.UUID) chan envelope {
	ch := make(chan envelope, broadcastBufferCapacity)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	return ch
}

// unsubscribe removes id's broadcast subscription.
func (h *Hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(ch)
	}
	h.mu.Unlock()
}

// requestBroadcast is how a Session asks the hub to fan out a command it
// applied. It blocks if the hub's inbound queue is full, which is the
// spec's desired backpressure onto that session's inbound reads.
func (h *Hub) requestBroadcast(ctx context.Context, msg irc.Message) {
	select {
	case h.requests <- msg:
	case <-ctx.Done():
	}
}
