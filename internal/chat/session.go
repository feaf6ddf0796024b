package chat

import (
	"log/slog"
	"net"
	"time"

	"github.com/mkrasov/tcpchat/internal/protocol"
	"github.com/mkrasov/tcpchat/internal/transport"
)

type AuthState int

const (
	StateUnauthorized AuthState = iota
	StateAuthorized
	StateReconnecting
)

// lineSender is what a Session needs from its connection.
type lineSender interface {
	Send(line string)
	Close()
}

// Session is one live connection plus its authentication state. The state
// fields are mutated only on the registry goroutine; the connection side of
// the struct only forwards transport events into the registry.
type Session struct {
	conn    lineSender
	addr    string
	events  chan<- event
	regDone <-chan struct{}
	logger  *slog.Logger

	// Registry-goroutine-owned state.
	state        AuthState
	guest        bool
	nickname     string
	joinedAt     time.Time
	authDeadline time.Duration
}

func newSession(raw net.Conn, reg *Registry, authDeadline time.Duration, outBuffer int, logger *slog.Logger) *Session {
	s := &Session{
		addr:         raw.RemoteAddr().String(),
		events:       reg.events,
		regDone:      reg.doneCh,
		logger:       logger,
		joinedAt:     time.Now(),
		authDeadline: authDeadline,
	}
	c := transport.NewLineConn(raw, s, outBuffer)
	s.conn = c
	c.Start()
	return s
}

func (s *Session) RemoteAddr() string { return s.addr }

// transport.ConnListener; callbacks run on the connection's reader goroutine.

func (s *Session) OnReady(_ *transport.LineConn) {
	s.emit(event{kind: eventReady, session: s})
}

func (s *Session) OnLine(_ *transport.LineConn, line string) {
	s.emit(event{kind: eventLine, session: s, line: line})
}

func (s *Session) OnStopped(_ *transport.LineConn) {
	s.emit(event{kind: eventStopped, session: s})
}

func (s *Session) OnError(_ *transport.LineConn, err error) {
	s.logger.Error("session i/o error", "addr", s.addr, "error", err)
}

// emit forwards one event to the registry, giving up once the registry loop
// has exited so connection goroutines never hang at shutdown.
func (s *Session) emit(ev event) {
	select {
	case s.events <- ev:
	case <-s.regDone:
	}
}

func (s *Session) Send(line string) { s.conn.Send(line) }
func (s *Session) Close()           { s.conn.Close() }

func (s *Session) IsAuthorized() bool   { return s.state == StateAuthorized }
func (s *Session) IsReconnecting() bool { return s.state == StateReconnecting }

// Nickname is the sender name used in broadcasts: the authorized nickname,
// the guest label, or empty for a plain unauthorized session.
func (s *Session) Nickname() string {
	switch {
	case s.state == StateAuthorized:
		return s.nickname
	case s.guest:
		return guestNickname
	default:
		return ""
	}
}

// IsAuthDeadlineExpired reports whether a not-yet-authorized session (guest
// or not) has been idle past the auth deadline.
func (s *Session) IsAuthDeadlineExpired(now time.Time) bool {
	return s.state != StateAuthorized && now.Sub(s.joinedAt) > s.authDeadline
}

// MarkReconnecting flags the session as superseded by a takeover, so its
// stop event produces no disconnect broadcast.
func (s *Session) MarkReconnecting() { s.state = StateReconnecting }

func (s *Session) AcceptAuth(nickname string) {
	s.state = StateAuthorized
	s.nickname = nickname
	s.Send(protocol.AuthAccepted(nickname))
}

func (s *Session) RejectAuth() {
	s.Send(protocol.AuthRejected())
}

// AcceptAsGuest marks the session as a guest. It stays unauthorized: it sees
// broadcasts and can send them, but never enters the user list and is still
// subject to the auth deadline.
func (s *Session) AcceptAsGuest() { s.guest = true }
