package chat

import (
	"errors"
	"log/slog"
	"time"

	"github.com/mkrasov/tcpchat/internal/creds"
	"github.com/mkrasov/tcpchat/internal/protocol"
)

// Registry serializes every session mutation, broadcast and watchdog sweep
// through one event loop. Check-then-mutate sequences (nickname uniqueness,
// takeover, user-list recompute) are atomic because they all run here.
type Registry struct {
	events chan event
	stopCh chan struct{}
	doneCh chan struct{}
	store  creds.Store
	logger *slog.Logger
}

func NewRegistry(buffer int, store creds.Store, logger *slog.Logger) *Registry {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		events: make(chan event, buffer),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		store:  store,
		logger: logger.With("component", "registry"),
	}
}

// Stop signals the Run loop to force-close every session and exit.
func (r *Registry) Stop() {
	close(r.stopCh)
}

// Wait blocks until the Run loop has completely finished.
func (r *Registry) Wait() {
	<-r.doneCh
}

func (r *Registry) Run() {
	defer close(r.doneCh)
	// Single-writer ownership: the roster is only touched on this goroutine.
	ro := &roster{}

	for {
		select {
		case ev := <-r.events:
			start := time.Now()
			kind := ""

			switch ev.kind {
			case eventReady:
				kind = "ready"
				r.handleReady(ro, ev.session)
			case eventLine:
				kind = "line"
				r.handleLine(ro, ev.session, ev.line)
			case eventStopped:
				kind = "stopped"
				r.handleStopped(ro, ev.session)
			case eventSweep:
				kind = "sweep"
				r.handleSweep(ro)
			}

			EventsTotal.WithLabelValues(kind).Inc()
			EventProcessingDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		case <-r.stopCh:
			for _, s := range ro.snapshot() {
				s.Close()
			}
			ConnectedSessions.Set(0)
			return
		}
	}
}

func (r *Registry) handleReady(ro *roster, s *Session) {
	if ro.contains(s) {
		return
	}
	ro.add(s)
	ConnectedSessions.Set(float64(ro.size()))
	r.logger.Info("session ready", "addr", s.addr)
}

// handleStopped removes a closed session. The disconnect broadcast is only
// sent for an authorized, non-superseded session that was still registered;
// the user list is rebroadcast on every stop, matching what peers see after
// a takeover or an eviction as well.
func (r *Registry) handleStopped(ro *roster, s *Session) {
	if ro.remove(s) {
		ConnectedSessions.Set(float64(ro.size()))
		r.logger.Info("session stopped", "addr", s.addr)

		if s.IsAuthorized() && !s.IsReconnecting() {
			r.broadcast(ro, protocol.Broadcast(serverName, s.Nickname()+" disconnected"))
		}
	}
	r.broadcast(ro, protocol.UserList(ro.nicknames()))
}

func (r *Registry) handleLine(ro *roster, s *Session, line string) {
	if s.IsAuthorized() {
		r.handleChat(ro, s, line)
	} else {
		r.handleUnauthorized(ro, s, line)
	}
}

func (r *Registry) handleUnauthorized(ro *roster, s *Session, line string) {
	step := evaluateAuth(line, func(login, password string) (string, bool) {
		nickname, err := r.store.LookupNickname(login, password)
		if err != nil {
			if !errors.Is(err, creds.ErrUnknownIdentity) {
				r.logger.Error("credential lookup failed", "login", login, "error", err)
			}
			return "", false
		}
		return nickname, true
	})

	switch step.action {
	case actGuest:
		s.AcceptAsGuest()
		r.logger.Info("guest connected", "addr", s.addr)
		r.broadcast(ro, protocol.Broadcast(serverName, guestNickname+" connected"))
	case actChatFallthrough:
		r.handleChat(ro, s, line)
	case actReject:
		// Never log the password.
		r.logger.Warn("invalid login attempt", "login", step.login, "addr", s.addr)
		s.RejectAuth()
	case actAccept:
		if old := ro.findByNickname(step.nickname); old != nil {
			// Takeover: the superseded session leaves silently.
			old.MarkReconnecting()
			ro.remove(old)
			old.Close()
			s.AcceptAuth(step.nickname)
			r.logger.Info("session reconnected", "nickname", step.nickname, "addr", s.addr)
		} else {
			s.AcceptAuth(step.nickname)
			r.logger.Info("session authorized", "nickname", step.nickname, "addr", s.addr)
			r.broadcast(ro, protocol.Broadcast(serverName, step.nickname+" connected"))
		}
		ConnectedSessions.Set(float64(ro.size()))
		r.broadcast(ro, protocol.UserList(ro.nicknames()))
	}
}

// handleChat dispatches one line from an authorized session, or from an
// unauthorized one whose handshake input fell through.
func (r *Registry) handleChat(ro *roster, s *Session, line string) {
	fields := protocol.Fields(line)
	if fields[0] == protocol.TagBroadcast && len(fields) >= 2 {
		r.broadcast(ro, protocol.Broadcast(s.Nickname(), fields[1]))
		return
	}
	s.Send(protocol.FormatError(line))
}

// handleSweep force-closes unauthorized sessions past their auth deadline.
func (r *Registry) handleSweep(ro *roster) {
	now := time.Now()
	for _, s := range ro.snapshot() {
		if !s.IsAuthDeadlineExpired(now) {
			continue
		}
		ro.remove(s)
		s.Close()
		r.logger.Info("auth deadline expired", "addr", s.addr)
	}
	ConnectedSessions.Set(float64(ro.size()))
}

// broadcast delivers one line to every registered session, unauthorized and
// guest sessions included. The roster snapshot is taken once per call.
func (r *Registry) broadcast(ro *roster, line string) {
	for _, s := range ro.snapshot() {
		s.Send(line)
	}
}
