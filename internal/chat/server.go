package chat

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/mkrasov/tcpchat/internal/creds"
	"github.com/mkrasov/tcpchat/internal/transport"
)

// Server wires the acceptor, the registry loop and the watchdog together
// and owns the start/stop lifecycle. Start and Stop are idempotent.
type Server struct {
	cfg    Config
	store  creds.Store
	logger *slog.Logger

	mu           sync.Mutex
	running      bool
	reg          *Registry
	acceptor     *transport.Acceptor
	watchdogStop chan struct{}
	watchdogDone chan struct{}
}

func NewServer(cfg Config, store creds.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Info("server already started")
		return nil
	}

	s.reg = NewRegistry(s.cfg.EventBuffer, s.store, s.logger)
	s.acceptor = transport.NewAcceptor(s.cfg.Addr, s.cfg.AcceptTimeout, s)
	if err := s.acceptor.Listen(); err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	go s.reg.Run()
	go s.acceptor.Run()

	s.watchdogStop = make(chan struct{})
	s.watchdogDone = make(chan struct{})
	go s.watchdog(s.reg, s.watchdogStop, s.watchdogDone)

	s.running = true
	s.logger.Info("server started", "addr", s.acceptor.Addr().String())
	return nil
}

// Stop cascades: watchdog stops, the acceptor stops accepting, then the
// registry force-closes every still-registered session and drains.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("server is not running")
		return
	}
	s.logger.Info("shutting down")

	close(s.watchdogStop)
	<-s.watchdogDone

	s.acceptor.Stop()
	s.acceptor.Wait()

	s.reg.Stop()
	s.reg.Wait()

	s.running = false
	s.logger.Info("shutdown complete")
}

// Addr reports the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acceptor == nil {
		return nil
	}
	return s.acceptor.Addr()
}

// watchdog ticks at a bounded interval and asks the registry to evict
// unauthorized sessions past their deadline.
func (s *Server) watchdog(reg *Registry, stop, done chan struct{}) {
	defer close(done)

	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			select {
			case reg.events <- event{kind: eventSweep}:
			case <-reg.doneCh:
				return
			}
		}
	}
}

// transport.AcceptorListener; callbacks run on the acceptor goroutine.

func (s *Server) OnAcceptorStart() {
	s.logger.Info("acceptor started")
	if err := s.store.Connect(); err != nil {
		s.logger.Error("credential store connect failed", "error", err)
	}
}

func (s *Server) OnAcceptorStop() {
	s.logger.Info("acceptor stopped")
	if err := s.store.Disconnect(); err != nil {
		s.logger.Error("credential store disconnect failed", "error", err)
	}
}

func (s *Server) OnListenerCreated(addr net.Addr) {
	s.logger.Info("listen socket created", "addr", addr.String())
}

func (s *Server) OnAcceptTick() {}

func (s *Server) OnAccepted(conn net.Conn) {
	s.logger.Info("client connected", "addr", conn.RemoteAddr().String())
	newSession(conn, s.reg, s.cfg.AuthDeadline, s.cfg.OutBuffer, s.logger)
}

func (s *Server) OnAcceptorError(err error) {
	s.logger.Error("acceptor error", "error", err)
}
