package transport

import (
	"errors"
	"net"
	"time"
)

// AcceptorListener observes the accept loop. OnAcceptTick is a no-op
// heartbeat fired every time the bounded accept wait elapses without a new
// connection; it is what lets the loop notice a stop request promptly.
type AcceptorListener interface {
	OnAcceptorStart()
	OnAcceptorStop()
	OnListenerCreated(addr net.Addr)
	OnAcceptTick()
	OnAccepted(conn net.Conn)
	OnAcceptorError(err error)
}

// Acceptor owns the listen socket and runs the accept loop with a bounded
// per-accept deadline, so Stop is observed between accept attempts.
type Acceptor struct {
	addr    string
	timeout time.Duration

	ln       *net.TCPListener
	stopCh   chan struct{}
	doneCh   chan struct{}
	listener AcceptorListener
}

func NewAcceptor(addr string, timeout time.Duration, listener AcceptorListener) *Acceptor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Acceptor{
		addr:     addr,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		listener: listener,
	}
}

// Listen binds the socket. Called before Run so bind errors surface to the
// caller instead of being swallowed by the loop goroutine.
func (a *Acceptor) Listen() error {
	tcpAddr, err := net.ResolveTCPAddr("tcp", a.addr)
	if err != nil {
		return err
	}
	ln, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return err
	}
	a.ln = ln
	a.listener.OnListenerCreated(ln.Addr())
	return nil
}

// Addr reports the bound address; useful when listening on port 0.
func (a *Acceptor) Addr() net.Addr {
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

func (a *Acceptor) Run() {
	defer close(a.doneCh)

	a.listener.OnAcceptorStart()
	defer a.listener.OnAcceptorStop()

	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		_ = a.ln.SetDeadline(time.Now().Add(a.timeout))
		conn, err := a.ln.Accept()
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				a.listener.OnAcceptTick()
				continue
			}
			select {
			case <-a.stopCh:
				// Listener closed by Stop.
			default:
				a.listener.OnAcceptorError(err)
			}
			return
		}
		a.listener.OnAccepted(conn)
	}
}

// Stop signals the loop and closes the listen socket.
func (a *Acceptor) Stop() {
	close(a.stopCh)
	if a.ln != nil {
		_ = a.ln.Close()
	}
}

// Wait blocks until the accept loop has fully exited.
func (a *Acceptor) Wait() {
	<-a.doneCh
}
