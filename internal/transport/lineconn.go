// Package transport implements the raw socket plumbing the chat core is
// driven by: a deadline-bounded accept loop and a line-oriented connection
// with its own reader and writer goroutines. The core observes both through
// listener contracts and never touches net.Conn directly.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// ConnListener receives lifecycle and inbound-line events for one LineConn.
// Callbacks run on the connection's reader goroutine.
type ConnListener interface {
	OnReady(c *LineConn)
	OnLine(c *LineConn, line string)
	OnStopped(c *LineConn)
	OnError(c *LineConn, err error)
}

// LineConn frames a net.Conn into newline-delimited text messages. Outbound
// lines go through a buffered channel drained by a writer goroutine; Send
// never blocks and drops when the peer is slow.
type LineConn struct {
	conn      net.Conn
	out       chan string
	done      chan struct{}
	closeOnce sync.Once
	listener  ConnListener
}

func NewLineConn(conn net.Conn, listener ConnListener, outBuffer int) *LineConn {
	if outBuffer <= 0 {
		outBuffer = 32
	}
	return &LineConn{
		conn:     conn,
		out:      make(chan string, outBuffer),
		done:     make(chan struct{}),
		listener: listener,
	}
}

// Start launches the reader and writer goroutines. Kept separate from
// NewLineConn so the listener can finish binding to the conn before the
// first callback fires.
func (c *LineConn) Start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *LineConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send queues one line for delivery. Non-blocking: a full buffer or a closed
// connection drops the line instead of stalling the caller.
func (c *LineConn) Send(line string) {
	select {
	case <-c.done:
	case c.out <- line:
	default:
		// Drop when the peer is slow.
	}
}

// Close is idempotent and safe from any goroutine.
func (c *LineConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *LineConn) readLoop() {
	c.listener.OnReady(c)

	r := bufio.NewReader(c.conn)
	for {
		line, err := readLine(r)
		if err != nil {
			if err != io.EOF {
				select {
				case <-c.done:
					// Local close; the read error is expected.
				default:
					c.listener.OnError(c, err)
				}
			}
			break
		}
		if line == "" {
			continue
		}
		c.listener.OnLine(c, line)
	}

	c.Close()
	c.listener.OnStopped(c)
}

func (c *LineConn) writeLoop() {
	w := bufio.NewWriter(c.conn)
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			if _, err := w.WriteString(msg + "\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}
