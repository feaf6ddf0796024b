package chat

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := Config{
		Addr:          "127.0.0.1:0",
		AcceptTimeout: 50 * time.Millisecond,
		AuthDeadline:  time.Minute,
		SweepInterval: 20 * time.Millisecond,
		EventBuffer:   128,
		OutBuffer:     64,
	}
	srv := NewServer(cfg, testStore(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv
}

func dialServer(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, line string) {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write %q: %v", line, err)
	}
}

func expectWireLines(t *testing.T, conn net.Conn, r *bufio.Reader, want ...string) {
	t.Helper()
	for _, w := range want {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read (want %q): %v", w, err)
		}
		if got := strings.TrimRight(line, "\n"); got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
	}
}

func TestServerEndToEnd(t *testing.T) {
	srv := startTestServer(t)

	aliceConn, aliceR := dialServer(t, srv)
	sendLine(t, aliceConn, "AUTH|alice|pw1")
	expectWireLines(t, aliceConn, aliceR,
		"AUTH_OK|Alice",
		"BCAST|Server|Alice connected",
		"USERLIST|Alice|",
	)

	guestConn, guestR := dialServer(t, srv)
	sendLine(t, guestConn, "GUEST")
	expectWireLines(t, aliceConn, aliceR, "BCAST|Server|Anonymous connected")
	expectWireLines(t, guestConn, guestR, "BCAST|Server|Anonymous connected")

	sendLine(t, guestConn, "BCAST|hi all")
	expectWireLines(t, aliceConn, aliceR, "BCAST|Anonymous|hi all")
	expectWireLines(t, guestConn, guestR, "BCAST|Anonymous|hi all")

	sendLine(t, aliceConn, "BCAST|hello")
	expectWireLines(t, aliceConn, aliceR, "BCAST|Alice|hello")
	expectWireLines(t, guestConn, guestR, "BCAST|Alice|hello")

	sendLine(t, aliceConn, "FOO|x")
	expectWireLines(t, aliceConn, aliceR, "FMT_ERR|FOO|x")
}

func TestServerEvictsIdleUnauthorized(t *testing.T) {
	cfg := Config{
		Addr:          "127.0.0.1:0",
		AcceptTimeout: 50 * time.Millisecond,
		AuthDeadline:  100 * time.Millisecond,
		SweepInterval: 20 * time.Millisecond,
		EventBuffer:   128,
		OutBuffer:     64,
	}
	srv := NewServer(cfg, testStore(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(srv.Stop)

	conn, r := dialServer(t, srv)

	// The watchdog closes the connection with no message sent.
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := r.ReadString('\n'); err != io.EOF {
		t.Fatalf("expected EOF after eviction, got %v", err)
	}
}

func TestServerStartStopIdempotent(t *testing.T) {
	cfg := Config{
		Addr:          "127.0.0.1:0",
		AcceptTimeout: 50 * time.Millisecond,
		AuthDeadline:  time.Minute,
		SweepInterval: time.Second,
		EventBuffer:   128,
		OutBuffer:     64,
	}
	srv := NewServer(cfg, testStore(), nil)

	// Stop before Start is a logged no-op.
	srv.Stop()

	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Second Start is a logged no-op.
	if err := srv.Start(); err != nil {
		t.Fatalf("redundant start: %v", err)
	}

	srv.Stop()
	srv.Stop()
}

func TestServerStopClosesClients(t *testing.T) {
	srv := startTestServer(t)

	conn, r := dialServer(t, srv)
	sendLine(t, conn, "AUTH|alice|pw1")
	expectWireLines(t, conn, r, "AUTH_OK|Alice")

	srv.Stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, err := r.ReadString('\n'); err != nil {
			if err == io.EOF {
				return
			}
			t.Fatalf("expected EOF after server stop, got %v", err)
		}
	}
}
