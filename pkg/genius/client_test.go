package genius

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

// fakeConn records everything written to it.
type fakeConn struct {
	buf           bytes.Buffer
	closed        bool
	writeErr      error
	writeDeadline time.Time
}

func (f *fakeConn) Write(p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return f.buf.Write(p)
}

func (f *fakeConn) Read(p []byte) (int, error)         { return 0, nil }
func (f *fakeConn) Close() error                       { f.closed = true; return nil }
func (f *fakeConn) LocalAddr() net.Addr                { return nil }
func (f *fakeConn) RemoteAddr() net.Addr               { return nil }
func (f *fakeConn) SetDeadline(t time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(t time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error { f.writeDeadline = t; return nil }

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// testClient returns a client whose dials hand out fresh fakeConns and
// whose clock is controllable.
func testClient(status StatusFunc) (*Client, *[]*fakeConn, *time.Time) {
	var conns []*fakeConn
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	c := NewClient(status)
	c.dial = func(addr string, timeout time.Duration) (net.Conn, error) {
		conn := &fakeConn{}
		conns = append(conns, conn)
		return conn, nil
	}
	c.now = func() time.Time { return now }

	return c, &conns, &now
}

func TestSetPortWireFormat(t *testing.T) {
	c, conns, _ := testClient(nil)

	if !c.SetPort("192.168.1.140", 9007, "1", 5) {
		t.Fatal("Expected SetPort to succeed")
	}

	got := (*conns)[0].buf.String()
	want := "C1|port set 1 band=5 \n"
	if got != want {
		t.Errorf("Expected wire command %q, got %q", want, got)
	}
}

func TestSequenceWraparound(t *testing.T) {
	c, conns, _ := testClient(nil)

	// 101 commands: tags must run 1,2,...,99,0,1.
	for i := 0; i < 101; i++ {
		if !c.SetPort("10.0.0.5", 9007, "2", 3) {
			t.Fatalf("SetPort %d failed", i)
		}
		// Keep one connection by refreshing its age.
		c.establishedAt = c.now()
	}

	var tags []string
	for _, line := range bytes.Split(bytes.TrimSpace((*conns)[0].buf.Bytes()), []byte("\n")) {
		var seq int
		if _, err := fmt.Sscanf(string(line), "C%d|", &seq); err != nil {
			t.Fatalf("Unparseable command line %q: %v", line, err)
		}
		tags = append(tags, fmt.Sprintf("%d", seq))
	}

	if len(tags) != 101 {
		t.Fatalf("Expected 101 commands, got %d", len(tags))
	}
	if tags[0] != "1" || tags[98] != "99" || tags[99] != "0" || tags[100] != "1" {
		t.Errorf("Bad sequence tags: first=%s 99th=%s 100th=%s 101st=%s",
			tags[0], tags[98], tags[99], tags[100])
	}
}

func TestConnectionReuse(t *testing.T) {
	c, conns, nowp := testClient(nil)

	t.Run("Same Target Reuses", func(t *testing.T) {
		c.SetPort("10.0.0.5", 9007, "1", 2)
		c.SetPort("10.0.0.5", 9007, "1", 3)
		if len(*conns) != 1 {
			t.Errorf("Expected 1 connection for back-to-back calls, got %d", len(*conns))
		}
	})

	t.Run("Different Target Reconnects", func(t *testing.T) {
		c.SetPort("10.0.0.6", 9007, "1", 3)
		if len(*conns) != 2 {
			t.Errorf("Expected a new connection for a new target, got %d total", len(*conns))
		}
		if !(*conns)[0].closed {
			t.Error("Expected the old connection to be closed")
		}
	})

	t.Run("Stale Connection Reconnects", func(t *testing.T) {
		*nowp = nowp.Add(31 * time.Second)
		c.SetPort("10.0.0.6", 9007, "1", 4)
		if len(*conns) != 3 {
			t.Errorf("Expected a new connection after 31s, got %d total", len(*conns))
		}
	})

	t.Run("Fresh Connection Survives 29s", func(t *testing.T) {
		*nowp = nowp.Add(29 * time.Second)
		c.SetPort("10.0.0.6", 9007, "1", 5)
		if len(*conns) != 3 {
			t.Errorf("Expected reuse within the staleness window, got %d total", len(*conns))
		}
	})
}

func TestWriteFailureDiscardsConnection(t *testing.T) {
	var messages []string
	c, conns, _ := testClient(func(m string) { messages = append(messages, m) })

	c.SetPort("10.0.0.5", 9007, "1", 2)
	(*conns)[0].writeErr = errors.New("broken pipe")

	if c.SetPort("10.0.0.5", 9007, "1", 3) {
		t.Error("Expected SetPort to fail on write error")
	}
	if !(*conns)[0].closed {
		t.Error("Expected errored connection to be discarded")
	}
	if c.conn != nil {
		t.Error("Expected no held connection after an error")
	}

	// Next call dials fresh.
	if !c.SetPort("10.0.0.5", 9007, "1", 4) {
		t.Error("Expected SetPort to recover with a new connection")
	}
	if len(*conns) != 2 {
		t.Errorf("Expected 2 connections total, got %d", len(*conns))
	}

	want := []string{"AG Message Delivered!", "AG Comm Failure! Socket error", "AG Message Delivered!"}
	if len(messages) != len(want) {
		t.Fatalf("Expected %d status messages, got %d: %v", len(want), len(messages), messages)
	}
	for i := range want {
		if messages[i] != want[i] {
			t.Errorf("Status %d: expected %q, got %q", i, want[i], messages[i])
		}
	}
}

func TestFailureClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"Address Error", &net.DNSError{Err: "no such host", Name: "switch.invalid"}, "AG Comm Failure! Address error"},
		{"Timeout", timeoutErr{}, "AG Comm Failure! Connection timeout"},
		{"Refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, "AG Comm Failure! Connection refused"},
		{"Generic", errors.New("network is unreachable"), "AG Comm Failure! Socket error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			c := NewClient(func(m string) { got = m })
			c.dial = func(addr string, timeout time.Duration) (net.Conn, error) {
				return nil, tc.err
			}

			if c.SetPort("switch.invalid", 9007, "1", 1) {
				t.Error("Expected SetPort to fail")
			}
			if got != tc.want {
				t.Errorf("Expected status %q, got %q", tc.want, got)
			}
		})
	}
}

func TestNilStatusCallback(t *testing.T) {
	c := NewClient(nil)
	c.dial = func(addr string, timeout time.Duration) (net.Conn, error) {
		return nil, errors.New("boom")
	}

	// Must not panic with no callback installed.
	if c.SetPort("10.0.0.5", 9007, "1", 1) {
		t.Error("Expected SetPort to fail")
	}
}

func TestWriteDeadlineFollowsClock(t *testing.T) {
	c, conns, nowp := testClient(nil)
	*nowp = nowp.Add(42 * time.Minute)

	if !c.SetPort("10.0.0.5", 9007, "1", 2) {
		t.Fatal("Expected SetPort to succeed")
	}

	want := nowp.Add(dialTimeout)
	if got := (*conns)[0].writeDeadline; !got.Equal(want) {
		t.Errorf("Expected write deadline %v, got %v", want, got)
	}
}

func TestCloseDuringConcurrentSetPort(t *testing.T) {
	// Shutdown closes the client from the daemon goroutine while the
	// tick loop may be mid-command; the two must serialize cleanly.
	c, conns, _ := testClient(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c.SetPort("10.0.0.5", 9007, "1", 2)
		}
	}()

	for i := 0; i < 20; i++ {
		c.Close()
	}
	<-done
	c.Close()

	if len(*conns) == 0 {
		t.Fatal("Expected at least one connection")
	}

	// The client still recovers with a fresh dial afterwards.
	if !c.SetPort("10.0.0.5", 9007, "1", 3) {
		t.Error("Expected SetPort to succeed after close")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, conns, _ := testClient(nil)

	c.SetPort("10.0.0.5", 9007, "1", 2)
	c.Close()
	if !(*conns)[0].closed {
		t.Error("Expected Close to close the held connection")
	}
	c.Close() // second close must be a no-op
}
