// Package genius drives a 4O3A Antenna Genius switch over its TCP
// control port.
package genius

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"
)

const (
	// LAN round trips only; anything slower than this means the
	// appliance is gone.
	dialTimeout = 500 * time.Millisecond

	// The appliance silently drops idle half-open sockets. Evict our
	// side first rather than discover it with a failed send.
	connMaxAge = 30 * time.Second

	// Command sequence tags cycle 1..99 then 0.
	seqModulus = 100
)

// StatusFunc receives one short human-readable line per send attempt.
// It is fire and forget; a nil callback is fine.
type StatusFunc func(message string)

// Client holds one reusable TCP connection to the switch. Commands are
// issued from the engine's tick loop, one at a time; Close may arrive
// from another goroutine at shutdown, so the connection state is
// guarded and a close waits out any in-flight command.
type Client struct {
	status StatusFunc

	mu            sync.Mutex
	conn          net.Conn
	remoteAddr    string
	establishedAt time.Time

	seq int

	// Overridable for tests.
	dial func(addr string, timeout time.Duration) (net.Conn, error)
	now  func() time.Time
}

// NewClient creates a client reporting attempts to status. status may
// be nil.
func NewClient(status StatusFunc) *Client {
	return &Client{
		status: status,
		dial:   dialTCP,
		now:    time.Now,
	}
}

func dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{
		Timeout:   timeout,
		KeepAlive: 15 * time.Second,
	}
	return d.Dial("tcp", addr)
}

// SetPort selects antennaPort for radioNumber on the switch at
// host:port. The connection is reused across calls until the target
// changes, the connection ages out, or a send fails. Returns false on
// any failure; the caller retries naturally on the next dispatch.
func (c *Client) SetPort(host string, port int, radioNumber string, antennaPort int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	if !c.connUsable(addr) {
		c.discard()
		conn, err := c.dial(addr, dialTimeout)
		if err != nil {
			c.reportError(addr, err)
			return false
		}
		c.conn = conn
		c.remoteAddr = addr
		c.establishedAt = c.now()
		log.Printf("AntennaGenius: connected to %s", addr)
	}

	c.seq = (c.seq + 1) % seqModulus
	command := fmt.Sprintf("C%d|port set %s band=%d \n", c.seq, radioNumber, antennaPort)

	if err := c.conn.SetWriteDeadline(c.now().Add(dialTimeout)); err != nil {
		c.discard()
		c.reportError(addr, err)
		return false
	}
	if _, err := c.conn.Write([]byte(command)); err != nil {
		// Never reuse a socket that just errored.
		c.discard()
		c.reportError(addr, err)
		return false
	}

	c.notify("AG Message Delivered!")
	log.Printf("AntennaGenius: sent %q to %s", command[:len(command)-1], addr)
	return true
}

// Close tears down the held connection. Idempotent; used at shutdown,
// possibly while a command is being sent from the tick loop, in which
// case it waits for the send to finish.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discard()
}

// connUsable reports whether the held connection may serve a command
// for addr. Stale or retargeted connections are rejected so the caller
// redials.
func (c *Client) connUsable(addr string) bool {
	if c.conn == nil {
		return false
	}
	if c.remoteAddr != addr {
		log.Printf("AntennaGenius: target changed %s -> %s, reconnecting", c.remoteAddr, addr)
		return false
	}
	if age := c.now().Sub(c.establishedAt); age > connMaxAge {
		log.Printf("AntennaGenius: connection to %s is %v old, reconnecting", addr, age.Truncate(time.Second))
		return false
	}
	return true
}

func (c *Client) discard() {
	if c.conn == nil {
		return
	}
	c.conn.Close()
	c.conn = nil
	c.remoteAddr = ""
}

func (c *Client) notify(message string) {
	if c.status != nil {
		c.status(message)
	}
}

// reportError maps a socket failure onto one of the short status lines
// the operator sees, and logs the detail.
func (c *Client) reportError(addr string, err error) {
	var dnsErr *net.DNSError
	var addrErr *net.AddrError
	var nerr net.Error

	switch {
	case errors.As(err, &dnsErr) || errors.As(err, &addrErr):
		c.notify("AG Comm Failure! Address error")
	case errors.As(err, &nerr) && nerr.Timeout():
		c.notify("AG Comm Failure! Connection timeout")
	case errors.Is(err, syscall.ECONNREFUSED):
		c.notify("AG Comm Failure! Connection refused")
	default:
		c.notify("AG Comm Failure! Socket error")
	}

	log.Printf("AntennaGenius: %s: %v", addr, err)
}
