// Package telemetry listens for N1MM+ style RadioInfo broadcasts over UDP
// and turns them into frequency samples.
package telemetry

import (
	"encoding/xml"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	// N1MM datagrams are small XML documents; 2048 bytes is the
	// receive size the logger ecosystem has always assumed.
	datagramSize = 2048

	// A quiet logger is normal. The receive deadline bounds how long
	// one poll can block when nothing is on the air.
	receiveTimeout = 5 * time.Second
)

// FrequencySample is one decoded RadioInfo broadcast.
type FrequencySample struct {
	RadioIndex   string
	FrequencyKHz float64
}

// radioInfo mirrors the subset of the N1MM RadioInfo document we need.
// Freq is an integer string in hundredths of kHz.
type radioInfo struct {
	XMLName xml.Name `xml:"RadioInfo"`
	RadioNr string   `xml:"RadioNr"`
	Freq    string   `xml:"Freq"`
}

// Listener owns the UDP socket receiving logger broadcasts. Polling is
// single-threaded (the engine's tick loop), but Release may be called
// from another goroutine to interrupt a blocked poll; the socket handle
// is guarded for that.
type Listener struct {
	mu      sync.Mutex
	conn    *net.UDPConn
	timeout time.Duration
	buf     [datagramSize]byte
}

// NewListener creates an unbound listener. Call Bind before polling.
func NewListener() *Listener {
	return &Listener{timeout: receiveTimeout}
}

// current returns the socket handle to poll on, or nil when unbound.
func (l *Listener) current() *net.UDPConn {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn
}

// LocalAddr returns the bound socket address, or nil when unbound.
func (l *Listener) LocalAddr() net.Addr {
	conn := l.current()
	if conn == nil {
		return nil
	}
	return conn.LocalAddr()
}

// Bound reports whether the listener currently holds a socket.
func (l *Listener) Bound() bool {
	return l.current() != nil
}

// Bind opens the UDP socket on the given local address and port. A
// failed bind (bad address, port in use, permissions) is returned as an
// error so the caller can retry on a later tick.
func (l *Listener) Bind(address string, port int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn != nil {
		return nil
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(address, fmt.Sprintf("%d", port)))
	if err != nil {
		return fmt.Errorf("invalid listener address %s:%d: %w", address, port, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind UDP %s:%d: %w", address, port, err)
	}

	l.conn = conn
	log.Printf("Telemetry: listening for RadioInfo broadcasts on %s:%d", address, port)
	return nil
}

// Poll performs one bounded receive and decodes the datagram. A receive
// timeout is a normal empty result. Malformed UTF-8, malformed XML and
// missing fields are logged and swallowed; the next datagram is
// independent. Polling an unbound listener returns nil without I/O.
func (l *Listener) Poll() *FrequencySample {
	// The receive runs on a local handle so a concurrent Release can
	// close the socket and interrupt it without racing on l.conn.
	conn := l.current()
	if conn == nil {
		return nil
	}

	if err := conn.SetReadDeadline(time.Now().Add(l.timeout)); err != nil {
		log.Printf("Telemetry: failed to set read deadline: %v", err)
		return nil
	}

	n, _, err := conn.ReadFromUDP(l.buf[:])
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			// No data this tick.
			return nil
		}
		if errors.Is(err, net.ErrClosed) {
			// Released out from under us; the next tick rebinds.
			return nil
		}
		log.Printf("Telemetry: receive error: %v", err)
		return nil
	}

	return decodeRadioInfo(l.buf[:n])
}

// Release closes the socket so a later Bind can recreate it. Idempotent
// and safe to call while another goroutine is blocked in Poll; the
// close interrupts the receive.
func (l *Listener) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return
	}
	if err := l.conn.Close(); err != nil {
		log.Printf("Telemetry: error closing socket: %v", err)
	}
	l.conn = nil
	log.Printf("Telemetry: socket released")
}

// decodeRadioInfo parses one datagram into a sample, or nil if the
// payload is unusable.
func decodeRadioInfo(data []byte) *FrequencySample {
	if !utf8.Valid(data) {
		log.Printf("Telemetry: dropping datagram with invalid UTF-8 (%d bytes)", len(data))
		return nil
	}

	var info radioInfo
	if err := xml.Unmarshal(data, &info); err != nil {
		log.Printf("Telemetry: dropping unparseable datagram: %v", err)
		return nil
	}

	if info.RadioNr == "" || info.Freq == "" {
		log.Printf("Telemetry: dropping RadioInfo with missing RadioNr or Freq")
		return nil
	}

	raw, err := strconv.ParseInt(info.Freq, 10, 64)
	if err != nil {
		log.Printf("Telemetry: dropping RadioInfo with bad Freq %q: %v", info.Freq, err)
		return nil
	}

	// Freq is broadcast in hundredths of kHz.
	return &FrequencySample{
		RadioIndex:   info.RadioNr,
		FrequencyKHz: float64(raw) / 100,
	}
}
