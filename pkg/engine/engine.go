// Package engine ties the decoder together: it polls logger telemetry,
// classifies the reported frequency and drives the antenna switch and
// band-pass filter hardware.
package engine

import (
	"log"
	"sync"
	"time"

	"github.com/ti7w/bandd/pkg/band"
	"github.com/ti7w/bandd/pkg/hardware"
	"github.com/ti7w/bandd/pkg/mqttpub"
	"github.com/ti7w/bandd/pkg/telemetry"
)

// Settings is the snapshot of runtime-changeable settings the engine
// reads once per tick, so edits through the API take effect on the
// next cycle without restarts.
type Settings struct {
	LoggerAddress string
	LoggerPort    int
	SwitchAddress string
	SwitchPort    int
	RadioNumber   string
}

// SettingsFunc returns the current settings snapshot.
type SettingsFunc func() Settings

// PortSetter selects an antenna port on the switch. Satisfied by
// genius.Client.
type PortSetter interface {
	SetPort(host string, port int, radioNumber string, antennaPort int) bool
}

// Engine runs the decode and dispatch cycle. Tick is driven by the
// daemon's timer and must not be called concurrently; the lifecycle
// and accessor methods are safe from any goroutine, and Stop
// interrupts a tick blocked in a telemetry receive.
type Engine struct {
	listener *telemetry.Listener
	switcher PortSetter
	filters  *hardware.FilterBank
	pub      *mqttpub.Publisher
	settings SettingsFunc

	mu               sync.RWMutex
	active           bool
	haveSample       bool
	lastFrequencyKHz float64
	lastBand         band.Band
	lastSwitchStatus string
}

// New creates an engine over the given components. pub may be nil when
// MQTT publishing is disabled.
func New(listener *telemetry.Listener, switcher PortSetter, filters *hardware.FilterBank, pub *mqttpub.Publisher, settings SettingsFunc) *Engine {
	return &Engine{
		listener: listener,
		switcher: switcher,
		filters:  filters,
		pub:      pub,
		settings: settings,
	}
}

// Start enables decoding. The telemetry socket is bound lazily by the
// next tick, so a busy port surfaces as a logged retry rather than a
// startup failure.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return
	}
	e.active = true
	log.Println("engine: decoding started")
}

// Stop disables decoding and releases the telemetry socket. A later
// Start rebinds with whatever settings are current by then.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.active = false
	e.mu.Unlock()

	e.listener.Release()
	log.Println("engine: decoding stopped")
}

// Active reports whether the engine is decoding.
func (e *Engine) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// Tick runs one decode and dispatch cycle. It returns the decoded
// frequency in kHz and true when a usable sample arrived this cycle.
func (e *Engine) Tick() (float64, bool) {
	if !e.Active() {
		return 0, false
	}
	s := e.settings()

	if !e.listener.Bound() {
		if err := e.listener.Bind(s.LoggerAddress, s.LoggerPort); err != nil {
			log.Printf("engine: telemetry bind %s:%d failed: %v", s.LoggerAddress, s.LoggerPort, err)
			return 0, false
		}
		log.Printf("engine: listening for logger telemetry on %s:%d", s.LoggerAddress, s.LoggerPort)
	}

	sample := e.listener.Poll()
	if sample == nil {
		return 0, false
	}
	if sample.RadioIndex != s.RadioNumber {
		return 0, false
	}

	b := band.Classify(sample.FrequencyKHz)

	e.mu.Lock()
	changed := !e.haveSample || b != e.lastBand
	e.haveSample = true
	e.lastFrequencyKHz = sample.FrequencyKHz
	e.lastBand = b
	e.mu.Unlock()

	if changed {
		log.Printf("engine: %0.1f kHz -> %s (bcd %d, port %d)", sample.FrequencyKHz, b, b.BCD(), b.SwitchPort())
	}

	// Both outputs are driven every cycle and independently: a switch
	// failure must not starve the filter relays, and vice versa.
	e.switcher.SetPort(s.SwitchAddress, s.SwitchPort, s.RadioNumber, b.SwitchPort())
	e.filters.WriteBCD(int(b.BCD()))

	if changed {
		e.pub.PublishBandChange(mqttpub.BandChangeMessage{
			Band:         b.String(),
			FrequencyKHz: sample.FrequencyKHz,
			BCD:          int(b.BCD()),
			SwitchPort:   b.SwitchPort(),
			Timestamp:    time.Now().UTC(),
		})
	}

	return sample.FrequencyKHz, true
}

// Shutdown stops decoding and closes the hardware. Safe to call more
// than once.
func (e *Engine) Shutdown() {
	e.Stop()
	e.filters.Close()
	e.pub.Close()
}

// NoteSwitchStatus records the most recent antenna switch delivery
// status. Wired as the switch client's status callback.
func (e *Engine) NoteSwitchStatus(message string) {
	e.mu.Lock()
	e.lastSwitchStatus = message
	e.mu.Unlock()
	log.Printf("engine: %s", message)
}

// LastSwitchStatus returns the most recent switch delivery status, or
// "" before the first dispatch.
func (e *Engine) LastSwitchStatus() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSwitchStatus
}

// CurrentFrequency returns the last decoded frequency in kHz and
// whether any sample has been decoded yet.
func (e *Engine) CurrentFrequency() (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastFrequencyKHz, e.haveSample
}

// CurrentBand returns the band of the last decoded sample, or
// BandUnknown before the first one.
func (e *Engine) CurrentBand() band.Band {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.haveSample {
		return band.BandUnknown
	}
	return e.lastBand
}

// DeviceURLs returns the filter bank's discovery-time device list.
func (e *Engine) DeviceURLs() []string {
	return e.filters.DeviceURLs()
}

// Filters exposes the filter bank for status reporting.
func (e *Engine) Filters() *hardware.FilterBank {
	return e.filters
}
