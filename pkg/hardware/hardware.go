// Package hardware owns the band-pass filter actuators: discovery,
// configuration, BCD writes, and the simulated fallback used when no
// usable hardware is present.
package hardware

import (
	"log"
	"sync"
)

// MaxActuators is how many BCD cables one station can drive.
const MaxActuators = 3

// SimulatedDeviceURL is the virtual device shown when the bank runs
// without hardware.
const SimulatedDeviceURL = "ftdi://simulation:232h:SIM00001/1"

// Actuator is one configured output device accepting a byte whose low
// four bits carry the band code.
type Actuator interface {
	WriteByte(b byte) error
	Close() error
}

// Enumerator discovers actuator hardware and configures individual
// devices. Platform backends and test mocks implement it; the filter
// bank never touches a bus itself.
type Enumerator interface {
	Discover() ([]string, error)
	Configure(url string) (Actuator, error)
}

// slot tracks one actuator position and its health.
type slot struct {
	url        string
	actuator   Actuator
	configured bool
	lastErr    error
}

// SlotStatus is a display snapshot of one actuator slot.
type SlotStatus struct {
	Slot       int    `json:"slot"`
	URL        string `json:"url"`
	Configured bool   `json:"configured"`
	LastError  string `json:"last_error,omitempty"`
}

// FilterBank writes identical BCD codes to every configured actuator
// and masks individual device failures from the caller. Once every
// actuator has failed, the bank switches to simulation mode for the
// rest of its life; only reconstruction brings hardware back.
type FilterBank struct {
	mu         sync.Mutex
	slots      []slot
	deviceURLs []string
	simulation bool
}

// NewFilterBank discovers and configures up to MaxActuators devices
// through enum. Discovery or configuration failures never abort
// construction; with nothing usable the bank comes up simulated.
// forceSimulation skips hardware access entirely.
func NewFilterBank(enum Enumerator, forceSimulation bool) *FilterBank {
	fb := &FilterBank{}

	if forceSimulation || enum == nil {
		if forceSimulation {
			log.Printf("FilterBank: simulation mode forced by configuration")
		}
		fb.enterSimulation()
		return fb
	}

	urls, err := enum.Discover()
	if err != nil {
		log.Printf("FilterBank: device discovery failed: %v", err)
	}
	if len(urls) > MaxActuators {
		log.Printf("FilterBank: %d devices found, using the first %d", len(urls), MaxActuators)
		urls = urls[:MaxActuators]
	}

	for i, url := range urls {
		s := slot{url: url}
		actuator, err := enum.Configure(url)
		if err != nil {
			log.Printf("FilterBank: failed to configure device %d (%s): %v", i, url, err)
			s.lastErr = err
		} else {
			s.actuator = actuator
			s.configured = true
			log.Printf("FilterBank: configured device %d: %s", i, url)
		}
		fb.slots = append(fb.slots, s)
		fb.deviceURLs = append(fb.deviceURLs, url)
	}

	if fb.configuredCount() == 0 {
		if len(urls) == 0 {
			log.Printf("FilterBank: no devices found")
		} else {
			log.Printf("FilterBank: no device survived configuration")
		}
		fb.enterSimulation()
	}

	return fb
}

// enterSimulation puts the bank in its terminal no-hardware mode.
func (fb *FilterBank) enterSimulation() {
	fb.simulation = true
	if len(fb.deviceURLs) == 0 {
		fb.deviceURLs = []string{SimulatedDeviceURL}
	}
	log.Printf("FilterBank: running in simulation mode, BCD writes will be logged only")
}

// WriteBCD writes value to every configured actuator. Out-of-range
// values are clamped into [0,255]. A failing actuator is dropped from
// the configured set without disturbing writes to the others; when the
// last one fails the bank goes simulated permanently.
func (fb *FilterBank) WriteBCD(value int) {
	if value < 0 {
		value = 0
	} else if value > 255 {
		value = 255
	}
	b := byte(value)

	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.simulation {
		log.Printf("FilterBank: simulated BCD write 0x%02X", b)
		return
	}

	for i := range fb.slots {
		s := &fb.slots[i]
		if !s.configured {
			continue
		}
		if err := s.actuator.WriteByte(b); err != nil {
			log.Printf("FilterBank: write to device %d (%s) failed, dropping it: %v", i, s.url, err)
			s.configured = false
			s.lastErr = err
			s.actuator.Close()
			s.actuator = nil
		}
	}

	if fb.configuredCountLocked() == 0 {
		log.Printf("FilterBank: all devices have failed")
		fb.enterSimulation()
	}
}

// Close releases every still-configured actuator. Idempotent; in
// simulation mode there is nothing to release.
func (fb *FilterBank) Close() {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.simulation {
		log.Printf("FilterBank: closed (simulation)")
		return
	}

	for i := range fb.slots {
		s := &fb.slots[i]
		if !s.configured {
			continue
		}
		if err := s.actuator.Close(); err != nil {
			log.Printf("FilterBank: error closing device %d (%s): %v", i, s.url, err)
		}
		s.configured = false
		s.actuator = nil
	}
	log.Printf("FilterBank: closed")
}

// DeviceURLs returns the discovery-time identifiers. The list is
// stable for the bank's lifetime regardless of later failures.
func (fb *FilterBank) DeviceURLs() []string {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	urls := make([]string, len(fb.deviceURLs))
	copy(urls, fb.deviceURLs)
	return urls
}

// SimulationMode reports whether writes are being simulated.
func (fb *FilterBank) SimulationMode() bool {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.simulation
}

// Slots returns a health snapshot of every discovered actuator slot.
func (fb *FilterBank) Slots() []SlotStatus {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	statuses := make([]SlotStatus, 0, len(fb.slots))
	for i, s := range fb.slots {
		st := SlotStatus{Slot: i, URL: s.url, Configured: s.configured}
		if s.lastErr != nil {
			st.LastError = s.lastErr.Error()
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func (fb *FilterBank) configuredCount() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.configuredCountLocked()
}

func (fb *FilterBank) configuredCountLocked() int {
	n := 0
	for _, s := range fb.slots {
		if s.configured {
			n++
		}
	}
	return n
}
