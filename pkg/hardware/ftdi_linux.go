//go:build linux && cgo

package hardware

import (
	"fmt"
	"log"

	"github.com/jochenvg/go-udev"
	"github.com/warthog618/go-gpiocdev"
)

// FTDI vendor ID shared by the C232HM cables and FT232 breakouts the
// decoder supports.
const ftdiVendorID = "0403"

// bcdLineOffsets are the four chip line offsets carrying the band
// code, least significant bit first.
var bcdLineOffsets = []int{0, 1, 2, 3}

// FTDIEnumerator discovers FTDI-backed GPIO chips through udev and
// configures their BCD lines through the GPIO character device. The
// ftdi_sio driver exposes each cable's CBUS/MPSSE pins as a gpiochip,
// which keeps the write path kernel-mediated instead of raw USB.
type FTDIEnumerator struct {
	udev *udev.Udev

	// chip name per discovered device URL, filled by Discover.
	chips map[string]string
}

// NewFTDIEnumerator creates the Linux enumerator.
func NewFTDIEnumerator() *FTDIEnumerator {
	return &FTDIEnumerator{
		udev:  &udev.Udev{},
		chips: make(map[string]string),
	}
}

// NewPlatformEnumerator returns the enumerator for this platform.
func NewPlatformEnumerator() Enumerator {
	return NewFTDIEnumerator()
}

// Discover walks the udev gpio subsystem looking for chips whose USB
// ancestor carries the FTDI vendor ID. Device URLs carry the vendor,
// product, serial, and chip name so the operator can tell cables apart.
func (e *FTDIEnumerator) Discover() ([]string, error) {
	enumerate := e.udev.NewEnumerate()
	if err := enumerate.AddMatchSubsystem("gpio"); err != nil {
		return nil, fmt.Errorf("udev gpio match: %w", err)
	}

	devices, err := enumerate.Devices()
	if err != nil {
		return nil, fmt.Errorf("udev enumerate: %w", err)
	}

	var urls []string
	for _, dev := range devices {
		chip := dev.Sysname()
		if dev.Devnode() == "" {
			// Line entries also live in the gpio subsystem; only
			// chips have a device node.
			continue
		}

		usb := dev.ParentWithSubsystemDevtype("usb", "usb_device")
		if usb == nil {
			continue
		}
		if usb.SysattrValue("idVendor") != ftdiVendorID {
			continue
		}

		product := usb.SysattrValue("idProduct")
		serial := usb.SysattrValue("serial")
		if serial == "" {
			serial = "NOSERIAL"
		}

		url := fmt.Sprintf("ftdi://%s:%s:%s/%s", ftdiVendorID, product, serial, chip)
		e.chips[url] = chip
		urls = append(urls, url)
		log.Printf("FTDIEnumerator: found %s", url)
	}

	return urls, nil
}

// Configure requests the four BCD lines on the chip behind url as
// outputs, initially low.
func (e *FTDIEnumerator) Configure(url string) (Actuator, error) {
	chip, ok := e.chips[url]
	if !ok {
		return nil, fmt.Errorf("unknown device url %s", url)
	}

	lines, err := gpiocdev.RequestLines(chip, bcdLineOffsets,
		gpiocdev.AsOutput(0, 0, 0, 0),
		gpiocdev.WithConsumer("bandd"))
	if err != nil {
		return nil, fmt.Errorf("request lines on %s: %w", chip, err)
	}

	log.Printf("FTDIEnumerator: configured %s lines %v", chip, bcdLineOffsets)
	return &gpioActuator{url: url, lines: lines}, nil
}

// gpioActuator drives four GPIO lines with the BCD nibble.
type gpioActuator struct {
	url   string
	lines *gpiocdev.Lines
}

func (a *gpioActuator) WriteByte(b byte) error {
	values := make([]int, len(bcdLineOffsets))
	for i := range values {
		values[i] = int(b>>uint(i)) & 1
	}
	if err := a.lines.SetValues(values); err != nil {
		return fmt.Errorf("set lines on %s: %w", a.url, err)
	}
	return nil
}

func (a *gpioActuator) Close() error {
	return a.lines.Close()
}
