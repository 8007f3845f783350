// Package receiver provides the peripheral transports that carry correction
// bytes down to the GNSS receiver and telemetry bytes back up. Two links are
// supported: the u-blox I2C (DDC) port and a plain UART.
package receiver

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	// Default DDC slave address of u-blox receivers.
	DefaultDDCAddr = 0x42

	// Big-endian 16-bit count of bytes waiting in the receiver's message
	// stream, at 0xFD/0xFE. The stream itself is read from 0xFF.
	regAvailable = 0xFD
	regStream    = 0xFF
)

// DDC drives a u-blox receiver over its DDC (I2C) port. Correction bytes are
// written raw; telemetry is read through the stream register after querying
// the available count.
//
// Not safe for concurrent use.
type DDC struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// OpenDDC initializes the periph host, opens the named I2C bus ("" picks the
// platform default) and returns a transport bound to addr.
func OpenDDC(busName string, addr uint16) (*DDC, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	if addr == 0 {
		addr = DefaultDDCAddr
	}
	d := NewDDC(bus, addr)
	d.bus = bus
	log.Printf("receiver ddc ready bus=%s addr=0x%02X", bus, addr)
	return d, nil
}

// NewDDC binds a transport to an already opened bus. The caller keeps
// ownership of the bus.
func NewDDC(bus i2c.Bus, addr uint16) *DDC {
	return &DDC{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// Available reports how many telemetry bytes the receiver holds. The
// receiver answers 0xFFFF while it is still preparing data; that reads as
// zero here.
func (d *DDC) Available() (int, error) {
	var cnt [2]byte
	if err := d.dev.Tx([]byte{regAvailable}, cnt[:]); err != nil {
		return 0, fmt.Errorf("ddc available: %w", err)
	}
	n := int(cnt[0])<<8 | int(cnt[1])
	if n == 0xFFFF {
		return 0, nil
	}
	return n, nil
}

// Read pulls len(p) bytes from the stream register. Callers should size p by
// a prior Available result; the receiver pads short reads with 0xFF.
func (d *DDC) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := d.dev.Tx([]byte{regStream}, p); err != nil {
		return 0, fmt.Errorf("ddc read: %w", err)
	}
	return len(p), nil
}

// Write pushes raw correction bytes to the receiver.
func (d *DDC) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := d.dev.Tx(p, nil); err != nil {
		return 0, fmt.Errorf("ddc write: %w", err)
	}
	return len(p), nil
}

func (d *DDC) Close() error {
	if d.bus != nil {
		return d.bus.Close()
	}
	return nil
}
