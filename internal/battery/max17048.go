// Package battery reads the MAX17048 fuel gauge that backs the rover's
// battery indicator.
package battery

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	gaugeAddr = 0x36

	regVCell   = 0x02 // 12-bit cell voltage, 1.25 mV units
	regSOC     = 0x04 // state of charge, 1/256 % units
	regVersion = 0x08
)

// Gauge is a MAX17048 on the power board. A rover without the gauge fitted
// still runs; callers should treat construction failure as "no battery
// data", not a fault.
type Gauge struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// Open probes the gauge on the named I2C bus ("" picks the platform
// default). The VERSION register read doubles as a presence check.
func Open(busName string) (*Gauge, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	g := New(bus)
	g.bus = bus
	ver, err := g.readReg(regVersion)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("gauge probe: %w", err)
	}
	log.Printf("battery gauge ready version=0x%04X", ver)
	return g, nil
}

// New binds a gauge to an already opened bus. The caller keeps ownership of
// the bus.
func New(bus i2c.Bus) *Gauge {
	return &Gauge{dev: i2c.Dev{Bus: bus, Addr: gaugeAddr}}
}

func (g *Gauge) readReg(reg byte) (uint16, error) {
	var raw [2]byte
	if err := g.dev.Tx([]byte{reg}, raw[:]); err != nil {
		return 0, err
	}
	return uint16(raw[0])<<8 | uint16(raw[1]), nil
}

// Voltage returns the cell voltage in volts.
func (g *Gauge) Voltage() (float64, error) {
	raw, err := g.readReg(regVCell)
	if err != nil {
		return 0, fmt.Errorf("gauge vcell: %w", err)
	}
	return float64(raw>>4) * 1.25e-3, nil
}

// Percentage returns the state of charge clamped to 0..100, or -1 when the
// gauge cannot be read.
func (g *Gauge) Percentage() int {
	raw, err := g.readReg(regSOC)
	if err != nil {
		return -1
	}
	pct := int(raw >> 8)
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (g *Gauge) Close() error {
	if g.bus != nil {
		return g.bus.Close()
	}
	return nil
}
