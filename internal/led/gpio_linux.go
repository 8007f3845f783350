//go:build linux

package led

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openRGB requests the three LED lines as digital outputs through the Linux
// GPIO character device. Pi kernels name header lines "GPIO<n>"; the chip
// hosting them varies between models, so every chip is probed.
func openRGB(cfg Config) (rgbDriver, error) {
	d := &gpiodRGB{}
	pins := []struct {
		pin  int
		dst  **gpiocdev.Line
		name string
	}{
		{cfg.RedPin, &d.r, "red"},
		{cfg.GreenPin, &d.g, "green"},
		{cfg.BluePin, &d.b, "blue"},
	}
	for _, p := range pins {
		if p.pin <= 0 {
			_ = d.close()
			return nil, fmt.Errorf("led: invalid %s pin %d", p.name, p.pin)
		}
		line, err := requestLine(p.pin)
		if err != nil {
			_ = d.close()
			return nil, fmt.Errorf("led: %s: %w", p.name, err)
		}
		*p.dst = line
	}
	return d, nil
}

func requestLine(pin int) (*gpiocdev.Line, error) {
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", e.Name()))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("rtk-rover-led"))
		_ = chip.Close()
		if err != nil {
			continue
		}
		return line, nil
	}
	return nil, fmt.Errorf("gpio line %q not found (or busy)", lineName)
}

type gpiodRGB struct {
	r, g, b *gpiocdev.Line
}

func boolVal(on bool) int {
	if on {
		return 1
	}
	return 0
}

func (d *gpiodRGB) set(r, g, b bool) error {
	var firstErr error
	for _, ch := range []struct {
		line *gpiocdev.Line
		on   bool
	}{{d.r, r}, {d.g, g}, {d.b, b}} {
		if ch.line == nil {
			continue
		}
		if err := ch.line.SetValue(boolVal(ch.on)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *gpiodRGB) close() error {
	var firstErr error
	for _, line := range []*gpiocdev.Line{d.r, d.g, d.b} {
		if line == nil {
			continue
		}
		_ = line.SetValue(0)
		if err := line.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.r, d.g, d.b = nil, nil, nil
	return firstErr
}
