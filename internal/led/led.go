// Package led drives the front-panel RGB status LED from the link quality
// derived each relay tick.
//
// Color map: pulsing blue = no network, pulsing purple = no correction
// session, pulsing red = corrections stale, solid green = RTK fixed, pulsing
// cyan = RTK float, solid yellow = plain GNSS fix.
package led

import (
	"context"
	"log"
	"sync"
	"time"

	"rtk-rover/internal/rover"
)

const blinkPeriod = 500 * time.Millisecond

// rgbDriver is the hardware behind the LED. One channel per color, on/off.
type rgbDriver interface {
	set(r, g, b bool) error
	close() error
}

type pattern struct {
	r, g, b bool
	pulse   bool
}

func patternFor(q rover.LinkQuality) pattern {
	switch q {
	case rover.QualityNoNetwork:
		return pattern{b: true, pulse: true}
	case rover.QualityNoCorrections:
		return pattern{r: true, b: true, pulse: true}
	case rover.QualityStaleCorrections:
		return pattern{r: true, pulse: true}
	case rover.QualityRtkFixed:
		return pattern{g: true}
	case rover.QualityRtkFloat:
		return pattern{g: true, b: true, pulse: true}
	default:
		return pattern{r: true, g: true}
	}
}

type Config struct {
	// BCM pin numbers for the three LED channels.
	RedPin   int
	GreenPin int
	BluePin  int
}

// LED implements rover.StatusSink. Update may be called from the tick loop
// while Run blinks from its own goroutine.
type LED struct {
	drv rgbDriver

	mu    sync.Mutex
	cur   pattern
	phase bool
}

// New opens the GPIO lines. When the hardware is missing the LED degrades to
// a no-op so a headless bench setup still runs.
func New(cfg Config) *LED {
	drv, err := openRGB(cfg)
	if err != nil {
		log.Printf("status led unavailable: %v", err)
		drv = nil
	}
	return &LED{drv: drv}
}

// Update switches the displayed pattern. Implements rover.StatusSink.
func (l *LED) Update(q rover.LinkQuality) {
	p := patternFor(q)

	l.mu.Lock()
	changed := p != l.cur
	l.cur = p
	l.mu.Unlock()

	if changed {
		l.apply(true)
	}
}

// Run blinks pulsing patterns until ctx is cancelled.
func (l *LED) Run(ctx context.Context) {
	if l.drv == nil {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(blinkPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.step()
		}
	}
}

// step advances the blink phase and refreshes the hardware.
func (l *LED) step() {
	l.mu.Lock()
	l.phase = !l.phase
	on := !l.cur.pulse || l.phase
	p := l.cur
	l.mu.Unlock()

	l.write(p, on)
}

// apply repaints the current pattern, forcing the lit phase on a fresh
// pattern so changes show immediately.
func (l *LED) apply(on bool) {
	l.mu.Lock()
	p := l.cur
	if on {
		l.phase = true
	}
	l.mu.Unlock()

	l.write(p, on)
}

func (l *LED) write(p pattern, on bool) {
	if l.drv == nil {
		return
	}
	if err := l.drv.set(p.r && on, p.g && on, p.b && on); err != nil {
		log.Printf("status led write failed: %v", err)
	}
}

// Close blanks the LED and releases the lines.
func (l *LED) Close() error {
	if l.drv == nil {
		return nil
	}
	_ = l.drv.set(false, false, false)
	return l.drv.close()
}
