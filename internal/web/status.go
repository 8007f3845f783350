package web

import (
	"sync/atomic"
	"time"

	"rtk-rover/internal/ntrip"
	"rtk-rover/internal/rover"
	"rtk-rover/internal/ubx"
)

// Status is the snapshot store behind /api/status. The tick loop pushes into
// it; HTTP handlers only ever read. All fields are updated atomically so the
// two sides never block each other.
type Status struct {
	startUnixNano int64
	lastTickNano  int64

	quality  atomic.Value // string
	fix      atomic.Value // fixBox
	stats    atomic.Value // rover.Statistics
	caster   atomic.Value // ntrip.Snapshot
	battery  atomic.Value // int
	firmware atomic.Value // string
}

// fixBox wraps the fix so "no fix yet" is representable in an atomic.Value.
type fixBox struct {
	fix   ubx.PositionFix
	valid bool
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.quality.Store("")
	s.fix.Store(fixBox{})
	s.stats.Store(rover.Statistics{})
	s.caster.Store(ntrip.Snapshot{})
	s.battery.Store(-1)
	s.firmware.Store("")
	return s
}

// Update records the link quality. Implements rover.StatusSink.
func (s *Status) Update(q rover.LinkQuality) {
	s.quality.Store(q.String())
}

func (s *Status) SetFix(fix ubx.PositionFix) {
	s.fix.Store(fixBox{fix: fix, valid: true})
}

func (s *Status) SetStats(stats rover.Statistics) {
	s.stats.Store(stats)
}

func (s *Status) SetCaster(snap ntrip.Snapshot) {
	s.caster.Store(snap)
}

func (s *Status) SetPower(batteryPct int, firmware string) {
	s.battery.Store(batteryPct)
	if firmware != "" {
		s.firmware.Store(firmware)
	}
}

func (s *Status) MarkTick(nowUTC time.Time) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.lastTickNano, nowUTC.UnixNano())
}

type StatusSnapshot struct {
	Service     string `json:"service"`
	NowUTC      string `json:"now_utc"`
	UptimeSec   int64  `json:"uptime_sec"`
	Quality     string `json:"quality"`
	LastTickUTC string `json:"last_tick_utc,omitempty"`

	Caster ntrip.Snapshot   `json:"caster"`
	Fix    *ubx.PositionFix `json:"fix,omitempty"`
	Stats  rover.Statistics `json:"stats"`

	BatteryPct      int    `json:"battery_pct"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	lastTick := atomic.LoadInt64(&s.lastTickNano)

	snap := StatusSnapshot{
		Service:         "rtk-rover",
		NowUTC:          nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:       int64(nowUTC.Sub(start).Seconds()),
		Quality:         s.quality.Load().(string),
		Caster:          s.caster.Load().(ntrip.Snapshot),
		Stats:           s.stats.Load().(rover.Statistics),
		BatteryPct:      s.battery.Load().(int),
		FirmwareVersion: s.firmware.Load().(string),
	}
	if box := s.fix.Load().(fixBox); box.valid {
		fix := box.fix
		snap.Fix = &fix
	}
	if lastTick != 0 {
		snap.LastTickUTC = time.Unix(0, lastTick).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
