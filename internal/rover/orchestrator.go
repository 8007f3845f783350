// Package rover drives the correction relay: it pulls RTCM bytes from the
// caster session, forwards them to the receiver, feeds receiver telemetry
// through the UBX parser, and keeps delivery statistics.
package rover

import (
	"log"
	"time"

	"rtk-rover/internal/ubx"
)

// CorrectionSource is the caster session consumed by the orchestrator
// (implemented by ntrip.Client).
type CorrectionSource interface {
	Connect() error
	Receive(buf []byte) (int, error)
	Connected() bool
	Stale() bool
	CheckStale()
	Disconnect()
}

// NetworkStatus is a read-only link query used to gate reconnect attempts.
type NetworkStatus interface {
	Up() bool
}

// ReceiverTransport is the peripheral link to the GNSS receiver. The
// orchestrator owns it exclusively while ticking.
type ReceiverTransport interface {
	// Available reports how many telemetry bytes can be read right now.
	Available() (int, error)
	Read(p []byte) (int, error)
	// Write pushes correction bytes down to the receiver.
	Write(p []byte) (int, error)
	Close() error
}

// StatusSink consumes the derived link quality for display.
type StatusSink interface {
	Update(q LinkQuality)
}

// Aux carries auxiliary scalars alongside telemetry pushes.
type Aux struct {
	BatteryPercent  int    `json:"battery_pct"`
	FirmwareVersion string `json:"firmware_version"`
}

// TelemetrySink receives periodic pushes of the latest fix and cumulative
// statistics. Sink failures must never affect the relay loop.
type TelemetrySink interface {
	Publish(fix ubx.PositionFix, stats Statistics, aux Aux) error
}

// Statistics are monotonically non-decreasing for the process lifetime.
type Statistics struct {
	CorrectionBytesReceived  uint64 `json:"rtcm_bytes_received"`
	CorrectionBytesForwarded uint64 `json:"rtcm_bytes_forwarded"`
	Fixes                    uint64 `json:"fixes"`
	FixedSolutions           uint64 `json:"fixed_count"`
	FloatSolutions           uint64 `json:"float_count"`
}

const (
	defaultRetryInterval     = 5 * time.Second
	defaultTelemetryInterval = 10 * time.Second
	defaultReportInterval    = 10 * time.Second
	receiverReadCap          = 1024
)

type Config struct {
	// RetryInterval is the minimum spacing between caster connect attempts.
	RetryInterval time.Duration
	// TelemetryInterval is the spacing between TelemetrySink pushes.
	TelemetryInterval time.Duration
	// ReportInterval is the spacing between position log reports.
	ReportInterval time.Duration

	// OnFix, when set, is invoked for every decoded fix (e.g. to feed the
	// web UI). It must not block.
	OnFix func(ubx.PositionFix)
	// AuxFn, when set, supplies auxiliary telemetry scalars per push.
	AuxFn func() Aux
}

// Orchestrator ties the correction source, receiver transport and parser
// together. It is driven by a single caller invoking Tick repeatedly and is
// not safe for concurrent use.
type Orchestrator struct {
	cfg       Config
	source    CorrectionSource
	network   NetworkStatus
	transport ReceiverTransport
	parser    *ubx.Parser
	status    StatusSink
	telemetry TelemetrySink

	stats   Statistics
	lastFix ubx.PositionFix
	haveFix bool

	lastAttempt time.Time
	lastPublish time.Time
	lastReport  time.Time

	corrBuf [receiverReadCap]byte
	rxBuf   [receiverReadCap]byte
}

// New wires an orchestrator. source, network and transport are required;
// status and telemetry may be nil.
func New(cfg Config, source CorrectionSource, network NetworkStatus, transport ReceiverTransport, status StatusSink, telemetry TelemetrySink) *Orchestrator {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = defaultTelemetryInterval
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	return &Orchestrator{
		cfg:       cfg,
		source:    source,
		network:   network,
		transport: transport,
		parser:    ubx.NewParser(),
		status:    status,
		telemetry: telemetry,
	}
}

// Tick runs one relay iteration. Every failure degrades to "no data this
// tick"; the next tick's retry logic picks up the pieces.
func (o *Orchestrator) Tick(now time.Time) {
	o.source.CheckStale()

	if !o.source.Connected() && o.network.Up() {
		if o.lastAttempt.IsZero() || now.Sub(o.lastAttempt) >= o.cfg.RetryInterval {
			o.lastAttempt = now
			if err := o.source.Connect(); err != nil {
				log.Printf("caster connect failed: %v", err)
			}
		}
	}

	if o.source.Connected() {
		o.relayCorrections()
	}

	o.pollReceiver(now)

	if o.status != nil {
		o.status.Update(o.Quality())
	}
	o.maybePublish(now)
}

func (o *Orchestrator) relayCorrections() {
	n, err := o.source.Receive(o.corrBuf[:])
	if err != nil {
		// Receive already dropped the session; next tick retries.
		log.Printf("caster receive failed: %v", err)
		return
	}
	if n == 0 {
		return
	}

	o.stats.CorrectionBytesReceived += uint64(n)
	w, err := o.transport.Write(o.corrBuf[:n])
	if err != nil {
		log.Printf("receiver write failed: %v", err)
		return
	}
	o.stats.CorrectionBytesForwarded += uint64(w)
}

func (o *Orchestrator) pollReceiver(now time.Time) {
	avail, err := o.transport.Available()
	if err != nil || avail <= 0 {
		return
	}
	if avail > len(o.rxBuf) {
		avail = len(o.rxBuf)
	}
	n, err := o.transport.Read(o.rxBuf[:avail])
	if err != nil || n <= 0 {
		return
	}

	fix, ok := o.parser.Feed(o.rxBuf[:n])
	if !ok {
		return
	}

	o.stats.Fixes++
	switch fix.Carrier {
	case ubx.CarrierFixed:
		o.stats.FixedSolutions++
	case ubx.CarrierFloat:
		o.stats.FloatSolutions++
	}
	o.lastFix = fix
	o.haveFix = true

	if o.cfg.OnFix != nil {
		o.cfg.OnFix(fix)
	}
	if o.lastReport.IsZero() || now.Sub(o.lastReport) >= o.cfg.ReportInterval {
		o.lastReport = now
		log.Printf("[%02d:%02d:%02d UTC] %s lat=%.9f lon=%.9f alt=%.3fm hAcc=%.3fm sats=%d rtcm rx=%d tx=%d",
			fix.Hour, fix.Minute, fix.Second, fix.Label(),
			fix.Latitude, fix.Longitude, fix.AltitudeMSL, fix.HorizAccM, fix.Satellites,
			o.stats.CorrectionBytesReceived, o.stats.CorrectionBytesForwarded)
	}
}

func (o *Orchestrator) maybePublish(now time.Time) {
	if o.telemetry == nil || !o.haveFix {
		return
	}
	if !o.lastPublish.IsZero() && now.Sub(o.lastPublish) < o.cfg.TelemetryInterval {
		return
	}
	o.lastPublish = now

	var aux Aux
	if o.cfg.AuxFn != nil {
		aux = o.cfg.AuxFn()
	}
	if err := o.telemetry.Publish(o.lastFix, o.stats, aux); err != nil {
		log.Printf("telemetry publish failed: %v", err)
	}
}

// Quality derives the current link classification. Computed on demand, no
// owned state beyond the most recent carrier solution.
func (o *Orchestrator) Quality() LinkQuality {
	switch {
	case !o.network.Up():
		return QualityNoNetwork
	case !o.source.Connected():
		return QualityNoCorrections
	case o.source.Stale():
		return QualityStaleCorrections
	}
	if o.haveFix {
		switch o.lastFix.Carrier {
		case ubx.CarrierFixed:
			return QualityRtkFixed
		case ubx.CarrierFloat:
			return QualityRtkFloat
		}
	}
	return QualityFixOnly
}

// Stats returns a copy of the cumulative counters.
func (o *Orchestrator) Stats() Statistics { return o.stats }

// LastFix returns the most recently decoded fix, if any.
func (o *Orchestrator) LastFix() (ubx.PositionFix, bool) { return o.lastFix, o.haveFix }
