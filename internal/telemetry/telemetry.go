// Package telemetry pushes the latest position fix and relay statistics to
// off-board consumers: the fleet dashboard over HTTP and an MQTT broker for
// anything subscribing locally.
package telemetry

import (
	"rtk-rover/internal/rover"
	"rtk-rover/internal/ubx"
)

// payload is the wire format shared by both sinks. Field names are part of
// the dashboard contract; do not rename.
type payload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	HAcc      float64 `json:"h_acc"`
	VAcc      float64 `json:"v_acc"`
	FixType   int     `json:"fix_type"`
	CarrSoln  int     `json:"carr_soln"`
	NumSV     int     `json:"num_sv"`

	RTCMBytes  uint64 `json:"rtcm_bytes"`
	FixedCount uint64 `json:"fixed_count"`
	FloatCount uint64 `json:"float_count"`

	Hour int `json:"hour"`
	Min  int `json:"min"`
	Sec  int `json:"sec"`

	BatteryPct      int    `json:"battery_pct"`
	FirmwareVersion string `json:"firmware_version"`
}

func buildPayload(fix ubx.PositionFix, stats rover.Statistics, aux rover.Aux) payload {
	return payload{
		Latitude:  fix.Latitude,
		Longitude: fix.Longitude,
		Altitude:  fix.AltitudeMSL,
		HAcc:      fix.HorizAccM,
		VAcc:      fix.VertAccM,
		FixType:   int(fix.FixType),
		CarrSoln:  int(fix.Carrier),
		NumSV:     fix.Satellites,

		RTCMBytes:  stats.CorrectionBytesReceived,
		FixedCount: stats.FixedSolutions,
		FloatCount: stats.FloatSolutions,

		Hour: fix.Hour,
		Min:  fix.Minute,
		Sec:  fix.Second,

		BatteryPct:      aux.BatteryPercent,
		FirmwareVersion: aux.FirmwareVersion,
	}
}

// Multi fans one publish out to several sinks. The first failure is
// returned, after every sink has been tried.
type Multi []rover.TelemetrySink

func (m Multi) Publish(fix ubx.PositionFix, stats rover.Statistics, aux rover.Aux) error {
	var firstErr error
	for _, s := range m {
		if err := s.Publish(fix, stats, aux); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
