package ubx

import "encoding/binary"

// FixType is the NAV-PVT fixType field.
type FixType byte

const (
	FixNone FixType = iota
	FixDeadReckoning
	Fix2D
	Fix3D
	FixGnssDR
	FixTimeOnly
)

func (f FixType) String() string {
	switch f {
	case FixNone:
		return "No Fix"
	case FixDeadReckoning:
		return "Dead Reckoning"
	case Fix2D:
		return "2D Fix"
	case Fix3D:
		return "3D Fix"
	case FixGnssDR:
		return "GNSS + DR"
	case FixTimeOnly:
		return "Time Only"
	default:
		return "Unknown"
	}
}

// CarrierSolution is the RTK carrier-phase solution status (NAV-PVT flags
// bits 6-7). Fixed implies cm-level accuracy; Float is still converging.
type CarrierSolution byte

const (
	CarrierNone CarrierSolution = iota
	CarrierFloat
	CarrierFixed
)

func (c CarrierSolution) String() string {
	switch c {
	case CarrierFloat:
		return "RTK FLOAT"
	case CarrierFixed:
		return "RTK FIXED"
	default:
		return "None"
	}
}

// PositionFix is one decoded NAV-PVT record.
//
// Lat/lon are decimal degrees, altitude and accuracies are meters. Valid is
// set only when the receiver's own validity flag is set and the fix is at
// least 2D. The parser performs no date validation.
type PositionFix struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"min"`
	Second int `json:"sec"`

	FixType    FixType         `json:"fix_type"`
	Carrier    CarrierSolution `json:"carr_soln"`
	Satellites int             `json:"num_sv"`

	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	AltitudeMSL float64 `json:"altitude_msl"`
	HorizAccM   float64 `json:"h_acc"`
	VertAccM    float64 `json:"v_acc"`

	Valid bool `json:"valid"`
}

// Label describes the fix for humans, preferring the RTK solution tier.
func (p PositionFix) Label() string {
	if p.Carrier != CarrierNone {
		return p.Carrier.String()
	}
	return p.FixType.String()
}

// NAV-PVT payload byte offsets (u-blox interface description).
const (
	pvtPayloadLen = 92

	offYear   = 4
	offMonth  = 6
	offDay    = 7
	offHour   = 8
	offMin    = 9
	offSec    = 10
	offValid  = 11
	offFix    = 20
	offFlags  = 21
	offNumSV  = 23
	offLon    = 24
	offLat    = 28
	offHMSL   = 36
	offHAcc   = 40
	offVAcc   = 44
)

func decodePVT(p []byte) PositionFix {
	fix := PositionFix{
		Year:   int(binary.LittleEndian.Uint16(p[offYear:])),
		Month:  int(p[offMonth]),
		Day:    int(p[offDay]),
		Hour:   int(p[offHour]),
		Minute: int(p[offMin]),
		Second: int(p[offSec]),

		FixType:    FixType(p[offFix]),
		Carrier:    CarrierSolution((p[offFlags] >> 6) & 0x03),
		Satellites: int(p[offNumSV]),
	}

	fix.Longitude = float64(int32(binary.LittleEndian.Uint32(p[offLon:]))) * 1e-7
	fix.Latitude = float64(int32(binary.LittleEndian.Uint32(p[offLat:]))) * 1e-7
	fix.AltitudeMSL = float64(int32(binary.LittleEndian.Uint32(p[offHMSL:]))) / 1000.0
	fix.HorizAccM = float64(binary.LittleEndian.Uint32(p[offHAcc:])) / 1000.0
	fix.VertAccM = float64(binary.LittleEndian.Uint32(p[offVAcc:])) / 1000.0

	fix.Valid = p[offValid]&0x01 != 0 && fix.FixType >= Fix2D
	return fix
}
