// Package ubx provides an incremental parser for the u-blox UBX binary
// protocol, geared toward RTK rover bring-up:
//   - resynchronize on a lossy, arbitrarily chunked byte stream
//   - verify the UBX additive checksum
//   - decode NAV-PVT into a PositionFix
package ubx
