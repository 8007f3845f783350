package receiver

import (
	"fmt"
	"log"
	"time"

	"go.bug.st/serial"
)

type serialPort interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Serial drives the receiver over a UART. The serial API has no pending-byte
// query, so Available polls the port with a short timeout and buffers
// whatever arrived; Read then drains that buffer.
type Serial struct {
	port    serialPort
	pending []byte
	tmp     [512]byte
}

// OpenSerial opens path in 8N1 mode at the given baud rate.
func OpenSerial(path string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	if err := port.SetReadTimeout(20 * time.Millisecond); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("serial read timeout: %w", err)
	}
	log.Printf("receiver serial ready port=%s baud=%d", path, baud)
	return &Serial{port: port}, nil
}

func (s *Serial) Available() (int, error) {
	n, err := s.port.Read(s.tmp[:])
	if n > 0 {
		s.pending = append(s.pending, s.tmp[:n]...)
	}
	if err != nil {
		return len(s.pending), fmt.Errorf("serial poll: %w", err)
	}
	return len(s.pending), nil
}

func (s *Serial) Read(p []byte) (int, error) {
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *Serial) Close() error {
	return s.port.Close()
}
