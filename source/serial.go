package source

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"go.bug.st/serial"

	"github.com/meshwatch/meshwatch/state"
)

// SerialSource reads the debug log from a directly connected device,
// 8N1 framing.
type SerialSource struct {
	log  *slog.Logger
	port serial.Port
	dev  string

	// partial line carried over between reads
	rest []byte
	buf  []byte
}

// OpenSerial opens the device and arms the poll timeout.
func OpenSerial(log *slog.Logger, device string, baud int) (*SerialSource, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}
	if err := port.SetReadTimeout(state.PollTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return &SerialSource{
		log:  log,
		port: port,
		dev:  device,
		buf:  make([]byte, 4096),
	}, nil
}

// Poll performs one bounded read and returns the complete lines it
// finished. A zero-byte read is a timeout, not a failure.
func (s *SerialSource) Poll() ([]string, error) {
	n, err := s.port.Read(s.buf)
	if err != nil {
		return nil, fmt.Errorf("failed to read serial device %s: %w", s.dev, err)
	}
	if n == 0 {
		return nil, nil
	}
	s.rest = append(s.rest, s.buf[:n]...)

	var lines []string
	for {
		i := bytes.IndexByte(s.rest, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(s.rest[:i]), "\r")
		s.rest = s.rest[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
