// Package serialport provides byte-level access to the RS-485 locker bus.
//
// The bus is half-duplex and shared between up to four controller boards, so
// the package deliberately offers only reliability primitives: write a frame,
// read whatever arrives within a timeout, and drop stale bytes. Response
// correlation, retries, and pacing belong to the caller.
package serialport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

var (
	// ErrNotConnected is returned by Send/Receive before Connect succeeds.
	ErrNotConnected = errors.New("serialport: not connected")

	// ErrWriteFailed is returned when a write does not take the whole frame.
	ErrWriteFailed = errors.New("serialport: short write")
)

// Transport is the byte-level interface required of any locker bus backend.
// Two implementations exist: Port for a real serial line and Simulator for
// development and tests without a board attached.
type Transport interface {
	// Connect opens the line with the given options. Idempotent: connecting
	// an already-connected transport is a no-op.
	Connect(opts PortOptions) error

	// Disconnect releases the line. Safe to call when already disconnected.
	Disconnect() error

	// Connected reports whether the transport is usable.
	Connected() bool

	// Send writes one complete frame. It does not retry.
	Send(frame []byte) error

	// Receive returns whatever bytes arrived within the window, possibly
	// none. It never blocks past the timeout.
	Receive(timeout time.Duration) ([]byte, error)

	// ClearReceiveBuffer discards stale bytes. A straggling byte from a
	// prior exchange would corrupt correlation of the next response.
	ClearReceiveBuffer()
}

// PortOptions describes the serial connection parameters for the locker bus.
type PortOptions struct {
	Path     string `json:"path"`
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

// Normalize validates the options and applies the bus defaults (9600 8N1) for
// any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	if parity == "" {
		parity = "N"
	}

	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	opts.Parity = parity
	return opts, nil
}

// Equal reports whether two PortOptions describe the same serial configuration.
func (o PortOptions) Equal(other PortOptions) bool {
	normalizedA, errA := o.Normalize()
	normalizedB, errB := other.Normalize()
	if errA != nil || errB != nil {
		return false
	}

	return normalizedA.Path == normalizedB.Path &&
		normalizedA.BaudRate == normalizedB.BaudRate &&
		normalizedA.DataBits == normalizedB.DataBits &&
		normalizedA.StopBits == normalizedB.StopBits &&
		normalizedA.Parity == normalizedB.Parity
}

// SerialMode converts the port options into the serial.Mode structure required
// by go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.StopBits(opts.StopBits),
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}

	return mode, nil
}
