package serialport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/parcelpoint/lockerd/internal/monitoring"
)

// Port drives a real serial line via go.bug.st/serial.
type Port struct {
	mu   sync.Mutex
	port serial.Port
	opts PortOptions
}

// NewPort returns an unconnected Port.
func NewPort() *Port {
	return &Port{}
}

// Connect opens the serial device named by opts.Path. Reconnecting with the
// same options is a no-op; reconnecting with different options fails so a
// misconfigured caller cannot silently change the bus speed mid-session.
func (p *Port) Connect(opts PortOptions) error {
	normalized, err := opts.Normalize()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		if p.opts.Equal(normalized) {
			return nil
		}
		return fmt.Errorf("serialport: already connected to %s with different options", p.opts.Path)
	}

	mode, err := normalized.SerialMode()
	if err != nil {
		return err
	}

	port, err := serial.Open(normalized.Path, mode)
	if err != nil {
		return fmt.Errorf("serialport: open %s: %w", normalized.Path, err)
	}

	p.port = port
	p.opts = normalized
	monitoring.Logf("serialport: opened %s at %d baud", normalized.Path, normalized.BaudRate)
	return nil
}

// Disconnect closes the device. Safe to call when already disconnected.
func (p *Port) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return err
}

// Connected reports whether the device is open.
func (p *Port) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// Send writes the full frame. A short write is an error; the transport never
// retries on its own.
func (p *Port) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ErrNotConnected
	}
	n, err := p.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailed, n, len(frame))
	}
	return nil
}

// Receive returns whatever bytes arrive within the timeout window. An empty
// slice with a nil error means the window elapsed quietly.
func (p *Port) Receive(timeout time.Duration) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil, ErrNotConnected
	}
	if err := p.port.SetReadTimeout(timeout); err != nil {
		return nil, err
	}

	buf := make([]byte, 64)
	n, err := p.port.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ClearReceiveBuffer discards any unread bytes queued on the device.
func (p *Port) ClearReceiveBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return
	}
	if err := p.port.ResetInputBuffer(); err != nil {
		monitoring.Logf("serialport: reset input buffer: %v", err)
	}
}
