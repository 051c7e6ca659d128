package serialport

import (
	"sync"
	"time"

	"github.com/parcelpoint/lockerd/internal/winnsen"
)

// Simulator is a Transport that fabricates plausible controller-board
// behavior without hardware. It keeps per-lock open/closed state, decodes
// command frames written to it, and queues the responses a real board would
// send. Used for tests and for kiosk UI development without a bus attached.
type Simulator struct {
	mu        sync.Mutex
	connected bool

	// open tracks lock state per (station, lock).
	open map[simAddr]bool

	// pending holds response bytes not yet drained by Receive.
	pending []byte

	// DropResponses suppresses the next n responses, exercising the
	// caller's timeout and retry paths.
	DropResponses int

	// ResponseLatency delays Receive delivery by the given duration within
	// the caller's timeout window.
	ResponseLatency time.Duration
}

type simAddr struct {
	station, lock int
}

// NewSimulator returns a Simulator with every lock closed.
func NewSimulator() *Simulator {
	return &Simulator{open: make(map[simAddr]bool)}
}

func (s *Simulator) Connect(opts PortOptions) error {
	if _, err := opts.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.pending = nil
	return nil
}

func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Send decodes the command frame and queues the board's answer.
func (s *Simulator) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if len(frame) < 6 || frame[0] != winnsen.StartMarker {
		// A real board stays silent on garbage.
		return nil
	}

	function := frame[2]
	addr := simAddr{station: int(frame[3]), lock: int(frame[4])}
	if winnsen.ValidateAddress(addr.station, addr.lock) != nil {
		return nil
	}

	if s.DropResponses > 0 {
		s.DropResponses--
		return nil
	}

	switch function {
	case winnsen.FunctionUnlock:
		s.open[addr] = true
		s.pending = append(s.pending, winnsen.EncodeResponse(function, addr.station, addr.lock, winnsen.UnlockSuccessByte)...)
	case winnsen.FunctionStatus:
		status := byte(0x00)
		if s.open[addr] {
			status = 0x01
		}
		s.pending = append(s.pending, winnsen.EncodeResponse(function, addr.station, addr.lock, status)...)
	}
	return nil
}

// Receive drains queued response bytes, honoring ResponseLatency.
func (s *Simulator) Receive(timeout time.Duration) ([]byte, error) {
	if s.ResponseLatency > 0 {
		if s.ResponseLatency > timeout {
			time.Sleep(timeout)
			return nil, nil
		}
		time.Sleep(s.ResponseLatency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil, ErrNotConnected
	}
	out := s.pending
	s.pending = nil
	return out, nil
}

func (s *Simulator) ClearReceiveBuffer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// CloseLock flips a lock back to closed, standing in for a customer shutting
// the door. Test hook only.
func (s *Simulator) CloseLock(station, lock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open[simAddr{station, lock}] = false
}

// LockOpen reports the simulated state of a lock.
func (s *Simulator) LockOpen(station, lock int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open[simAddr{station, lock}]
}
