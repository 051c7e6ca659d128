package serialport

import (
	"sync"
	"time"
)

// TestablePort implements Transport with scripted behavior for unit tests.
// It provides fine-grained control over received chunks, injected errors, and
// call counts.
type TestablePort struct {
	mu sync.Mutex

	connected bool

	// ConnectError is returned by Connect if set.
	ConnectError error

	// SendErrors is consumed one entry per Send call; a nil entry means the
	// send succeeds. Once exhausted, sends succeed.
	SendErrors []error

	// ReceiveChunks is consumed one entry per Receive call; once exhausted,
	// Receive returns no data.
	ReceiveChunks [][]byte

	// ReceiveError is returned by every Receive call if set.
	ReceiveError error

	// SentFrames records every frame passed to Send, including failed ones.
	SentFrames [][]byte

	// ConnectCalls, SendCalls, ReceiveCalls, and ClearCalls count invocations.
	ConnectCalls int
	SendCalls    int
	ReceiveCalls int
	ClearCalls   int

	// LastOptions records the most recent Connect options.
	LastOptions PortOptions
}

// NewTestablePort returns a TestablePort that is already connected, since most
// tests exercise traffic rather than lifecycle.
func NewTestablePort() *TestablePort {
	return &TestablePort{connected: true}
}

func (t *TestablePort) Connect(opts PortOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ConnectCalls++
	t.LastOptions = opts
	if t.ConnectError != nil {
		return t.ConnectError
	}
	t.connected = true
	return nil
}

func (t *TestablePort) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

func (t *TestablePort) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *TestablePort) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.SendCalls++
	copied := make([]byte, len(frame))
	copy(copied, frame)
	t.SentFrames = append(t.SentFrames, copied)

	if !t.connected {
		return ErrNotConnected
	}
	if len(t.SendErrors) > 0 {
		err := t.SendErrors[0]
		t.SendErrors = t.SendErrors[1:]
		return err
	}
	return nil
}

func (t *TestablePort) Receive(timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReceiveCalls++
	if !t.connected {
		return nil, ErrNotConnected
	}
	if t.ReceiveError != nil {
		return nil, t.ReceiveError
	}
	if len(t.ReceiveChunks) == 0 {
		return nil, nil
	}
	chunk := t.ReceiveChunks[0]
	t.ReceiveChunks = t.ReceiveChunks[1:]
	return chunk, nil
}

func (t *TestablePort) ClearReceiveBuffer() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ClearCalls++
}

// QueueResponse appends a chunk to be returned by a later Receive call.
func (t *TestablePort) QueueResponse(chunk []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ReceiveChunks = append(t.ReceiveChunks, chunk)
}

// Reset clears scripted behavior and recorded calls, leaving the port
// connected.
func (t *TestablePort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = true
	t.ConnectError = nil
	t.SendErrors = nil
	t.ReceiveChunks = nil
	t.ReceiveError = nil
	t.SentFrames = nil
	t.ConnectCalls = 0
	t.SendCalls = 0
	t.ReceiveCalls = 0
	t.ClearCalls = 0
}
