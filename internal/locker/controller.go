// Package locker turns the byte-level locker bus into retried, timeout-bounded
// lock operations.
//
// The RS-485 bus is half-duplex and shared: at most one command/response
// exchange may be in flight at a time, or frame boundaries and response
// correlation fall apart. A single mutex serializes every operation, including
// connect and disconnect; concurrent callers queue rather than interleave.
// Once a frame is on the wire the exchange is drained to completion (success,
// protocol failure, or timeout) before the bus is handed to the next command.
package locker

import (
	"fmt"
	"sync"
	"time"

	"github.com/parcelpoint/lockerd/internal/config"
	"github.com/parcelpoint/lockerd/internal/monitoring"
	"github.com/parcelpoint/lockerd/internal/serialport"
	"github.com/parcelpoint/lockerd/internal/timeutil"
	"github.com/parcelpoint/lockerd/internal/winnsen"
)

var logf = monitoring.Scoped("locker")

// Controller orchestrates command/response exchanges with the controller
// boards: encode, send, await a correlated response, retry with backoff.
type Controller struct {
	mu        sync.Mutex
	transport serialport.Transport
	tuning    *config.Tuning
	clock     timeutil.Clock
	station   int
	connected bool
	diag      *diagLog

	// subscriberMu is separate from mu so a slow log reader cannot touch
	// bus pacing.
	subscriberMu sync.Mutex
	subscribers  map[int]chan string
	nextSubID    int
}

// NewController builds a Controller over the given transport. Single-lock
// operations address the station configured in tuning.
func NewController(transport serialport.Transport, tuning *config.Tuning) *Controller {
	return NewControllerWithClock(transport, tuning, timeutil.RealClock{})
}

// NewControllerWithClock is NewController with an injected clock, used by
// tests to assert on pacing without sleeping.
func NewControllerWithClock(transport serialport.Transport, tuning *config.Tuning, clock timeutil.Clock) *Controller {
	if tuning == nil {
		tuning = config.EmptyTuning()
	}
	return &Controller{
		transport:   transport,
		tuning:      tuning,
		clock:       clock,
		station:     tuning.GetStation(),
		diag:        newDiagLog(),
		subscribers: make(map[int]chan string),
	}
}

// Connect opens the bus. Mutually exclusive with in-flight commands.
func (c *Controller) Connect(opts serialport.PortOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transport.Connect(opts); err != nil {
		c.logDiag("connect %s failed: %v", opts.Path, err)
		return err
	}
	c.connected = true
	c.logDiag("connected to %s", opts.Path)
	return nil
}

// Disconnect tears down the transport. Safe when already disconnected.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	err := c.transport.Disconnect()
	c.logDiag("disconnected")
	return err
}

// Connected reports whether Connect has succeeded.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Station returns the board address used by single-lock operations.
func (c *Controller) Station() int {
	return c.station
}

// Unlock opens one lock on the configured station. Success requires the board
// to report the lock released, not merely that a response arrived.
func (c *Controller) Unlock(lock int) OperationResult {
	return c.UnlockAt(c.station, lock)
}

// UnlockAt is Unlock with an explicit station, for multi-board buses.
func (c *Controller) UnlockAt(station, lock int) OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCommand(winnsen.Unlock, station, lock)
}

// Status queries the open/closed state of one lock on the configured station.
// A well-formed matching response is a success regardless of the reported lock
// position, which the result's Status field carries.
func (c *Controller) Status(lock int) OperationResult {
	return c.StatusAt(c.station, lock)
}

// StatusAt is Status with an explicit station.
func (c *Controller) StatusAt(station, lock int) OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCommand(winnsen.Status, station, lock)
}

// StatusAll queries every lock on the configured station sequentially, paced
// by the inter-command delay so the board is not saturated. The returned map
// holds exactly one result per lock number regardless of individual failures.
func (c *Controller) StatusAll() map[int]OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	results := make(map[int]OperationResult, winnsen.MaxLock)
	for lock := winnsen.MinLock; lock <= winnsen.MaxLock; lock++ {
		results[lock] = c.runCommand(winnsen.Status, c.station, lock)
		if lock < winnsen.MaxLock {
			c.clock.Sleep(c.tuning.GetInterCommandDelay())
		}
	}
	return results
}

// EmergencyUnlockAll attempts to open every lock on the configured station.
// It is a safety escape hatch: the sweep always completes, never
// short-circuiting on an individual failure.
func (c *Controller) EmergencyUnlockAll() map[int]OperationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logDiag("emergency unlock sweep started")
	results := make(map[int]OperationResult, winnsen.MaxLock)
	failures := 0
	for lock := winnsen.MinLock; lock <= winnsen.MaxLock; lock++ {
		r := c.runCommand(winnsen.Unlock, c.station, lock)
		results[lock] = r
		if !r.Success {
			failures++
		}
		if lock < winnsen.MaxLock {
			c.clock.Sleep(c.tuning.GetInterCommandDelay())
		}
	}
	c.logDiag("emergency unlock sweep finished, %d failures", failures)
	return results
}

// TestCommunication runs a status exchange against lock 1 as a smoke test of
// the whole path: port, bus wiring, board power, addressing.
func (c *Controller) TestCommunication() bool {
	return c.Status(winnsen.MinLock).Success
}

// LogMessages returns the retained diagnostic log, oldest first.
func (c *Controller) LogMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diag.messages()
}

// ClearLog discards the diagnostic log.
func (c *Controller) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diag.clear()
}

// SubscribeLog registers a live feed of diagnostic lines and returns its id
// and channel. The channel is buffered; lines are dropped for readers that
// fall behind rather than stalling the bus. Callers must UnsubscribeLog.
func (c *Controller) SubscribeLog() (int, <-chan string) {
	c.subscriberMu.Lock()
	defer c.subscriberMu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan string, 16)
	c.subscribers[id] = ch
	return id, ch
}

// UnsubscribeLog removes a subscriber and closes its channel. Safe to call
// with an already-removed id.
func (c *Controller) UnsubscribeLog(id int) {
	c.subscriberMu.Lock()
	defer c.subscriberMu.Unlock()

	if ch, ok := c.subscribers[id]; ok {
		close(ch)
		delete(c.subscribers, id)
	}
}

// SendRaw writes an arbitrary frame to the bus and returns whatever bytes
// arrive before the response deadline. It exists for field diagnosis of
// undocumented board behavior; normal operations go through Unlock and
// Status.
func (c *Controller) SendRaw(frame []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}

	c.transport.ClearReceiveBuffer()
	if err := c.transport.Send(frame); err != nil {
		c.logDiag("raw frame send failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	c.logDiag("raw frame sent: % x", frame)

	timeout := c.tuning.GetResponseTimeout()
	poll := c.tuning.GetPollInterval()

	// No frame to correlate against, so drain the full window.
	var buf []byte
	for elapsed := time.Duration(0); elapsed < timeout; elapsed += poll {
		chunk, err := c.transport.Receive(poll)
		if err != nil {
			c.clock.Sleep(poll)
			continue
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// runCommand validates, encodes, and runs one command through the retry
// wrapper. Caller must hold c.mu.
func (c *Controller) runCommand(ct winnsen.CommandType, station, lock int) OperationResult {
	if !c.connected {
		c.logDiag("%s %d/%d rejected: not connected", ct.Name, station, lock)
		return failureResult(station, lock, ErrNotConnected, 0)
	}
	if err := winnsen.ValidateAddress(station, lock); err != nil {
		c.logDiag("%s rejected: %v", ct.Name, err)
		return failureResult(station, lock, fmt.Errorf("%w: %v", ErrInvalidAddress, err), 0)
	}

	frame, err := winnsen.NewCommand(ct, station, lock)
	if err != nil {
		// Unreachable after ValidateAddress; kept so a codec change cannot
		// silently panic the kiosk.
		return failureResult(station, lock, fmt.Errorf("%w: %v", ErrInvalidAddress, err), 0)
	}
	return c.sendWithRetry(frame)
}

// sendWithRetry drives one command through up to RetryAttempts exchanges with
// linear backoff between attempts. Transient failures (write errors, timeouts,
// protocol-level refusals) are retried; the first success returns immediately.
func (c *Controller) sendWithRetry(frame *winnsen.CommandFrame) OperationResult {
	start := c.clock.Now()
	attempts := c.tuning.GetRetryAttempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.clock.Sleep(c.tuning.GetRetryDelay() * time.Duration(attempt-1))
		}

		resp, err := c.exchange(frame)
		if err != nil {
			lastErr = err
			c.logDiag("%s %d/%d attempt %d/%d failed: %v",
				frame.Type.Name, frame.Station, frame.Lock, attempt, attempts, err)
			continue
		}

		// For unlock, the board must report the lock released. Any other
		// status is a protocol-level failure; the mechanism may still
		// succeed on a later physical attempt.
		if frame.Type == winnsen.Unlock && resp.StatusByte != winnsen.UnlockSuccessByte {
			lastErr = fmt.Errorf("%w: status byte 0x%02x", ErrProtocolFailure, resp.StatusByte)
			c.logDiag("%s %d/%d attempt %d/%d: board refused, status 0x%02x",
				frame.Type.Name, frame.Station, frame.Lock, attempt, attempts, resp.StatusByte)
			continue
		}

		elapsed := c.clock.Since(start)
		c.logDiag("%s %d/%d ok on attempt %d (%s, %v)",
			frame.Type.Name, frame.Station, frame.Lock, attempt, resp.Status(), elapsed)
		return successResult(frame.Station, frame.Lock, resp.Status(), elapsed)
	}

	c.logDiag("%s %d/%d exhausted %d attempts: %v",
		frame.Type.Name, frame.Station, frame.Lock, attempts, lastErr)
	return failureResult(frame.Station, frame.Lock, lastErr, c.clock.Since(start))
}

// exchange performs a single SEND then AWAIT_RESPONSE cycle. The receive
// buffer is cleared first: a straggling byte from a prior exchange would
// corrupt correlation. Polling runs in PollInterval slices until a frame
// matching the outstanding (function, station, lock) decodes or the response
// deadline elapses. Frames that decode but do not match are stray traffic or
// echo on the shared bus and are discarded.
func (c *Controller) exchange(frame *winnsen.CommandFrame) (*winnsen.ResponseFrame, error) {
	c.transport.ClearReceiveBuffer()

	if err := c.transport.Send(frame.Bytes()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	timeout := c.tuning.GetResponseTimeout()
	poll := c.tuning.GetPollInterval()

	var buf []byte
	for elapsed := time.Duration(0); elapsed < timeout; elapsed += poll {
		chunk, err := c.transport.Receive(poll)
		if err != nil {
			// A failed read is not fatal to the exchange; the deadline
			// still bounds it.
			c.logDiag("receive error: %v", err)
			c.clock.Sleep(poll)
			continue
		}
		buf = append(buf, chunk...)

		for {
			resp, n := winnsen.ParseResponse(buf)
			buf = buf[n:]
			if resp == nil {
				break
			}
			if resp.Matches(frame.Type, frame.Station, frame.Lock) {
				return resp, nil
			}
			c.logDiag("discarding unmatched frame fn=0x%02x %d/%d",
				resp.Function, resp.Station, resp.Lock)
		}
	}

	return nil, ErrResponseTimeout
}

// logDiag appends to the capped diagnostic ring and mirrors the line to the
// process log and any live subscribers. Caller must hold c.mu.
func (c *Controller) logDiag(format string, v ...interface{}) {
	line := c.diag.add(c.clock.Now(), format, v...)
	logf(format, v...)
	c.notifySubscribers(line)
}

func (c *Controller) notifySubscribers(line string) {
	c.subscriberMu.Lock()
	defer c.subscriberMu.Unlock()

	for _, ch := range c.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}
