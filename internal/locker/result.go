package locker

import (
	"errors"
	"time"

	"github.com/parcelpoint/lockerd/internal/winnsen"
)

// Failure classes for one command exchange. NotConnected and InvalidAddress
// are caller errors and surface immediately; the rest are transient on a lossy
// half-duplex bus and go through the retry wrapper.
var (
	ErrNotConnected    = errors.New("locker: not connected")
	ErrInvalidAddress  = errors.New("locker: invalid lock address")
	ErrWriteFailed     = errors.New("locker: transport write failed")
	ErrResponseTimeout = errors.New("locker: response timeout")
	ErrProtocolFailure = errors.New("locker: board reported failure")
)

// OperationResult is the outcome of one locker operation. It is the only
// value the controller ever hands back; no error escapes the package boundary
// any other way.
type OperationResult struct {
	Success bool               `json:"success"`
	Station int                `json:"station"`
	Lock    int                `json:"lock"`
	Status  winnsen.LockStatus `json:"-"`

	// StatusName is the string form of Status for JSON consumers.
	StatusName string `json:"status"`

	// Err carries the failure description when Success is false.
	Err string `json:"error,omitempty"`

	// ResponseTime is the duration of the exchange, including retries.
	ResponseTime time.Duration `json:"-"`

	// ResponseTimeMs is ResponseTime in milliseconds for JSON consumers. A
	// raw Duration would marshal as nanoseconds.
	ResponseTimeMs int64 `json:"response_time_ms,omitempty"`
}

func successResult(station, lock int, status winnsen.LockStatus, elapsed time.Duration) OperationResult {
	return OperationResult{
		Success:        true,
		Station:        station,
		Lock:           lock,
		Status:         status,
		StatusName:     status.String(),
		ResponseTime:   elapsed,
		ResponseTimeMs: elapsed.Milliseconds(),
	}
}

func failureResult(station, lock int, err error, elapsed time.Duration) OperationResult {
	return OperationResult{
		Station:        station,
		Lock:           lock,
		Status:         winnsen.StatusUnknown,
		StatusName:     winnsen.StatusUnknown.String(),
		Err:            err.Error(),
		ResponseTime:   elapsed,
		ResponseTimeMs: elapsed.Milliseconds(),
	}
}
