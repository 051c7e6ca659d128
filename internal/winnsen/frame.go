// Package winnsen implements the Winnsen-style binary protocol used by the
// locker controller boards. It is a pure codec: it builds outbound command
// frames and decodes inbound response frames, with no I/O and no state.
//
// A command frame is six bytes:
//
//	[0x90, 0x06, function, station, lock, 0x03]
//
// and a response frame is seven, carrying an extra status byte before the end
// marker. Boards on the RS-485 bus are addressed by a station ID set via DIP
// switches (0-3), each controlling up to 16 locks.
package winnsen

import (
	"errors"
	"fmt"
)

const (
	// StartMarker opens every frame on the bus.
	StartMarker = 0x90
	// EndMarker closes every frame.
	EndMarker = 0x03

	// CommandFrameLen is the length field of an outbound command frame.
	CommandFrameLen = 0x06
	// ResponseFrameLen is the length field of an inbound response frame.
	ResponseFrameLen = 0x07

	// FunctionUnlock opens a lock.
	FunctionUnlock = 0x05
	// FunctionStatus queries a lock's open/closed state.
	FunctionStatus = 0x12

	// MinStation and MaxStation bound the DIP-switch addressable boards.
	MinStation = 0
	MaxStation = 3

	// MinLock and MaxLock bound the per-station lock numbers.
	MinLock = 1
	MaxLock = 16

	// LocksPerStation is the lock capacity of one controller board.
	LocksPerStation = MaxLock
)

var (
	ErrStationRange = errors.New("winnsen: station out of range")
	ErrLockRange    = errors.New("winnsen: lock number out of range")
)

// ChecksumFunc computes a checksum over a frame body. The vendor document
// describing the authoritative checksum placement and algorithm has not been
// obtained; captures of the deployed boards show checksum-less frames, so the
// codec ships with no ChecksumFunc configured. The hook exists so a confirmed
// algorithm can be dropped in without changing the frame types.
type ChecksumFunc func(body []byte) byte

// CommandType describes one of the protocol's commands, carrying its request
// and expected response function codes as data.
type CommandType struct {
	Name     string
	Request  byte
	Response byte
}

var (
	// Unlock is the open-lock command. The board answers with the same
	// function code and a status byte reporting the resulting lock state.
	Unlock = CommandType{Name: "unlock", Request: FunctionUnlock, Response: FunctionUnlock}

	// Status is the query-lock command.
	Status = CommandType{Name: "status", Request: FunctionStatus, Response: FunctionStatus}
)

// CommandFrame is a single outbound command addressed to one lock on one
// station. It is only constructible for a valid address.
type CommandFrame struct {
	Type    CommandType
	Station int
	Lock    int

	// Checksum is applied by Bytes when non-nil. See ChecksumFunc.
	Checksum ChecksumFunc
}

// ValidateAddress reports whether (station, lock) names a physical lock.
func ValidateAddress(station, lock int) error {
	if station < MinStation || station > MaxStation {
		return fmt.Errorf("%w: %d", ErrStationRange, station)
	}
	if lock < MinLock || lock > MaxLock {
		return fmt.Errorf("%w: %d", ErrLockRange, lock)
	}
	return nil
}

// NewUnlockCommand builds an unlock frame for the given address.
func NewUnlockCommand(station, lock int) (*CommandFrame, error) {
	return NewCommand(Unlock, station, lock)
}

// NewStatusCommand builds a status frame for the given address.
func NewStatusCommand(station, lock int) (*CommandFrame, error) {
	return NewCommand(Status, station, lock)
}

// NewCommand builds a frame of the given type for the given address.
func NewCommand(ct CommandType, station, lock int) (*CommandFrame, error) {
	if err := ValidateAddress(station, lock); err != nil {
		return nil, err
	}
	return &CommandFrame{Type: ct, Station: station, Lock: lock}, nil
}

// Bytes serializes the frame into its wire layout.
func (f *CommandFrame) Bytes() []byte {
	b := []byte{StartMarker, CommandFrameLen, f.Type.Request, byte(f.Station), byte(f.Lock), EndMarker}
	if f.Checksum != nil {
		// Checksum replaces the end marker's slot and the marker shifts
		// out one byte. Off by default; see ChecksumFunc.
		b = append(b[:5], f.Checksum(b[:5]), EndMarker)
	}
	return b
}

// LogicalID maps a (station, lock) address to the kiosk-wide locker number in
// [1, 64]. Station 0 covers 1-16, station 1 covers 17-32, and so on.
func LogicalID(station, lock int) int {
	return station*LocksPerStation + lock
}

// SplitLogicalID is the inverse of LogicalID. It rejects IDs outside the
// addressable range.
func SplitLogicalID(id int) (station, lock int, err error) {
	if id < 1 || id > (MaxStation+1)*LocksPerStation {
		return 0, 0, fmt.Errorf("%w: locker %d", ErrLockRange, id)
	}
	return (id - 1) / LocksPerStation, (id-1)%LocksPerStation + 1, nil
}
