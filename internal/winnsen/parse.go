package winnsen

// LockStatus is the reported state of a lock.
type LockStatus int

const (
	StatusUnknown LockStatus = iota
	StatusOpen
	StatusClosed
)

// Status byte values reported by the boards.
const (
	statusByteClosed = 0x00
	statusByteOpen   = 0x01
)

// UnlockSuccessByte is the status byte a board reports when an unlock command
// physically released the lock.
const UnlockSuccessByte = statusByteOpen

func (s LockStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LockStatusFromByte maps a response status byte to a LockStatus. Unrecognized
// bytes map to StatusUnknown rather than failing; firmware revisions have been
// seen reporting vendor-specific codes.
func LockStatusFromByte(b byte) LockStatus {
	switch b {
	case statusByteOpen:
		return StatusOpen
	case statusByteClosed:
		return StatusClosed
	default:
		return StatusUnknown
	}
}

// ResponseFrame is one validated inbound frame.
type ResponseFrame struct {
	Function   byte
	Station    int
	Lock       int
	StatusByte byte
	Raw        []byte
}

// Status returns the lock state reported by the frame.
func (r *ResponseFrame) Status() LockStatus {
	return LockStatusFromByte(r.StatusByte)
}

// Matches reports whether the frame answers an outstanding command of the
// given type for the given address. Stray traffic on the shared bus decodes
// fine but fails to match, and the caller keeps polling.
func (r *ResponseFrame) Matches(ct CommandType, station, lock int) bool {
	return r.Function == ct.Response && r.Station == station && r.Lock == lock
}

// ParseResponse scans buf for the earliest well-formed response frame.
//
// It returns the decoded frame and the number of bytes consumed through the
// end of that frame. When no complete frame is present it returns nil along
// with the count of leading bytes that can be safely discarded: everything up
// to the first start marker that could still begin a frame. Malformed input is
// not an error. The half-duplex bus carries echo and noise, and a polling
// caller simply discards what cannot be a frame and keeps accumulating.
func ParseResponse(buf []byte) (*ResponseFrame, int) {
	for i := 0; i < len(buf); i++ {
		if buf[i] != StartMarker {
			continue
		}
		rest := buf[i:]
		if len(rest) < int(ResponseFrameLen) {
			// Possible partial frame. Discard the noise before it and
			// wait for more bytes.
			return nil, i
		}
		frame := rest[:ResponseFrameLen]
		if frame[1] != ResponseFrameLen || frame[6] != EndMarker {
			// Not a frame after all. Skip this marker byte.
			continue
		}
		station, lock := int(frame[3]), int(frame[4])
		if ValidateAddress(station, lock) != nil {
			continue
		}
		raw := make([]byte, ResponseFrameLen)
		copy(raw, frame)
		return &ResponseFrame{
			Function:   frame[2],
			Station:    station,
			Lock:       lock,
			StatusByte: frame[5],
			Raw:        raw,
		}, i + int(ResponseFrameLen)
	}
	return nil, len(buf)
}

// EncodeResponse builds the wire bytes of a response frame. The real boards
// produce these; the codec exposes it for the transport simulator and tests.
func EncodeResponse(function byte, station, lock int, status byte) []byte {
	return []byte{StartMarker, ResponseFrameLen, function, byte(station), byte(lock), status, EndMarker}
}
