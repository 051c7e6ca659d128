package winnsen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnlockCommand(t *testing.T) {
	f, err := NewUnlockCommand(0, 5)
	require.NoError(t, err)
	assert.Equal(t, Unlock, f.Type)
	assert.Equal(t, 0, f.Station)
	assert.Equal(t, 5, f.Lock)
}

func TestNewCommandRejectsBadAddresses(t *testing.T) {
	tests := []struct {
		name    string
		station int
		lock    int
		wantErr error
	}{
		{"lock zero", 0, 0, ErrLockRange},
		{"lock negative", 0, -3, ErrLockRange},
		{"lock above max", 0, 17, ErrLockRange},
		{"lock far above max", 2, 99, ErrLockRange},
		{"station negative", -1, 1, ErrStationRange},
		{"station above max", 4, 1, ErrStationRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUnlockCommand(tt.station, tt.lock)
			assert.ErrorIs(t, err, tt.wantErr)
			_, err = NewStatusCommand(tt.station, tt.lock)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCommandFrameBytes(t *testing.T) {
	f, err := NewUnlockCommand(2, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x06, 0x05, 0x02, 0x07, 0x03}, f.Bytes())

	f, err = NewStatusCommand(0, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x06, 0x12, 0x00, 0x10, 0x03}, f.Bytes())
}

func TestCommandFrameBytesWithChecksum(t *testing.T) {
	sum := func(body []byte) byte {
		var s byte
		for _, b := range body {
			s += b
		}
		return s
	}
	f, err := NewUnlockCommand(1, 2)
	require.NoError(t, err)
	f.Checksum = sum

	b := f.Bytes()
	require.Len(t, b, 7)
	assert.Equal(t, sum([]byte{0x90, 0x06, 0x05, 0x01, 0x02}), b[5])
	assert.Equal(t, byte(EndMarker), b[6])
}

func TestEncodeParseRoundTrip(t *testing.T) {
	for lock := MinLock; lock <= MaxLock; lock++ {
		cmd, err := NewStatusCommand(1, lock)
		if err != nil {
			t.Fatalf("NewStatusCommand(1, %d): %v", lock, err)
		}
		wire := EncodeResponse(cmd.Type.Response, cmd.Station, cmd.Lock, 0x00)
		resp, n := ParseResponse(wire)
		if resp == nil {
			t.Fatalf("ParseResponse rejected loopback frame for lock %d", lock)
		}
		if n != len(wire) {
			t.Errorf("consumed %d bytes, want %d", n, len(wire))
		}
		want := &ResponseFrame{
			Function:   FunctionStatus,
			Station:    1,
			Lock:       lock,
			StatusByte: 0x00,
			Raw:        wire,
		}
		if diff := cmp.Diff(want, resp); diff != "" {
			t.Errorf("response mismatch (-want +got):\n%s", diff)
		}
		if !resp.Matches(Status, 1, lock) {
			t.Errorf("frame for lock %d does not match its own command", lock)
		}
	}
}

func TestLogicalID(t *testing.T) {
	assert.Equal(t, 1, LogicalID(0, 1))
	assert.Equal(t, 16, LogicalID(0, 16))
	assert.Equal(t, 17, LogicalID(1, 1))
	assert.Equal(t, 64, LogicalID(3, 16))
}

func TestSplitLogicalID(t *testing.T) {
	tests := []struct {
		id            int
		station, lock int
	}{
		{1, 0, 1},
		{16, 0, 16},
		{17, 1, 1},
		{33, 2, 1},
		{64, 3, 16},
	}
	for _, tt := range tests {
		station, lock, err := SplitLogicalID(tt.id)
		require.NoError(t, err, "id %d", tt.id)
		assert.Equal(t, tt.station, station, "station for id %d", tt.id)
		assert.Equal(t, tt.lock, lock, "lock for id %d", tt.id)
	}

	for _, id := range []int{0, -1, 65, 1000} {
		_, _, err := SplitLogicalID(id)
		assert.Error(t, err, "id %d should be rejected", id)
	}
}
