package serialport

import (
	"testing"

	"go.bug.st/serial"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	opts, err := PortOptions{}.Normalize()
	require.NoError(t, err)

	// Bus defaults: 9600 8N1.
	assert.Equal(t, 9600, opts.BaudRate)
	assert.Equal(t, 8, opts.DataBits)
	assert.Equal(t, 1, opts.StopBits)
	assert.Equal(t, "N", opts.Parity)
}

func TestPortOptionsNormalizeParityAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "N"},
		{"n", "N"},
		{"none", "N"},
		{"E", "E"},
		{"even", "E"},
		{"odd", "O"},
	}
	for _, tt := range tests {
		opts, err := PortOptions{Parity: tt.in}.Normalize()
		require.NoError(t, err, "parity %q", tt.in)
		assert.Equal(t, tt.want, opts.Parity, "parity %q", tt.in)
	}
}

func TestPortOptionsNormalizeRejectsInvalid(t *testing.T) {
	_, err := PortOptions{DataBits: 9}.Normalize()
	assert.Error(t, err)

	_, err = PortOptions{StopBits: 3}.Normalize()
	assert.Error(t, err)

	_, err = PortOptions{Parity: "M"}.Normalize()
	assert.Error(t, err)
}

func TestPortOptionsEqual(t *testing.T) {
	a := PortOptions{Path: "/dev/ttyS0"}
	b := PortOptions{Path: "/dev/ttyS0", BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "none"}
	assert.True(t, a.Equal(b), "defaults should compare equal to explicit values")

	c := PortOptions{Path: "/dev/ttyS0", BaudRate: 19200}
	assert.False(t, a.Equal(c))

	d := PortOptions{Path: "/dev/ttyS1"}
	assert.False(t, a.Equal(d))
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 9600, Parity: "E", StopBits: 2}.SerialMode()
	require.NoError(t, err)

	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.StopBits(2), mode.StopBits)
}

func TestPortLifecycleWithoutDevice(t *testing.T) {
	p := NewPort()

	assert.False(t, p.Connected())

	// Operations on a disconnected port fail cleanly.
	err := p.Send([]byte{0x90})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = p.Receive(0)
	assert.ErrorIs(t, err, ErrNotConnected)

	// Both are safe when nothing is open.
	p.ClearReceiveBuffer()
	assert.NoError(t, p.Disconnect())

	// Bad options are rejected before any device is touched.
	err = p.Connect(PortOptions{DataBits: 3})
	assert.Error(t, err)
}
