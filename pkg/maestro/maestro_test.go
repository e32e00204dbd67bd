package maestro

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
)

type bufferPort struct {
	bytes.Buffer
	closed bool
}

func (b *bufferPort) Close() error {
	b.closed = true
	return nil
}

func TestTarget(t *testing.T) {
	assert.Equal(t, uint16(2400), Target(-90))
	assert.Equal(t, uint16(6000), Target(0))
	assert.Equal(t, uint16(9600), Target(90))
}

func TestCompactProtocolFrames(t *testing.T) {
	port := &bufferPort{}
	c := New(port, 0, 5)

	assert.ErrorIs(t, c.SetAngle(servo.Pan, 0), servo.ErrDisabled)
	require.NoError(t, c.Enable(servo.Pan, true))
	require.NoError(t, c.Enable(servo.Tilt, true))
	require.NoError(t, c.SetAngle(servo.Pan, 0))
	require.NoError(t, c.SetAngle(servo.Tilt, 90))
	assert.ErrorIs(t, c.SetAngle(servo.Tilt, 100), servo.ErrAngleOutside)
	require.NoError(t, c.Enable(servo.Pan, false))
	require.NoError(t, c.Close())

	// 6000 = 0x1770 -> 0x70, 0x2e; 9600 = 0x2580 -> 0x00, 0x4b
	assert.Equal(t, []byte{
		0x84, 0, 0x70, 0x2e,
		0x84, 5, 0x00, 0x4b,
		0x84, 0, 0x00, 0x00,
	}, port.Bytes())
	assert.True(t, port.closed)
}
