package joystick

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, events ...rawEvent) io.ReadCloser {
	var buf bytes.Buffer
	for _, e := range events {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	}
	return io.NopCloser(&buf)
}

func TestReadEvent(t *testing.T) {
	j := New(encode(t,
		rawEvent{Time: 1000, Value: 1, Type: EventTypeButton | 0x80, Number: ButtonL1},
		rawEvent{Time: 1250, Value: -32767, Type: EventTypeAxis, Number: AxisDPadY},
	))

	first, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventType(EventTypeButton), first.Type)
	assert.True(t, first.IsPress(ButtonL1))
	assert.False(t, first.IsPress(ButtonR1))

	second, err := j.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, EventType(EventTypeAxis), second.Type)
	assert.Equal(t, uint8(AxisDPadY), second.Number)
	assert.Equal(t, int16(-32767), second.Value)
	assert.Equal(t, 250*time.Millisecond, second.Time.Sub(first.Time))
	assert.False(t, second.IsPress(AxisDPadY))
	assert.Equal(t, "axis(7)=-32767", second.String())

	_, err = j.ReadEvent()
	assert.Equal(t, io.EOF, err)
}
