package driver

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartref/protocol"
)

func TestDeviceCommandTable(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"PING\n", "PONG\n"},
		{"VERSION\n", "ESP32S3_UART_REF v1\n"},
		{"NOPE\n", "ERR UNKNOWN_CMD\n"},
		{"\n", "ERR UNKNOWN_CMD\n"},
	}

	for _, tc := range tests {
		d := NewDevice(nil)
		replies := d.Feed([]byte(tc.input))
		require.Len(t, replies, 1, "input %q", tc.input)
		assert.Equal(t, tc.want, replies[0])
	}
}

func TestDeviceIgnoresCarriageReturns(t *testing.T) {
	d := NewDevice(nil)
	replies := d.Feed([]byte("PING\r\n"))
	require.Len(t, replies, 1)
	assert.Equal(t, "PONG\n", replies[0])
}

func TestDeviceNoReplyWithoutNewline(t *testing.T) {
	d := NewDevice(nil)
	require.Empty(t, d.Feed([]byte("PING")))

	// The rest of the line arrives later.
	replies := d.Feed([]byte("\n"))
	require.Len(t, replies, 1)
	assert.Equal(t, "PONG\n", replies[0])
}

func TestDeviceUptimeMonotonic(t *testing.T) {
	d := NewDevice(nil)

	first := feedUptime(t, d)
	time.Sleep(5 * time.Millisecond)
	second := feedUptime(t, d)

	assert.GreaterOrEqual(t, second, first)
}

func feedUptime(t *testing.T, d *Device) int64 {
	t.Helper()
	replies := d.Feed([]byte("UPTIME\n"))
	require.Len(t, replies, 1)
	ms, err := protocol.ParseUptime(strings.TrimSpace(replies[0]))
	require.NoError(t, err)
	return ms
}

func TestDeviceOversizedLineDropped(t *testing.T) {
	d := NewDevice(nil)

	// 300 bytes overflow the 256-byte accumulator: the device drops the
	// pending line and restarts, so the tail ends up parsed as its own
	// (unknown) command once the newline arrives.
	long := strings.Repeat("X", 300)
	require.Empty(t, d.Feed([]byte(long)))

	replies := d.Feed([]byte("\n"))
	require.Len(t, replies, 1)
	assert.Equal(t, "ERR UNKNOWN_CMD\n", replies[0])
}

func TestDeviceSilentHandler(t *testing.T) {
	d := NewDevice(func(cmd string) string { return "" })
	assert.Empty(t, d.Feed([]byte("PING\n")))
}

func TestMockPortGreeting(t *testing.T) {
	m := NewMockPort()

	buf := make([]byte, 64)
	n, err := m.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "READY\n", string(buf[:n]))
}

func TestMockPortResetInputBuffer(t *testing.T) {
	m := NewMockPort()
	require.NoError(t, m.ResetInputBuffer())

	n, err := m.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Zero(t, n, "a drained port polls empty")
}

func TestMockPortClosed(t *testing.T) {
	m := NewMockPort()
	require.NoError(t, m.Close())

	_, err := m.Read(make([]byte, 8))
	assert.Equal(t, io.EOF, err)

	_, err = m.Write([]byte("PING\n"))
	assert.Equal(t, io.ErrClosedPipe, err)
}

func TestMockPortExchange(t *testing.T) {
	m := NewMockPort()
	m.ResetInputBuffer()

	ex := protocol.NewExchanger(m, 100*time.Millisecond)

	resp, err := ex.Exchange(protocol.CmdPing)
	require.NoError(t, err)
	assert.Equal(t, protocol.RespPong, resp)

	resp, err = ex.Exchange("INVALID_COMMAND")
	require.NoError(t, err)
	assert.Equal(t, protocol.RespUnknown, resp)

	resp, err = ex.Exchange(protocol.CmdUptime)
	require.NoError(t, err)
	_, err = protocol.ParseUptime(resp)
	assert.NoError(t, err)
}

func TestOpenMock(t *testing.T) {
	port, err := Open(MockPortName, 115200)
	require.NoError(t, err)
	defer port.Close()

	_, ok := port.(*MockPort)
	assert.True(t, ok)
}
