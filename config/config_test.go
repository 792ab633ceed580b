package config

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestDefaults(t *testing.T) {
	cfg, err := ParseTest([]string{"/dev/ttyUSB0"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Port)
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.Count)
	assert.False(t, cfg.Stress)
	assert.False(t, cfg.All)
	assert.Empty(t, cfg.WSAddr)
}

func TestParseTestFlagsAfterPort(t *testing.T) {
	cfg, err := ParseTest([]string{
		"COM3", "--baud", "57600", "--timeout", "0.5",
		"--stress", "--count", "500", "--ws", ":8989", "--log", "/tmp/logs",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "COM3", cfg.Port)
	assert.Equal(t, 57600, cfg.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.Timeout)
	assert.True(t, cfg.Stress)
	assert.Equal(t, 500, cfg.Count)
	assert.Equal(t, ":8989", cfg.WSAddr)
	assert.Equal(t, "/tmp/logs", cfg.LogDir)
}

func TestParseTestMissingPort(t *testing.T) {
	var errOut bytes.Buffer
	_, err := ParseTest(nil, &errOut)

	require.Error(t, err)
	assert.Contains(t, errOut.String(), "Usage:")
}

func TestParseTestListWithoutPort(t *testing.T) {
	cfg, err := ParseTest([]string{"--list"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, cfg.List)
}

func TestParseTestScanWithoutPort(t *testing.T) {
	cfg, err := ParseTest([]string{"--scan", "--all"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, cfg.Scan)
	assert.True(t, cfg.All)
}

func TestParseTestRejectsBadValues(t *testing.T) {
	_, err := ParseTest([]string{"COM3", "--count", "0"}, io.Discard)
	assert.Error(t, err)

	_, err = ParseTest([]string{"COM3", "--timeout", "-1"}, io.Discard)
	assert.Error(t, err)
}
