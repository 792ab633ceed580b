package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	defer Close()

	Info("connected at %d baud", 115200)
	Protocol("TX", "PING")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)

	assert.Contains(t, string(data), "[INFO] connected at 115200 baud")
	assert.Contains(t, string(data), `[PROTO] TX "PING"`)
}

func TestDisabledWithoutInit(t *testing.T) {
	Close()
	// Must be safe no-ops.
	Info("dropped")
	Error("dropped")
	Debug("dropped")
	Protocol("RX", "dropped")
}
