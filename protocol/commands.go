package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SettleDelay is how long clients wait after opening the port before the
// first exchange, giving the device time to finish booting. The boot
// banner and any other stale input should be discarded afterwards.
const SettleDelay = 500 * time.Millisecond

// Command and response vocabulary of the ESP32-S3 UART reference firmware.
// Commands are newline-terminated ASCII lines; the device answers each
// command with exactly one line.
const (
	CmdPing    = "PING"
	CmdVersion = "VERSION"
	CmdUptime  = "UPTIME"

	RespPong    = "PONG"
	RespVersion = "ESP32S3_UART_REF v1"
	RespUnknown = "ERR UNKNOWN_CMD"

	// UptimePrefix starts the UPTIME reply: "UPTIME_MS <milliseconds>".
	UptimePrefix = "UPTIME_MS"

	// BootBanner is emitted once by the firmware after reset. Connecting
	// clients should drain it (reset the input buffer) before the first
	// exchange.
	BootBanner = "READY"

	// MaxLineLen is the firmware's line accumulator capacity. Input lines
	// that exceed it are dropped by the device without a reply.
	MaxLineLen = 256
)

// ParseUptime validates an UPTIME reply and extracts the millisecond value.
// The reply must start with UptimePrefix and carry a base-10 integer as its
// second token.
func ParseUptime(resp string) (int64, error) {
	fields := strings.Fields(resp)
	if len(fields) < 2 || fields[0] != UptimePrefix {
		return 0, fmt.Errorf("malformed uptime response %q", resp)
	}

	ms, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid uptime value %q: %v", fields[1], err)
	}
	return ms, nil
}
