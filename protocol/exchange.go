package protocol

import (
	"fmt"
	"io"
	"strings"
	"time"

	"uartref/logger"
)

const (
	// DefaultTimeout is the default per-exchange response timeout.
	DefaultTimeout = 1 * time.Second

	// readSlice paces the poll loop while waiting for response bytes.
	readSlice = 5 * time.Millisecond
)

// Exchanger performs strictly sequential command/response round trips over
// a line-based byte stream. The protocol carries no request identifiers, so
// a new command is never written before the previous response (or its
// timeout) has been resolved.
//
// The transport is expected to behave like driver.Port: a read that hits
// the transport's own timeout returns n=0 with a nil error.
type Exchanger struct {
	conn    io.ReadWriter
	timeout time.Duration
}

// NewExchanger wraps a connection with a default response timeout.
// A non-positive timeout selects DefaultTimeout.
func NewExchanger(conn io.ReadWriter, timeout time.Duration) *Exchanger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Exchanger{conn: conn, timeout: timeout}
}

// Timeout returns the default per-exchange timeout.
func (e *Exchanger) Timeout() time.Duration {
	return e.timeout
}

// Exchange sends one command and returns the device's reply line, trimmed
// of whitespace and line terminators. If the device sends nothing before
// the default timeout, the reply is the empty string with a nil error: an
// empty response is a valid (failing) response, not an I/O fault.
func (e *Exchanger) Exchange(cmd string) (string, error) {
	return e.ExchangeTimeout(cmd, e.timeout)
}

// ExchangeTimeout is Exchange with a per-call deadline. The connection's
// own configured read timeout is never touched, so there is nothing to
// restore afterwards.
func (e *Exchanger) ExchangeTimeout(cmd string, timeout time.Duration) (string, error) {
	logger.Protocol("TX", cmd)

	if _, err := e.conn.Write([]byte(cmd + "\n")); err != nil {
		return "", fmt.Errorf("write error: %v", err)
	}

	line, err := e.readLine(timeout)
	if err != nil {
		return "", err
	}

	resp := Sanitize(line)
	logger.Protocol("RX", resp)
	return resp, nil
}

// readLine accumulates bytes until a newline or the deadline. On timeout it
// returns whatever arrived so far, possibly nothing, with a nil error.
func (e *Exchanger) readLine(timeout time.Duration) ([]byte, error) {
	var line []byte
	buf := make([]byte, 256)
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		n, err := e.conn.Read(buf)
		for i := 0; i < n; i++ {
			line = append(line, buf[i])
			if buf[i] == '\n' {
				return line, nil
			}
		}
		if err != nil {
			return nil, fmt.Errorf("read error: %v", err)
		}
		if n == 0 {
			time.Sleep(readSlice)
		}
	}

	return line, nil
}

// Sanitize decodes a raw reply line: invalid UTF-8 byte sequences are
// replaced rather than rejected, then surrounding whitespace and line
// terminators are stripped.
func Sanitize(raw []byte) string {
	return strings.TrimSpace(strings.ToValidUTF8(string(raw), "�"))
}
