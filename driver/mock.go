package driver

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"uartref/protocol"
)

// MockPortName opens the in-process mock device via Open.
const MockPortName = "mock"

// Handler produces the device's reply for one received command line.
// Returning an empty string suppresses the reply (the command times out on
// the client side).
type Handler func(cmd string) string

// Device emulates the firmware's command interpreter: a line accumulator
// capped at protocol.MaxLineLen that silently drops oversized lines, and a
// command table answering PING, VERSION and UPTIME. It backs both MockPort
// and the standalone mockdev simulator.
type Device struct {
	handler Handler
	line    []byte
	started time.Time
}

// NewDevice creates a device simulator. A nil handler selects the built-in
// firmware command table.
func NewDevice(handler Handler) *Device {
	d := &Device{started: time.Now()}
	if handler == nil {
		handler = d.handle
	}
	d.handler = handler
	return d
}

// Greeting is the line the device emits once after power-up.
func (d *Device) Greeting() string {
	return protocol.BootBanner + "\n"
}

// Uptime returns milliseconds since the device started.
func (d *Device) Uptime() int64 {
	return time.Since(d.started).Milliseconds()
}

// Feed consumes raw input bytes and returns the newline-terminated replies
// produced by any completed command lines. Carriage returns are ignored.
// When the accumulator overflows, the pending line is dropped and
// accumulation restarts, mirroring the firmware's overflow policy.
func (d *Device) Feed(p []byte) []string {
	var replies []string

	for _, c := range p {
		if c == '\r' {
			continue
		}
		if c == '\n' {
			reply := d.handler(string(d.line))
			d.line = nil
			if reply != "" {
				replies = append(replies, reply+"\n")
			}
			continue
		}
		if len(d.line) < protocol.MaxLineLen-1 {
			d.line = append(d.line, c)
		} else {
			// Overflow: drop line and reset.
			d.line = nil
		}
	}

	return replies
}

func (d *Device) handle(cmd string) string {
	switch cmd {
	case protocol.CmdPing:
		return protocol.RespPong
	case protocol.CmdVersion:
		return protocol.RespVersion
	case protocol.CmdUptime:
		return fmt.Sprintf("%s %d", protocol.UptimePrefix, d.Uptime())
	}
	return protocol.RespUnknown
}

// MockPort is an in-memory Port backed by a Device. Commands written to it
// are answered synchronously into the read buffer.
type MockPort struct {
	mu      sync.Mutex
	dev     *Device
	readBuf bytes.Buffer
	closed  bool
}

var _ Port = (*MockPort)(nil)

// NewMockPort opens a mock device running the firmware command table. The
// boot banner is already waiting in the read buffer, as it would be on a
// freshly reset board.
func NewMockPort() *MockPort {
	return NewMockPortWithHandler(nil)
}

// NewMockPortWithHandler opens a mock device with a custom command handler.
func NewMockPortWithHandler(handler Handler) *MockPort {
	m := &MockPort{dev: NewDevice(handler)}
	m.readBuf.WriteString(m.dev.Greeting())
	return m
}

func (m *MockPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.EOF
	}
	if m.readBuf.Len() == 0 {
		return 0, nil
	}
	return m.readBuf.Read(p)
}

func (m *MockPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, io.ErrClosedPipe
	}
	for _, reply := range m.dev.Feed(p) {
		m.readBuf.WriteString(reply)
	}
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockPort) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readBuf.Reset()
	return nil
}
