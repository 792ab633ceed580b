package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uartref/driver"
	"uartref/protocol"
)

// newMockTester builds a Tester wired to an in-memory mock device. A nil
// handler runs the real firmware command table.
func newMockTester(handler driver.Handler) *Tester {
	return New(Options{
		Port:        "mock",
		Timeout:     100 * time.Millisecond,
		SettleDelay: -1,
		Open: func(string, int) (driver.Port, error) {
			return driver.NewMockPortWithHandler(handler), nil
		},
		Out: io.Discard,
	})
}

func runBattery(t *testing.T, tester *Tester) {
	t.Helper()
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestBasicCommands()
	tester.TestUptime()
	tester.TestUnknownCommand()
	tester.TestBufferOverflow()
}

func TestBatteryAllPass(t *testing.T) {
	tester := newMockTester(nil)
	runBattery(t, tester)

	s := tester.Summary()
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 5, s.Passed)
	assert.Zero(t, s.Failed)
	assert.Equal(t, 0, tester.PrintSummary())

	names := make([]string, 0, s.Total)
	for _, r := range tester.Results() {
		names = append(names, r.Name)
		assert.True(t, r.Passed, "%s: %s", r.Name, r.Detail)
	}
	assert.Equal(t, []string{
		"PING command",
		"VERSION command",
		"UPTIME command",
		"Unknown command handling",
		"Buffer overflow handling",
	}, names)
}

func TestSummaryInvariant(t *testing.T) {
	tester := newMockTester(func(cmd string) string {
		// Half-broken device: PING works, everything else is garbage.
		if cmd == protocol.CmdPing {
			return protocol.RespPong
		}
		return "GARBAGE"
	})
	runBattery(t, tester)

	s := tester.Summary()
	assert.Equal(t, s.Total, s.Passed+s.Failed)
	assert.Equal(t, 1, tester.PrintSummary())
}

func TestBasicCommandMismatch(t *testing.T) {
	tester := newMockTester(func(cmd string) string {
		if cmd == protocol.CmdPing {
			return protocol.RespPong
		}
		return "WRONG_FW v9"
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestBasicCommands()

	results := tester.Results()
	require.Len(t, results, 2)
	assert.True(t, results[0].Passed)
	assert.False(t, results[1].Passed)
	assert.Contains(t, results[1].Detail, "Expected 'ESP32S3_UART_REF v1'")
}

func TestUptimeMalformed(t *testing.T) {
	tester := newMockTester(func(cmd string) string {
		return "UPTIME_MS soon"
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestUptime()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Detail, "Invalid uptime format")
}

func TestUptimeBackwards(t *testing.T) {
	values := []int64{5000, 100}
	tester := newMockTester(func(cmd string) string {
		v := values[0]
		if len(values) > 1 {
			values = values[1:]
		}
		return fmt.Sprintf("%s %d", protocol.UptimePrefix, v)
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestUptime()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Detail, "backwards")
}

func TestUnknownCommandWrongReply(t *testing.T) {
	tester := newMockTester(func(cmd string) string {
		return "OK"
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestUnknownCommand()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
}

func TestBufferOverflowPassesOnReply(t *testing.T) {
	tester := newMockTester(nil)
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestBufferOverflow()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Contains(t, results[0].Detail, "gracefully")
}

func TestBufferOverflowPassesOnTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the extended overflow timeout")
	}
	tester := newMockTester(func(cmd string) string { return "" })
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestBufferOverflow()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Contains(t, results[0].Detail, "timeout")
}

// failPort errors on write so the transport-error branch of the overflow
// probe can be exercised without waiting for a timeout.
type failPort struct{}

func (failPort) Read(p []byte) (int, error)  { return 0, nil }
func (failPort) Write(p []byte) (int, error) { return 0, errors.New("cable yanked") }
func (failPort) Close() error                { return nil }
func (failPort) ResetInputBuffer() error     { return nil }

func TestBufferOverflowPassesOnTransportError(t *testing.T) {
	tester := New(Options{
		Port:        "mock",
		Timeout:     100 * time.Millisecond,
		SettleDelay: -1,
		Open:        func(string, int) (driver.Port, error) { return failPort{}, nil },
		Out:         io.Discard,
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestBufferOverflow()

	results := tester.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed, "the overflow probe passes on every branch")
}

func TestStressAllSuccess(t *testing.T) {
	tester := newMockTester(nil)
	var progress []StressProgress
	tester.OnEvent(func(ev Event) {
		if ev.Type == EventProgress {
			progress = append(progress, *ev.Progress)
		}
	})
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestStress(context.Background(), 250)

	results := tester.Results()
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
	assert.Equal(t, "All commands successful", results[0].Detail)
	assert.Equal(t, []StressProgress{{Done: 100, Total: 250}, {Done: 200, Total: 250}}, progress)
}

func TestStressHighErrorRate(t *testing.T) {
	tester := newMockTester(func(cmd string) string { return "" })
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	tester.TestStress(context.Background(), 3)

	results := tester.Results()
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed)
	assert.Contains(t, results[0].Detail, "High error rate")
}

func TestStressAbortedRecordsNothing(t *testing.T) {
	tester := newMockTester(nil)
	require.NoError(t, tester.Connect())
	defer tester.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tester.TestStress(ctx, 100)

	assert.Zero(t, tester.Summary().Total)
}

func TestConnectFailure(t *testing.T) {
	tester := New(Options{
		Port: "/dev/nonexistent",
		Open: func(string, int) (driver.Port, error) {
			return nil, errors.New("no such port")
		},
		Out: io.Discard,
	})

	require.Error(t, tester.Connect())
	tester.Disconnect() // must be safe even though Connect failed
}

func TestDisconnectIdempotent(t *testing.T) {
	tester := newMockTester(nil)
	tester.Disconnect() // never connected

	require.NoError(t, tester.Connect())
	tester.Disconnect()
	tester.Disconnect()
}

func TestEventStream(t *testing.T) {
	tester := newMockTester(nil)
	var types []string
	tester.OnEvent(func(ev Event) { types = append(types, ev.Type) })

	require.NoError(t, tester.Connect())
	tester.TestUnknownCommand()
	tester.Disconnect()
	tester.PrintSummary()

	assert.Contains(t, types, EventStatus)
	assert.Contains(t, types, EventResult)
	assert.Contains(t, types, EventSummary)
}
