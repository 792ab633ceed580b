// Package harness runs the automated test battery against a UART reference
// device: basic command checks, an uptime sanity check, unknown-command and
// buffer-overflow probes, and an optional throughput stress test.
package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"uartref/driver"
	"uartref/logger"
	"uartref/protocol"
)

const (
	// DefaultSettleDelay gives the device time to finish booting after the
	// port opens, before the input buffer is discarded.
	DefaultSettleDelay = protocol.SettleDelay

	// stressTimeout is the tight per-exchange deadline of the stress test.
	stressTimeout = 100 * time.Millisecond

	// overflowTimeout is the extended deadline of the overflow probe.
	overflowTimeout = 2 * time.Second

	// overflowLen exceeds the device's line buffer (protocol.MaxLineLen).
	overflowLen = 300

	progressEvery = 100
)

// Result records the outcome of one test.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Summary is the final tally of a run.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// StressStats accumulates the throughput test's accounting.
type StressStats struct {
	Sent     int           `json:"sent"`
	Received int           `json:"received"`
	Errors   int           `json:"errors"`
	Elapsed  time.Duration `json:"-"`
	Rate     float64       `json:"rate"`
}

// Options configures a Tester.
type Options struct {
	Port    string
	Baud    int
	Timeout time.Duration

	// SettleDelay overrides DefaultSettleDelay; negative disables it.
	SettleDelay time.Duration

	// Open overrides driver.Open, mainly so tests can inject mock ports.
	Open func(port string, baud int) (driver.Port, error)

	// Out receives the terminal report; defaults to os.Stdout.
	Out io.Writer
}

// Tester owns the transport for the duration of a run and accumulates an
// immutable result list that Summary folds into the final tally.
type Tester struct {
	opts    Options
	rep     *Reporter
	port    driver.Port
	ex      *protocol.Exchanger
	state   RunState
	started time.Time
	results []Result
	onEvent EventFunc
}

// New creates a Tester. Zero-value options get the protocol defaults
// (115200 baud, 1s timeout).
func New(opts Options) *Tester {
	if opts.Baud <= 0 {
		opts.Baud = 115200
	}
	if opts.Timeout <= 0 {
		opts.Timeout = protocol.DefaultTimeout
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.Open == nil {
		opts.Open = driver.Open
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Tester{opts: opts, rep: NewReporter(opts.Out)}
}

// OnEvent registers a callback for the live event stream.
func (t *Tester) OnEvent(fn EventFunc) {
	t.onEvent = fn
}

// Reporter exposes the terminal reporter, for callers that print around
// the battery.
func (t *Tester) Reporter() *Reporter {
	return t.rep
}

// Connect opens the transport, waits for the device to settle and discards
// any buffered boot output so stale bytes cannot corrupt the first
// exchange. Failure to open is fatal for the run.
func (t *Tester) Connect() error {
	t.started = time.Now()
	t.setState(StateConnecting, "")

	port, err := t.opts.Open(t.opts.Port, t.opts.Baud)
	if err != nil {
		t.rep.Fail("Failed to open port: %v", err)
		t.setState(StateDisconnected, "")
		return err
	}
	t.port = port
	t.ex = protocol.NewExchanger(port, t.opts.Timeout)

	t.rep.Info("Connected to %s at %d baud", t.opts.Port, t.opts.Baud)
	logger.Info("Connected to %s at %d baud", t.opts.Port, t.opts.Baud)

	if t.opts.SettleDelay > 0 {
		time.Sleep(t.opts.SettleDelay)
	}
	t.port.ResetInputBuffer()

	t.setState(StateConnected, "")
	return nil
}

// Disconnect closes the transport if open. Idempotent, callable even if
// Connect never ran or failed.
func (t *Tester) Disconnect() {
	if t.port == nil {
		return
	}
	t.port.Close()
	t.port = nil
	t.ex = nil
	t.rep.Info("Disconnected")
	logger.Info("Disconnected")
	t.setState(StateDisconnected, "")
}

// record appends one result and reports it.
func (t *Tester) record(name string, passed bool, detail string) {
	res := Result{Name: name, Passed: passed, Detail: detail}
	t.results = append(t.results, res)
	t.emit(Event{Type: EventResult, Result: &res})
	if passed {
		t.rep.Pass("%s", detail)
	} else {
		t.rep.Fail("%s", detail)
	}
}

// TestBasicCommands checks the fixed command/response pairs for exact
// matches.
func (t *Tester) TestBasicCommands() {
	tests := []struct {
		cmd      string
		expected string
		desc     string
	}{
		{protocol.CmdPing, protocol.RespPong, "PING command"},
		{protocol.CmdVersion, protocol.RespVersion, "VERSION command"},
	}

	for _, tc := range tests {
		t.rep.Test(tc.desc)
		t.setState(StateRunning, tc.desc)

		resp, err := t.ex.Exchange(tc.cmd)
		if err == nil && resp == tc.expected {
			t.record(tc.desc, true, fmt.Sprintf("Got expected response: '%s'", resp))
			continue
		}
		got := resp
		if err != nil {
			got = err.Error()
		}
		t.record(tc.desc, false, fmt.Sprintf("Expected '%s', got '%s'", tc.expected, got))
	}
}

// TestUptime checks the UPTIME reply shape and that the reported value
// does not go backwards across two reads in one session.
func (t *Tester) TestUptime() {
	const name = "UPTIME command"
	t.rep.Test(name)
	t.setState(StateRunning, name)

	first, err := t.uptimeOnce()
	if err != nil {
		t.record(name, false, err.Error())
		return
	}
	second, err := t.uptimeOnce()
	if err != nil {
		t.record(name, false, err.Error())
		return
	}
	if second < first {
		t.record(name, false, fmt.Sprintf("Uptime went backwards: %d -> %d", first, second))
		return
	}
	t.record(name, true, fmt.Sprintf("Got uptime: %d ms (%.2f seconds)", second, float64(second)/1000))
}

func (t *Tester) uptimeOnce() (int64, error) {
	resp, err := t.ex.Exchange(protocol.CmdUptime)
	if err != nil {
		return 0, fmt.Errorf("exchange failed: %v", err)
	}
	ms, err := protocol.ParseUptime(resp)
	if err != nil {
		return 0, fmt.Errorf("Invalid uptime format: '%s'", resp)
	}
	return ms, nil
}

// TestUnknownCommand checks that the device rejects a command outside its
// command set with the exact error line.
func (t *Tester) TestUnknownCommand() {
	const name = "Unknown command handling"
	t.rep.Test(name)
	t.setState(StateRunning, name)

	resp, err := t.ex.Exchange("INVALID_COMMAND")
	if err == nil && resp == protocol.RespUnknown {
		t.record(name, true, fmt.Sprintf("Error handled correctly: '%s'", resp))
		return
	}
	got := resp
	if err != nil {
		got = err.Error()
	}
	t.record(name, false, fmt.Sprintf("Expected '%s', got '%s'", protocol.RespUnknown, got))
}

// TestBufferOverflow sends a command far longer than the device's line
// buffer. Every outcome counts as a pass: a reply means the device handled
// the input gracefully, a timeout means it dropped the line cleanly. The
// only requirement is that the transport stays usable afterwards.
func (t *Tester) TestBufferOverflow() {
	const name = "Buffer overflow handling"
	t.rep.Test(name)
	t.setState(StateRunning, name)

	longCmd := strings.Repeat("X", overflowLen)
	resp, err := t.ex.ExchangeTimeout(longCmd, overflowTimeout)

	switch {
	case err != nil:
		t.record(name, true, fmt.Sprintf("Transport error on long input: %v", err))
	case resp == "":
		t.record(name, true, "Long input caused timeout (expected behavior)")
	default:
		if len(resp) > 50 {
			resp = resp[:50] + "..."
		}
		t.record(name, true, fmt.Sprintf("Handled long input gracefully: '%s'", resp))
	}
}

// TestStress performs count sequential PING exchanges with a tight
// deadline and tallies throughput and errors. Pass policy: no errors, or
// an error ratio strictly below 1%. The context aborts the loop early
// without recording a result.
func (t *Tester) TestStress(ctx context.Context, count int) {
	name := fmt.Sprintf("Stress test (%d commands)", count)
	t.rep.Test(name)
	t.setState(StateRunning, name)

	var stats StressStats
	start := time.Now()

	for i := 0; i < count; i++ {
		select {
		case <-ctx.Done():
			t.rep.Info("Stress test aborted at %d/%d", i, count)
			return
		default:
		}

		resp, err := t.ex.ExchangeTimeout(protocol.CmdPing, stressTimeout)
		stats.Sent++
		if err == nil && resp == protocol.RespPong {
			stats.Received++
		} else {
			stats.Errors++
		}

		if (i+1)%progressEvery == 0 {
			t.rep.Info("Progress: %d/%d", i+1, count)
			t.emit(Event{Type: EventProgress, Progress: &StressProgress{Done: i + 1, Total: count}})
		}
	}

	stats.Elapsed = time.Since(start)
	stats.Rate = float64(count) / stats.Elapsed.Seconds()

	t.rep.Info("Sent: %d, Received: %d, Errors: %d", stats.Sent, stats.Received, stats.Errors)
	t.rep.Info("Time: %.2fs, Rate: %.2f cmd/s", stats.Elapsed.Seconds(), stats.Rate)

	ratio := float64(stats.Errors) / float64(count)
	switch {
	case stats.Errors == 0:
		t.record(name, true, "All commands successful")
	case ratio < 0.01:
		t.record(name, true, fmt.Sprintf("Acceptable error rate: %.2f%%", ratio*100))
	default:
		t.record(name, false, fmt.Sprintf("High error rate: %.2f%%", ratio*100))
	}
}

// Results returns a copy of the recorded results.
func (t *Tester) Results() []Result {
	out := make([]Result, len(t.results))
	copy(out, t.results)
	return out
}

// Summary folds the result list into the final tally.
func (t *Tester) Summary() Summary {
	s := Summary{Total: len(t.results)}
	for _, r := range t.results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// PrintSummary reports the tally and returns the process exit code: 0 when
// every recorded test passed, 1 otherwise.
func (t *Tester) PrintSummary() int {
	t.setState(StateDone, "")
	s := t.Summary()
	t.emit(Event{Type: EventSummary, Summary: &s})
	t.rep.Summary(s)
	if s.Failed == 0 {
		return 0
	}
	return 1
}
