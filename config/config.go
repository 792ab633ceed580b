package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"
)

// Config carries the CLI options of the test harness.
type Config struct {
	Port    string        // Serial port name (e.g. COM3, /dev/ttyUSB0, tcp://host:port, mock)
	Baud    int           // Baud rate
	Timeout time.Duration // Default response timeout
	Stress  bool          // Run the stress test
	Count   int           // Stress test iterations
	All     bool          // Run all tests including stress
	List    bool          // List serial ports and exit
	Scan    bool          // Probe candidate ports for the device
	WSAddr  string        // Serve live test events on this address ("" = off)
	LogDir  string        // Protocol log directory ("" = off)
}

const testUsage = `Usage: uarttest <port> [--baud N] [--timeout S] [--stress] [--count N] [--all]
               [--list] [--scan] [--ws ADDR] [--log DIR]

Test UART communication with the ESP32 reference device.

  <port>  serial port (e.g. /dev/ttyUSB0, COM3), tcp://host:port, or "mock"
`

// ParseTest parses the harness command line. The port argument may come
// first so flags can follow it, matching the original tool's calling
// convention. Errors are already reported on errOut.
func ParseTest(args []string, errOut io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("uarttest", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprint(errOut, testUsage)
		fs.PrintDefaults()
	}

	cfg := &Config{}

	// Accept the positional port before the flags, since stdlib flag stops
	// parsing at the first non-flag argument.
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.Port = args[0]
		args = args[1:]
	}

	fs.IntVar(&cfg.Baud, "baud", 115200, "baud rate")
	timeout := fs.Float64("timeout", 1.0, "response timeout in seconds")
	fs.BoolVar(&cfg.Stress, "stress", false, "run stress test")
	fs.IntVar(&cfg.Count, "count", 100, "number of stress test iterations")
	fs.BoolVar(&cfg.All, "all", false, "run all tests including stress")
	fs.BoolVar(&cfg.List, "list", false, "list available serial ports and exit")
	fs.BoolVar(&cfg.Scan, "scan", false, "probe candidate ports for the device")
	fs.StringVar(&cfg.WSAddr, "ws", "", "serve live test events on this websocket address")
	fs.StringVar(&cfg.LogDir, "log", "", "write protocol logs to this directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port == "" && fs.NArg() > 0 {
		cfg.Port = fs.Arg(0)
	}
	if cfg.Port == "" && !cfg.List && !cfg.Scan {
		fs.Usage()
		return nil, fmt.Errorf("missing required port argument")
	}

	if *timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive")
	}
	cfg.Timeout = time.Duration(*timeout * float64(time.Second))

	if cfg.Count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}

	return cfg, nil
}
