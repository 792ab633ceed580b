// uarttest runs the automated test battery against the ESP32 UART
// reference device.
//
// Usage:
//
//	uarttest /dev/ttyUSB0
//	uarttest COM3 --baud 115200
//	uarttest /dev/ttyUSB0 --stress --count 1000
//	uarttest --scan --all
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"uartref/api"
	"uartref/config"
	"uartref/driver"
	"uartref/harness"
	"uartref/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.ParseTest(args, os.Stderr)
	if err != nil {
		return 1
	}

	if cfg.LogDir != "" {
		if err := logger.Init(cfg.LogDir); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
			return 1
		}
		defer logger.Close()
	}

	if cfg.List {
		return listPorts()
	}

	tester := harness.New(harness.Options{
		Port:    cfg.Port,
		Baud:    cfg.Baud,
		Timeout: cfg.Timeout,
	})
	rep := tester.Reporter()
	rep.Banner("ESP32 UART Reference - Test Suite")

	if cfg.Port == "" && cfg.Scan {
		rep.Info("Scanning for device...")
		name, ok := driver.Scan(cfg.Baud)
		if !ok {
			rep.Fail("No device found on any candidate port")
			return 1
		}
		rep.Info("Device found on %s", name)
		cfg.Port = name
		tester = harness.New(harness.Options{
			Port:    cfg.Port,
			Baud:    cfg.Baud,
			Timeout: cfg.Timeout,
		})
		rep = tester.Reporter()
	}

	if cfg.WSAddr != "" {
		hub := api.NewHub()
		tester.OnEvent(hub.Publish)
		go func() {
			if err := api.Serve(cfg.WSAddr, hub); err != nil {
				logger.Error("Event stream server stopped: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tester.Connect(); err != nil {
		return 1
	}
	defer tester.Disconnect()

	steps := []func(){
		tester.TestBasicCommands,
		tester.TestUptime,
		tester.TestUnknownCommand,
		tester.TestBufferOverflow,
	}
	if cfg.Stress || cfg.All {
		count := cfg.Count
		steps = append(steps, func() { tester.TestStress(ctx, count) })
	}

	for _, step := range steps {
		select {
		case <-ctx.Done():
			rep.Info("Test interrupted by user")
			return finish(tester)
		default:
		}
		step()
	}

	return finish(tester)
}

// finish disconnects before the summary so the report mirrors the actual
// teardown order even on the interrupt path.
func finish(tester *harness.Tester) int {
	tester.Disconnect()
	return tester.PrintSummary()
}

func listPorts() int {
	details, err := driver.ListPortDetails()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate ports: %v\n", err)
		return 1
	}
	if len(details) == 0 {
		fmt.Println("No serial ports found")
		return 0
	}
	for _, d := range details {
		if d.IsUSB {
			fmt.Printf("%s\tUSB %s:%s", d.Name, d.VID, d.PID)
			if d.SerialNumber != "" {
				fmt.Printf(" (SN %s)", d.SerialNumber)
			}
			fmt.Println()
		} else {
			fmt.Println(d.Name)
		}
	}
	return 0
}
