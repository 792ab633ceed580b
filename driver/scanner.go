package driver

import (
	"runtime"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"uartref/logger"
	"uartref/protocol"
)

const probeTimeout = 500 * time.Millisecond

// ListPortDetails returns detailed information about the attached serial
// ports (VID/PID, serial number) for the --list output.
func ListPortDetails() ([]*enumerator.PortDetails, error) {
	return enumerator.GetDetailedPortsList()
}

// CandidatePorts lists the ports worth probing for the device: attached
// serial ports filtered by OS conventions, plus the mockdev TCP endpoint
// used during development.
func CandidatePorts() []string {
	var ports []string

	hwPorts, err := serial.GetPortsList()
	if err != nil {
		logger.Error("Failed to list serial ports: %v", err)
	} else {
		ports = append(ports, hwPorts...)
	}

	// Mock device TCP endpoint (for development)
	ports = append(ports, "tcp://localhost:9999")

	return filterPorts(ports)
}

// filterPorts filters and deduplicates port names based on OS conventions.
func filterPorts(ports []string) []string {
	var filtered []string
	seen := make(map[string]bool)

	for _, port := range ports {
		if seen[port] {
			continue
		}
		seen[port] = true

		// Always include TCP endpoints
		if strings.HasPrefix(port, "tcp://") {
			filtered = append(filtered, port)
			continue
		}

		// Windows: COM ports
		if runtime.GOOS == "windows" {
			if strings.HasPrefix(strings.ToUpper(port), "COM") {
				filtered = append(filtered, port)
			}
			continue
		}

		// macOS/Linux: filter by name
		lower := strings.ToLower(port)
		if strings.Contains(lower, "bluetooth") {
			continue
		}

		if strings.Contains(lower, "ttyusb") ||
			strings.Contains(lower, "ttyacm") ||
			strings.Contains(lower, "usbserial") ||
			strings.Contains(lower, "cu.") ||
			strings.Contains(lower, "ttys") {
			filtered = append(filtered, port)
		}
	}

	return filtered
}

// Probe opens a port and performs a PING handshake to check whether the
// UART reference device is listening on it.
func Probe(portName string, baudRate int) bool {
	port, err := Open(portName, baudRate)
	if err != nil {
		logger.Debug("Failed to open %s: %v", portName, err)
		return false
	}
	defer port.Close()

	// Drop the boot banner and anything else already buffered.
	time.Sleep(100 * time.Millisecond)
	port.ResetInputBuffer()

	ex := protocol.NewExchanger(port, probeTimeout)
	resp, err := ex.Exchange(protocol.CmdPing)
	if err != nil {
		logger.Debug("Probe write failed on %s: %v", portName, err)
		return false
	}
	if resp != protocol.RespPong {
		logger.Debug("No PONG from %s (got %q)", portName, resp)
		return false
	}

	logger.Info("Device found on %s", portName)
	return true
}

// Scan probes all candidate ports and returns the first one answering the
// PING handshake.
func Scan(baudRate int) (string, bool) {
	candidates := CandidatePorts()
	if len(candidates) == 0 {
		logger.Info("No candidate ports found")
		return "", false
	}

	logger.Debug("Found %d candidate ports: %v", len(candidates), candidates)

	for _, portName := range candidates {
		if Probe(portName, baudRate) {
			return portName, true
		}
	}
	return "", false
}
