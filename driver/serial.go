package driver

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// readTimeout is the poll slice for Port.Read. Callers enforce their own
// response deadlines on top of it.
const readTimeout = 100 * time.Millisecond

// SerialPort wraps go.bug.st/serial for the physical UART link.
type SerialPort struct {
	serial.Port
	portName string
}

var _ Port = (*SerialPort)(nil)

// openSerialPort opens a physical serial port at baudRate, 8-N-1.
func openSerialPort(portName string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	// Set read timeout to prevent blocking forever
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %v", err)
	}

	return &SerialPort{Port: port, portName: portName}, nil
}

func (p *SerialPort) PortName() string {
	return p.portName
}

// Open opens a transport based on the port name:
//
//	"tcp://host:port" - TCP connection (mockdev or a serial-over-TCP bridge)
//	"mock"            - in-process mock device
//	anything else     - physical serial port ("COM3", "/dev/ttyUSB0", ...)
func Open(portName string, baudRate int) (Port, error) {
	if strings.HasPrefix(portName, "tcp://") {
		return openTCPPort(strings.TrimPrefix(portName, "tcp://"))
	}
	if portName == MockPortName {
		return NewMockPort(), nil
	}
	return openSerialPort(portName, baudRate)
}
