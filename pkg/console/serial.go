package console

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate is the debug UART rate.
const DefaultBaudRate = 115200

// OpenSerial opens the debug console serial port.
func OpenSerial(port string, baudRate int) (io.ReadWriteCloser, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("console: failed to open serial port %s: %w", port, err)
	}
	return p, nil
}

// Ports lists the serial ports available on this host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("console: failed to list serial ports: %w", err)
	}
	return ports, nil
}
