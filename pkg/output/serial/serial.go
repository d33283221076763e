package serial

import (
	"fmt"
	"io"

	"github.com/tarm/serial"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/output"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

const DefaultBaud = 115200

// SerialOutput writes the formatted sample lines over a UART, matching the
// vendor example's COM-port stream. Transmission is one-way best-effort.
type SerialOutput struct {
	port io.WriteCloser
}

func NewSerial(cfg config.SerialConfig) (output.Output, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial output: port not configured")
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: cfg.Port, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port: %w", err)
	}
	return &SerialOutput{port: port}, nil
}

func (s *SerialOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		if _, err := io.WriteString(s.port, output.FormatMagnetic(r)); err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		if _, err := io.WriteString(s.port, output.FormatTemperature(r)); err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
	}
	return nil
}

func (s *SerialOutput) Close() error {
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}
