package output

import (
	"fmt"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

type Output interface {
	Publish([]sensor.Reading) error
	Close() error
}

// Line formats match the vendor's reference output, CRLF included.
const (
	magneticLineFormat    = "Magnetic field [mG]:%4.2f\t%4.2f\t%4.2f\r\n"
	temperatureLineFormat = "Temperature [degC]:%6.2f\r\n"
)

// FormatMagnetic renders the magnetic-field line for one reading.
func FormatMagnetic(r sensor.Reading) string {
	return fmt.Sprintf(magneticLineFormat, r.X, r.Y, r.Z)
}

// FormatTemperature renders the temperature line for one reading.
func FormatTemperature(r sensor.Reading) string {
	return fmt.Sprintf(temperatureLineFormat, r.Temperature)
}
