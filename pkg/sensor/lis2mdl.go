package sensor

import (
	"fmt"
	"time"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/lis2mdl"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

type LIS2MDLSensor struct {
	dev *lis2mdl.Dev
	bus i2c.BusCloser
}

// NewLIS2MDLSensor opens the configured I2C bus and runs the full bring-up
// sequence. A wrong or absent device surfaces as lis2mdl.ErrDeviceNotFound.
func NewLIS2MDLSensor(cfg config.Config) (Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}
	conn := lis2mdl.NewI2CConn(&i2c.Dev{Addr: uint16(cfg.I2CAddress), Bus: bus})
	dev, err := lis2mdl.New(conn, optsFromConfig(cfg))
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	return &LIS2MDLSensor{dev: dev, bus: bus}, nil
}

func (s *LIS2MDLSensor) Close() error {
	if s.bus != nil {
		return s.bus.Close()
	}
	return nil
}

// Read checks the data-ready flag once. When clear it returns no readings
// and touches no output register; when set it performs one six-byte magnetic
// read and one two-byte temperature read and converts both to physical
// units.
func (s *LIS2MDLSensor) Read() ([]Reading, error) {
	ready, err := s.dev.DataReady()
	if err != nil {
		return nil, fmt.Errorf("data ready: %w", err)
	}
	if !ready {
		return nil, nil
	}
	x, y, z, err := s.dev.MagneticRaw()
	if err != nil {
		return nil, fmt.Errorf("read magnetic: %w", err)
	}
	tRaw, err := s.dev.TemperatureRaw()
	if err != nil {
		return nil, fmt.Errorf("read temperature: %w", err)
	}
	r := Reading{
		RawX:           x,
		RawY:           y,
		RawZ:           z,
		X:              lis2mdl.FromLSBToMilligauss(x),
		Y:              lis2mdl.FromLSBToMilligauss(y),
		Z:              lis2mdl.FromLSBToMilligauss(z),
		RawTemperature: tRaw,
		Temperature:    lis2mdl.FromLSBToCelsius(tRaw),
		Timestamp:      time.Now(),
	}
	return []Reading{r}, nil
}
