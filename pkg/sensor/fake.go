package sensor

import (
	"math/rand"
	"sync"
	"time"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/lis2mdl"
)

// FakeSensor synthesizes plausible field and temperature samples for runs
// without hardware. The configured hard-iron offset is subtracted from the
// raw counts the way the device's offset cancellation would.
type FakeSensor struct {
	offset [3]int16
	mu     sync.Mutex
}

func NewFakeSensor(cfg config.Config) (Sensor, error) {
	return &FakeSensor{offset: [3]int16{cfg.Offset.X, cfg.Offset.Y, cfg.Offset.Z}}, nil
}

func (f *FakeSensor) Read() ([]Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// earth field is a few hundred mG; jitter around that
	raw := [3]int16{
		int16(200 + rand.Intn(100)),
		int16(-150 + rand.Intn(100)),
		int16(300 + rand.Intn(100)),
	}
	for i := range raw {
		raw[i] -= f.offset[i]
	}
	tRaw := int16(rand.Intn(40)) // 25.0 .. 30.0 degC

	r := Reading{
		RawX:           raw[0],
		RawY:           raw[1],
		RawZ:           raw[2],
		X:              lis2mdl.FromLSBToMilligauss(raw[0]),
		Y:              lis2mdl.FromLSBToMilligauss(raw[1]),
		Z:              lis2mdl.FromLSBToMilligauss(raw[2]),
		RawTemperature: tRaw,
		Temperature:    lis2mdl.FromLSBToCelsius(tRaw),
		Timestamp:      time.Now(),
	}
	return []Reading{r}, nil
}

func (f *FakeSensor) Close() error { return nil }
