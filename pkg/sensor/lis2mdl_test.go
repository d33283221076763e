package sensor

import (
	"testing"
	"time"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/lis2mdl"
)

// fakeBus emulates just enough of the device register file for bring-up and
// polling: identity, self-clearing soft reset, status, and the output
// registers. Data reads are counted to verify poll gating.
type fakeBus struct {
	regs        map[uint8]uint8
	magReads    int
	tempReads   int
	statusReads int
}

func newFakeBus() *fakeBus {
	return &fakeBus{regs: map[uint8]uint8{0x4F: 0x40}}
}

func (f *fakeBus) WriteReg(reg uint8, p []byte) error {
	for i, b := range p {
		f.regs[reg+uint8(i)] = b
	}
	if reg == 0x60 {
		f.regs[0x60] &^= 0x20 // soft reset completes immediately
	}
	return nil
}

func (f *fakeBus) ReadReg(reg uint8, p []byte) error {
	switch reg {
	case 0x67:
		f.statusReads++
	case 0x68:
		f.magReads++
	case 0x6E:
		f.tempReads++
	}
	for i := range p {
		p[i] = f.regs[reg+uint8(i)]
	}
	return nil
}

func newTestSensor(t *testing.T, bus *fakeBus) *LIS2MDLSensor {
	t.Helper()
	dev, err := lis2mdl.New(bus, lis2mdl.Opts{BootWait: time.Millisecond, ResetTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("bring-up: %v", err)
	}
	return &LIS2MDLSensor{dev: dev}
}

func TestReadNotReadyTouchesNoDataRegisters(t *testing.T) {
	bus := newFakeBus()
	s := newTestSensor(t, bus)

	readings, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(readings) != 0 {
		t.Fatalf("readings without data ready: %+v", readings)
	}
	if bus.statusReads != 1 {
		t.Fatalf("status reads: %d", bus.statusReads)
	}
	if bus.magReads != 0 || bus.tempReads != 0 {
		t.Fatalf("data registers read while not ready: mag=%d temp=%d", bus.magReads, bus.tempReads)
	}
}

func TestReadReadyReturnsConvertedSample(t *testing.T) {
	bus := newFakeBus()
	s := newTestSensor(t, bus)

	bus.regs[0x67] = 0x08 // Zyxda
	// X = 100, Y = -200, Z = 0
	bus.regs[0x68] = 0x64
	bus.regs[0x69] = 0x00
	bus.regs[0x6A] = 0x38
	bus.regs[0x6B] = 0xFF
	bus.regs[0x6C] = 0x00
	bus.regs[0x6D] = 0x00
	// temperature raw = 80 -> 35 degC
	bus.regs[0x6E] = 0x50
	bus.regs[0x6F] = 0x00

	readings, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("readings: %+v", readings)
	}
	if bus.magReads != 1 || bus.tempReads != 1 {
		t.Fatalf("expected one magnetic and one temperature read, got mag=%d temp=%d", bus.magReads, bus.tempReads)
	}
	r := readings[0]
	if r.RawX != 100 || r.RawY != -200 || r.RawZ != 0 {
		t.Fatalf("raw sample: %+v", r)
	}
	if r.X != 150.0 || r.Y != -300.0 || r.Z != 0.0 {
		t.Fatalf("converted field: %+v", r)
	}
	if r.RawTemperature != 80 || r.Temperature != 35.0 {
		t.Fatalf("temperature: %+v", r)
	}
	if r.Timestamp.IsZero() {
		t.Fatalf("timestamp not set")
	}
}

func TestFakeSensorProducesOneReading(t *testing.T) {
	f := &FakeSensor{offset: [3]int16{10, 0, -10}}
	readings, err := f.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(readings) != 1 {
		t.Fatalf("readings: %+v", readings)
	}
	r := readings[0]
	if r.X != lis2mdl.FromLSBToMilligauss(r.RawX) {
		t.Fatalf("fake conversion mismatch: %+v", r)
	}
	if r.Temperature < 25.0 || r.Temperature > 30.0 {
		t.Fatalf("fake temperature out of range: %v", r.Temperature)
	}
}
