package main

import (
	"testing"
	"time"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

func TestPollInterval(t *testing.T) {
	// explicit interval wins
	cfg := config.Config{IntervalMs: 250, DataRateHz: 100}
	if got := pollInterval(cfg); got != 250*time.Millisecond {
		t.Fatalf("explicit interval: got %v", got)
	}

	// derived from data rate: 10 Hz -> 50ms (poll twice per conversion)
	cfg = config.Config{DataRateHz: 10}
	if got := pollInterval(cfg); got != 50*time.Millisecond {
		t.Fatalf("10Hz interval: got %v", got)
	}

	// 100 Hz -> 5ms
	cfg = config.Config{DataRateHz: 100}
	if got := pollInterval(cfg); got != 5*time.Millisecond {
		t.Fatalf("100Hz interval: got %v", got)
	}

	// zero rate falls back to 10 Hz
	cfg = config.Config{}
	if got := pollInterval(cfg); got != 50*time.Millisecond {
		t.Fatalf("fallback interval: got %v", got)
	}
}

func TestInitOutputsConsole(t *testing.T) {
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "console", IntervalMs: 123}}}
	entries, err := initOutputs(cfg)
	if err != nil {
		t.Fatalf("initOutputs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries len: %d", len(entries))
	}
	if entries[0].intervalMs != 123 {
		t.Fatalf("entry interval not set, got %d", entries[0].intervalMs)
	}
}

func TestInitOutputsUnknownType(t *testing.T) {
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "carrier-pigeon"}}}
	if _, err := initOutputs(cfg); err == nil {
		t.Fatalf("expected error for unknown output type")
	}
}

type countingOutput struct {
	publishes int
}

func (c *countingOutput) Publish([]sensor.Reading) error {
	c.publishes++
	return nil
}

func (c *countingOutput) Close() error { return nil }

func TestPublishHonorsPerOutputInterval(t *testing.T) {
	fast := &countingOutput{}
	slow := &countingOutput{}
	entries := []*outputEntry{
		{out: fast},
		{out: slow, intervalMs: 1000},
	}
	readings := []sensor.Reading{{X: 1}}

	base := time.Now()
	publish(entries, readings, base)
	publish(entries, readings, base.Add(10*time.Millisecond))
	publish(entries, readings, base.Add(1100*time.Millisecond))

	if fast.publishes != 3 {
		t.Fatalf("unthrottled output publishes: %d", fast.publishes)
	}
	if slow.publishes != 2 {
		t.Fatalf("throttled output publishes: %d", slow.publishes)
	}
}

func TestNewSensorSimulation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SensorType = "simulation"
	s, err := newSensor(cfg)
	if err != nil {
		t.Fatalf("newSensor: %v", err)
	}
	defer s.Close()
	readings, err := s.Read()
	if err != nil || len(readings) != 1 {
		t.Fatalf("simulation read: %v %v", readings, err)
	}
}
