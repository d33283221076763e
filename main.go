package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dbinev/lis2mdl-to-mqtt/pkg/config"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/lis2mdl"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/output"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/output/console"
	mqttout "github.com/dbinev/lis2mdl-to-mqtt/pkg/output/mqtt"
	serialout "github.com/dbinev/lis2mdl-to-mqtt/pkg/output/serial"
	"github.com/dbinev/lis2mdl-to-mqtt/pkg/sensor"
)

type outputEntry struct {
	out        output.Output
	intervalMs int
	last       time.Time
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.WithError(err).Fatal("load configuration")
	}
	setupLogging(cfg.LogLevel)

	log.WithFields(log.Fields{
		"bus":       cfg.I2CBus,
		"address":   fmt.Sprintf("%#02x", cfg.I2CAddress),
		"data_rate": cfg.DataRateHz,
		"sensor":    cfg.SensorType,
	}).Info("starting magnetometer daemon")

	s, err := newSensor(cfg)
	if err != nil {
		if errors.Is(err, lis2mdl.ErrDeviceNotFound) {
			log.WithError(err).Fatal("magnetometer not detected; check wiring and address")
		}
		log.WithError(err).Fatal("sensor bring-up")
	}
	defer s.Close()

	entries, err := initOutputs(cfg)
	if err != nil {
		log.WithError(err).Fatal("init outputs")
	}
	defer func() {
		for _, e := range entries {
			if err := e.out.Close(); err != nil {
				log.WithError(err).Warn("close output")
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run(ctx, s, entries, pollInterval(cfg))
	log.Info("shutting down")
}

func setupLogging(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// run polls the sensor until the context is cancelled. A read error aborts
// the cycle and is logged; the next tick retries.
func run(ctx context.Context, s sensor.Sensor, entries []*outputEntry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			readings, err := s.Read()
			if err != nil {
				log.WithError(err).Error("read sample")
				continue
			}
			if len(readings) == 0 {
				continue
			}
			publish(entries, readings, time.Now())
		}
	}
}

// publish fans readings out to every output whose own interval has elapsed.
func publish(entries []*outputEntry, readings []sensor.Reading, now time.Time) {
	for _, e := range entries {
		if e.intervalMs > 0 && now.Sub(e.last) < time.Duration(e.intervalMs)*time.Millisecond {
			continue
		}
		if err := e.out.Publish(readings); err != nil {
			log.WithError(err).Error("publish readings")
			continue
		}
		e.last = now
	}
}

// pollInterval derives the poll period from the configured interval, or from
// the output data rate when unset, sampling twice per conversion so no
// data-ready window is missed.
func pollInterval(cfg config.Config) time.Duration {
	if cfg.IntervalMs > 0 {
		return time.Duration(cfg.IntervalMs) * time.Millisecond
	}
	rate := cfg.DataRateHz
	if rate <= 0 {
		rate = 10
	}
	interval := time.Second / time.Duration(rate*2)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return interval
}

func newSensor(cfg config.Config) (sensor.Sensor, error) {
	switch cfg.SensorType {
	case "simulation":
		return sensor.NewFakeSensor(cfg)
	default:
		return sensor.NewLIS2MDLSensor(cfg)
	}
}

func initOutputs(cfg config.Config) ([]*outputEntry, error) {
	entries := make([]*outputEntry, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		var (
			out output.Output
			err error
		)
		switch oc.Type {
		case "console":
			out = console.NewConsole()
		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			out, err = mqttout.NewMQTT(mc)
		case "serial":
			sc := config.SerialConfig{}
			if oc.Serial != nil {
				sc = *oc.Serial
			}
			out, err = serialout.NewSerial(sc)
		default:
			return nil, fmt.Errorf("unknown output type %q", oc.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", oc.Type, err)
		}
		entries = append(entries, &outputEntry{out: out, intervalMs: oc.IntervalMs})
	}
	return entries, nil
}
