package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	Server            string `json:"server" yaml:"server"`
	Username          string `json:"username" yaml:"username"`
	Password          string `json:"password" yaml:"password"`
	ClientID          string `json:"client_id" yaml:"client_id"`
	StateTopic        string `json:"state_topic" yaml:"state_topic"`
	DiscoveryTopic    string `json:"discovery_topic,omitempty" yaml:"discovery_topic,omitempty"`
	DiscoveryName     string `json:"discovery_name,omitempty" yaml:"discovery_name,omitempty"`
	DiscoveryUniqueID string `json:"discovery_unique_id,omitempty" yaml:"discovery_unique_id,omitempty"`
}

type SerialConfig struct {
	Port string `json:"port" yaml:"port"`
	Baud int    `json:"baud" yaml:"baud"`
}

type OutputConfig struct {
	Type       string        `json:"type" yaml:"type"`
	IntervalMs int           `json:"interval_ms,omitempty" yaml:"interval_ms,omitempty"`
	MQTT       *MQTTConfig   `json:"mqtt,omitempty" yaml:"mqtt,omitempty"`
	Serial     *SerialConfig `json:"serial,omitempty" yaml:"serial,omitempty"`
}

// OffsetConfig is the hard-iron correction in raw sensor counts per axis,
// produced by an external calibration pass.
type OffsetConfig struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
	Z int16 `json:"z" yaml:"z"`
}

type Config struct {
	I2CBus             string         `json:"i2c_bus" yaml:"i2c_bus"`
	I2CAddress         int            `json:"i2c_address" yaml:"i2c_address"`
	DataRateHz         int            `json:"data_rate_hz" yaml:"data_rate_hz"`
	Offset             OffsetConfig   `json:"offset" yaml:"offset"`
	OffsetCancellation bool           `json:"offset_cancellation" yaml:"offset_cancellation"`
	TempCompensation   bool           `json:"temp_compensation" yaml:"temp_compensation"`
	BootDelayMs        int            `json:"boot_delay_ms" yaml:"boot_delay_ms"`
	ResetTimeoutMs     int            `json:"reset_timeout_ms" yaml:"reset_timeout_ms"`
	SensorType         string         `json:"sensor_type" yaml:"sensor_type"`
	IntervalMs         int            `json:"interval_ms" yaml:"interval_ms"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
	Outputs            []OutputConfig `json:"outputs" yaml:"outputs"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:             "1",
		I2CAddress:         0x1E,
		DataRateHz:         10,
		OffsetCancellation: true,
		TempCompensation:   true,
		BootDelayMs:        20,
		ResetTimeoutMs:     100,
		SensorType:         "real",
		LogLevel:           "info",
		Outputs:            []OutputConfig{{Type: "console"}},
	}
}

// LoadFromFlags loads configuration from a JSON or YAML file (optional) and
// flags. Flags override values present in the file.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON or YAML config file")
	flagI2CBus := flag.String("i2c-bus", "", "I2C bus (e.g., '1' -> /dev/i2c-1)")
	flagI2CAddStr := flag.String("i2c-address", "", "I2C address (decimal or 0x hex)")
	flagDataRate := flag.Int("data-rate", -1, "Output data rate in Hz (10, 20, 50, 100)")
	flagOffsetX := flag.Int("offset-x", 0, "Hard-iron offset X (raw counts)")
	flagOffsetY := flag.Int("offset-y", 0, "Hard-iron offset Y (raw counts)")
	flagOffsetZ := flag.Int("offset-z", 0, "Hard-iron offset Z (raw counts)")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (console,mqtt,serial)")
	flagOutputIntervals := flag.String("output-intervals", "", "Comma-separated output intervals e.g. console=1000,mqtt=5000")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := flag.String("mqtt-topic", "", "MQTT state topic")
	flagSerialPort := flag.String("serial-port", "", "Serial output port (e.g. /dev/ttyUSB0)")
	flagSerialBaud := flag.Int("serial-baud", -1, "Serial output baud rate")
	flagSensorType := flag.String("sensor-type", "", "sensor type: real|simulation")
	flagInterval := flag.Int("interval-ms", -1, "Poll interval in ms (0 derives from data rate)")
	flagLogLevel := flag.String("log-level", "", "log level: debug|info|warn|error")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		if err := loadFile(*cfgPath, &cfg); err != nil {
			return cfg, err
		}
	}

	if *flagI2CBus != "" {
		cfg.I2CBus = *flagI2CBus
	}
	if *flagI2CAddStr != "" {
		v, err := parseIntOrHex(*flagI2CAddStr)
		if err != nil {
			return cfg, fmt.Errorf("i2c-address: %w", err)
		}
		cfg.I2CAddress = v
	}
	if *flagDataRate != -1 {
		cfg.DataRateHz = *flagDataRate
	}
	if *flagOffsetX != 0 {
		cfg.Offset.X = int16(*flagOffsetX)
	}
	if *flagOffsetY != 0 {
		cfg.Offset.Y = int16(*flagOffsetY)
	}
	if *flagOffsetZ != 0 {
		cfg.Offset.Z = int16(*flagOffsetZ)
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p})
		}
		cfg.Outputs = outs
	}
	if *flagOutputIntervals != "" {
		intervals := parseKeyIntMap(*flagOutputIntervals)
		for i := range cfg.Outputs {
			if v, ok := intervals[cfg.Outputs[i].Type]; ok {
				cfg.Outputs[i].IntervalMs = v
			}
		}
	}
	applyMQTTFlags(&cfg, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
	applySerialFlags(&cfg, *flagSerialPort, *flagSerialBaud)
	if *flagSensorType != "" {
		cfg.SensorType = *flagSensorType
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagLogLevel != "" {
		cfg.LogLevel = *flagLogLevel
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the device cannot be configured with.
func Validate(cfg Config) error {
	switch cfg.DataRateHz {
	case 10, 20, 50, 100:
	default:
		return fmt.Errorf("data rate %d Hz not supported (10, 20, 50, 100)", cfg.DataRateHz)
	}
	if cfg.I2CAddress <= 0 || cfg.I2CAddress > 0x7F {
		return fmt.Errorf("invalid i2c address %#x", cfg.I2CAddress)
	}
	switch cfg.SensorType {
	case "real", "simulation":
	default:
		return fmt.Errorf("unknown sensor type %q", cfg.SensorType)
	}
	if len(cfg.Outputs) == 0 {
		return fmt.Errorf("at least one output required")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(b, cfg); err != nil {
			return fmt.Errorf("parse config: %w", err)
		}
	}
	return nil
}

// applyMQTTFlags applies MQTT flags to every mqtt output, creating one if
// none exists and any mqtt flag was set.
func applyMQTTFlags(cfg *Config, server, user, pass, clientID, topic string) {
	if server == "" && user == "" && pass == "" && clientID == "" && topic == "" {
		return
	}
	apply := func(m *MQTTConfig) {
		if server != "" {
			m.Server = server
		}
		if user != "" {
			m.Username = user
		}
		if pass != "" {
			m.Password = pass
		}
		if clientID != "" {
			m.ClientID = clientID
		}
		if topic != "" {
			m.StateTopic = topic
		}
	}
	applied := false
	for i := range cfg.Outputs {
		if strings.ToLower(cfg.Outputs[i].Type) == "mqtt" {
			if cfg.Outputs[i].MQTT == nil {
				cfg.Outputs[i].MQTT = &MQTTConfig{}
			}
			apply(cfg.Outputs[i].MQTT)
			applied = true
		}
	}
	if !applied {
		out := OutputConfig{Type: "mqtt", MQTT: &MQTTConfig{}}
		apply(out.MQTT)
		cfg.Outputs = append(cfg.Outputs, out)
	}
}

func applySerialFlags(cfg *Config, port string, baud int) {
	if port == "" && baud == -1 {
		return
	}
	apply := func(s *SerialConfig) {
		if port != "" {
			s.Port = port
		}
		if baud != -1 {
			s.Baud = baud
		}
	}
	applied := false
	for i := range cfg.Outputs {
		if strings.ToLower(cfg.Outputs[i].Type) == "serial" {
			if cfg.Outputs[i].Serial == nil {
				cfg.Outputs[i].Serial = &SerialConfig{}
			}
			apply(cfg.Outputs[i].Serial)
			applied = true
		}
	}
	if !applied {
		out := OutputConfig{Type: "serial", Serial: &SerialConfig{}}
		apply(out.Serial)
		cfg.Outputs = append(cfg.Outputs, out)
	}
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseKeyIntMap(s string) map[string]int {
	out := map[string]int{}
	for _, p := range parseCSV(s) {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		if v, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil {
			out[strings.TrimSpace(kv[0])] = v
		}
	}
	return out
}
