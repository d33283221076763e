package config

import (
	"reflect"
	"testing"
)

func TestParseIntOrHex(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"30", 30, true},
		{"0x1E", 0x1E, true},
		{"0X1e", 0x1E, true},
		{"bad", 0, false},
	}
	for _, tt := range tests {
		got, err := parseIntOrHex(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("parseIntOrHex(%q) ok=%v err=%v", tt.in, tt.ok, err)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("parseIntOrHex(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"console,mqtt", []string{"console", "mqtt"}},
		{" console , , serial ", []string{"console", "serial"}},
	}
	for _, tt := range tests {
		if got := parseCSV(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseCSV(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseKeyIntMap(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]int
	}{
		{"", map[string]int{}},
		{"console=1000,mqtt=5000", map[string]int{"console": 1000, "mqtt": 5000}},
		{"console=1000,bad", map[string]int{"console": 1000}},
	}
	for _, tt := range tests {
		if got := parseKeyIntMap(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("parseKeyIntMap(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := cfg
	bad.DataRateHz = 25
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for unsupported data rate")
	}

	bad = cfg
	bad.I2CAddress = 0x100
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for invalid i2c address")
	}

	bad = cfg
	bad.SensorType = "virtual"
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for unknown sensor type")
	}

	bad = cfg
	bad.Outputs = nil
	if err := Validate(bad); err == nil {
		t.Fatalf("expected error for missing outputs")
	}
}

func TestApplyMQTTFlagsCreatesOutput(t *testing.T) {
	cfg := DefaultConfig()
	applyMQTTFlags(&cfg, "tcp://broker:1883", "", "", "mag-client", "")
	if len(cfg.Outputs) != 2 {
		t.Fatalf("outputs: %+v", cfg.Outputs)
	}
	out := cfg.Outputs[1]
	if out.Type != "mqtt" || out.MQTT == nil {
		t.Fatalf("mqtt output not created: %+v", out)
	}
	if out.MQTT.Server != "tcp://broker:1883" || out.MQTT.ClientID != "mag-client" {
		t.Fatalf("mqtt flags not applied: %+v", out.MQTT)
	}
}

func TestApplySerialFlagsUpdatesExisting(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Outputs = []OutputConfig{{Type: "serial", Serial: &SerialConfig{Port: "/dev/ttyUSB0", Baud: 9600}}}
	applySerialFlags(&cfg, "", 115200)
	if len(cfg.Outputs) != 1 {
		t.Fatalf("outputs: %+v", cfg.Outputs)
	}
	s := cfg.Outputs[0].Serial
	if s.Port != "/dev/ttyUSB0" || s.Baud != 115200 {
		t.Fatalf("serial flags not applied: %+v", s)
	}
}
