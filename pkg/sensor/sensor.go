package sensor

import "time"

// Reading is one converted magnetometer sample.
type Reading struct {
	RawX           int16     `json:"raw_x"`
	RawY           int16     `json:"raw_y"`
	RawZ           int16     `json:"raw_z"`
	X              float64   `json:"x_mg"`
	Y              float64   `json:"y_mg"`
	Z              float64   `json:"z_mg"`
	RawTemperature int16     `json:"raw_temperature"`
	Temperature    float64   `json:"temperature_c"`
	Timestamp      time.Time `json:"timestamp"`
}

// Sensor delivers zero or one reading per poll: an empty slice means no new
// sample was available.
type Sensor interface {
	Read() ([]Reading, error)
	Close() error
}
