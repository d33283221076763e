package lis2mdl

import (
	"errors"
	"fmt"
	"time"
)

// Register map for the ST LIS2MDL magnetometer.
const (
	regOffsetXL = 0x45 // OFFSET_X_REG_L .. OFFSET_Z_REG_H, 6 consecutive bytes
	regWhoAmI   = 0x4F
	regCfgA     = 0x60
	regCfgB     = 0x61
	regCfgC     = 0x62
	regStatus   = 0x67
	regOutXL    = 0x68 // X_L, X_H, Y_L, Y_H, Z_L, Z_H
	regTempOutL = 0x6E
)

// CFG_REG_A bits.
const (
	cfgAModeMask   = 0x03
	cfgAODRShift   = 2
	cfgASoftReset  = 1 << 5
	cfgACompTempEn = 1 << 7
)

// CFG_REG_B bits.
const (
	cfgBOffCanc = 1 << 1
)

// CFG_REG_C bits.
const (
	cfgCBDU = 1 << 4
)

// STATUS_REG bits.
const (
	statusZYXDA = 1 << 3
)

// DefaultAddr is the fixed I2C address of the LIS2MDL.
const DefaultAddr = 0x1E

// DeviceID is the expected WHO_AM_I value.
const DeviceID = 0x40

// Sensitivity is fixed at 1.5 mG/LSB; temperature is 8 LSB/degC with a
// 25 degC zero point (datasheet section 3).
const (
	milligaussPerLSB = 1.5
	lsbPerCelsius    = 8.0
	celsiusZero      = 25.0
)

// DataRate selects the output data rate (CFG_REG_A ODR bits).
type DataRate uint8

const (
	ODR10Hz DataRate = iota
	ODR20Hz
	ODR50Hz
	ODR100Hz
)

// Hz returns the data rate in samples per second.
func (r DataRate) Hz() int {
	switch r {
	case ODR20Hz:
		return 20
	case ODR50Hz:
		return 50
	case ODR100Hz:
		return 100
	default:
		return 10
	}
}

// DataRateForHz maps a rate in Hz to the nearest supported DataRate.
func DataRateForHz(hz int) DataRate {
	switch {
	case hz >= 100:
		return ODR100Hz
	case hz >= 50:
		return ODR50Hz
	case hz >= 20:
		return ODR20Hz
	default:
		return ODR10Hz
	}
}

// Mode selects the operating mode (CFG_REG_A MD bits).
type Mode uint8

const (
	ModeContinuous Mode = 0x0
	ModeSingle     Mode = 0x1
	ModeIdle       Mode = 0x3
)

var (
	// ErrDeviceNotFound means the identity register did not match DeviceID:
	// wrong wiring, wrong address, or a different part on the bus. The
	// device must not be configured in that state.
	ErrDeviceNotFound = errors.New("lis2mdl: device not found")

	// ErrResetTimeout means the soft-reset flag never cleared within the
	// configured deadline.
	ErrResetTimeout = errors.New("lis2mdl: reset did not complete")
)

// Conn is the register-level transport the driver needs from the platform:
// a write and a read of one or more consecutive device registers. Implemented
// by I2CConn for real hardware and by fakes in tests.
type Conn interface {
	WriteReg(reg uint8, p []byte) error
	ReadReg(reg uint8, p []byte) error
}

// Opts holds bring-up options.
//
// Offset is the hard-iron correction in raw LSB per axis (X, Y, Z). The
// device subtracts it from every conversion when OffsetCancellation is on.
// The values come from an external calibration pass; zero means no
// correction.
type Opts struct {
	DataRate           DataRate
	Offset             [3]int16
	OffsetCancellation bool
	TempCompensation   bool
	BootWait           time.Duration // 0 means the datasheet's 20 ms
	ResetTimeout       time.Duration // 0 means 100 ms
}

// Dev represents a configured LIS2MDL.
type Dev struct {
	conn Conn
}

// New brings the device from power-on to continuous conversion.
//
// The sequence is order-sensitive: identity check, soft reset and wait,
// then block data update, data rate, offset cancellation and temperature
// compensation while still in idle mode, continuous mode last, and finally
// the one-time hard-iron offset write.
func New(conn Conn, opts Opts) (*Dev, error) {
	bootWait := opts.BootWait
	if bootWait == 0 {
		bootWait = 20 * time.Millisecond
	}
	resetTimeout := opts.ResetTimeout
	if resetTimeout == 0 {
		resetTimeout = 100 * time.Millisecond
	}

	d := &Dev{conn: conn}

	// The sensor is not guaranteed responsive before its boot time has
	// elapsed.
	time.Sleep(bootWait)

	id, err := d.ID()
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}
	if id != DeviceID {
		return nil, fmt.Errorf("%w: WHO_AM_I %#02x, want %#02x", ErrDeviceNotFound, id, DeviceID)
	}

	if err := d.Reset(); err != nil {
		return nil, fmt.Errorf("soft reset: %w", err)
	}
	if err := d.waitReset(resetTimeout); err != nil {
		return nil, err
	}

	if err := d.SetBlockDataUpdate(true); err != nil {
		return nil, fmt.Errorf("block data update: %w", err)
	}
	if err := d.SetDataRate(opts.DataRate); err != nil {
		return nil, fmt.Errorf("data rate: %w", err)
	}
	if err := d.SetOffsetCancellation(opts.OffsetCancellation); err != nil {
		return nil, fmt.Errorf("offset cancellation: %w", err)
	}
	if err := d.SetTempCompensation(opts.TempCompensation); err != nil {
		return nil, fmt.Errorf("temperature compensation: %w", err)
	}
	if err := d.SetMode(ModeContinuous); err != nil {
		return nil, fmt.Errorf("operating mode: %w", err)
	}
	if err := d.SetOffset(opts.Offset[0], opts.Offset[1], opts.Offset[2]); err != nil {
		return nil, fmt.Errorf("hard-iron offset: %w", err)
	}

	return d, nil
}

// ID reads the WHO_AM_I register.
func (d *Dev) ID() (uint8, error) {
	return d.readReg1(regWhoAmI)
}

// Reset triggers a software reset, restoring the default register
// configuration. Poll with waitReset before touching any other register.
func (d *Dev) Reset() error {
	v, err := d.readReg1(regCfgA)
	if err != nil {
		return err
	}
	return d.writeReg1(regCfgA, v|cfgASoftReset)
}

// ResetInProgress reports whether the soft-reset flag is still set.
func (d *Dev) ResetInProgress() (bool, error) {
	v, err := d.readReg1(regCfgA)
	if err != nil {
		return false, err
	}
	return v&cfgASoftReset != 0, nil
}

func (d *Dev) waitReset(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		busy, err := d.ResetInProgress()
		if err != nil {
			return fmt.Errorf("reset status: %w", err)
		}
		if !busy {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %v", ErrResetTimeout, timeout)
		}
		time.Sleep(time.Millisecond)
	}
}

// SetBlockDataUpdate enables or disables block data update, which holds the
// output registers stable until both bytes of an axis have been read.
func (d *Dev) SetBlockDataUpdate(on bool) error {
	return d.updateReg(regCfgC, cfgCBDU, on)
}

// SetDataRate sets the output data rate. Only valid in idle mode.
func (d *Dev) SetDataRate(rate DataRate) error {
	v, err := d.readReg1(regCfgA)
	if err != nil {
		return err
	}
	v &^= 0x03 << cfgAODRShift
	v |= uint8(rate) << cfgAODRShift
	return d.writeReg1(regCfgA, v)
}

// SetOffsetCancellation enables subtraction of the stored hard-iron offset
// on every conversion cycle.
func (d *Dev) SetOffsetCancellation(on bool) error {
	return d.updateReg(regCfgB, cfgBOffCanc, on)
}

// SetTempCompensation enables temperature compensation of the magnetic
// reading.
func (d *Dev) SetTempCompensation(on bool) error {
	return d.updateReg(regCfgA, cfgACompTempEn, on)
}

// SetMode sets the operating mode. ModeContinuous must be the last
// mode-affecting step of a configuration sequence; the other configuration
// registers are only writable in idle or single-shot state.
func (d *Dev) SetMode(mode Mode) error {
	v, err := d.readReg1(regCfgA)
	if err != nil {
		return err
	}
	v &^= cfgAModeMask
	v |= uint8(mode) & cfgAModeMask
	return d.writeReg1(regCfgA, v)
}

// SetOffset writes the per-axis hard-iron offset registers in one six-byte
// transfer, low byte first per axis.
func (d *Dev) SetOffset(x, y, z int16) error {
	buf := []byte{
		byte(x), byte(uint16(x) >> 8),
		byte(y), byte(uint16(y) >> 8),
		byte(z), byte(uint16(z) >> 8),
	}
	return d.conn.WriteReg(regOffsetXL, buf)
}

// Offset reads back the stored hard-iron offset.
func (d *Dev) Offset() (x, y, z int16, err error) {
	buf := make([]byte, 6)
	if err := d.conn.ReadReg(regOffsetXL, buf); err != nil {
		return 0, 0, 0, err
	}
	x = int16(buf[0]) | int16(buf[1])<<8
	y = int16(buf[2]) | int16(buf[3])<<8
	z = int16(buf[4]) | int16(buf[5])<<8
	return x, y, z, nil
}

// DataReady reports whether a new, unread XYZ sample is available.
func (d *Dev) DataReady() (bool, error) {
	v, err := d.readReg1(regStatus)
	if err != nil {
		return false, err
	}
	return v&statusZYXDA != 0, nil
}

// MagneticRaw reads the three axis output registers in one six-byte
// transfer. Values are raw counts; convert with FromLSBToMilligauss.
func (d *Dev) MagneticRaw() (x, y, z int16, err error) {
	buf := make([]byte, 6)
	if err := d.conn.ReadReg(regOutXL, buf); err != nil {
		return 0, 0, 0, err
	}
	x = int16(buf[0]) | int16(buf[1])<<8
	y = int16(buf[2]) | int16(buf[3])<<8
	z = int16(buf[4]) | int16(buf[5])<<8
	return x, y, z, nil
}

// TemperatureRaw reads the two temperature output registers.
func (d *Dev) TemperatureRaw() (int16, error) {
	buf := make([]byte, 2)
	if err := d.conn.ReadReg(regTempOutL, buf); err != nil {
		return 0, err
	}
	return int16(buf[0]) | int16(buf[1])<<8, nil
}

// FromLSBToMilligauss converts a raw axis count to milligauss.
func FromLSBToMilligauss(lsb int16) float64 {
	return float64(lsb) * milligaussPerLSB
}

// FromLSBToCelsius converts a raw temperature count to degrees Celsius.
func FromLSBToCelsius(lsb int16) float64 {
	return float64(lsb)/lsbPerCelsius + celsiusZero
}

func (d *Dev) readReg1(reg uint8) (uint8, error) {
	buf := make([]byte, 1)
	if err := d.conn.ReadReg(reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *Dev) writeReg1(reg uint8, v uint8) error {
	return d.conn.WriteReg(reg, []byte{v})
}

func (d *Dev) updateReg(reg uint8, bit uint8, on bool) error {
	v, err := d.readReg1(reg)
	if err != nil {
		return err
	}
	if on {
		v |= bit
	} else {
		v &^= bit
	}
	return d.writeReg1(reg, v)
}
