package lis2mdl

import (
	"periph.io/x/conn/v3/i2c"
)

// autoIncrement is ORed into the register sub-address for multi-byte
// transfers so consecutive registers are accessed in one transaction.
const autoIncrement = 0x80

// I2CConn implements Conn over a periph.io I2C device.
type I2CConn struct {
	dev *i2c.Dev
}

// NewI2CConn wraps an addressed I2C device.
func NewI2CConn(dev *i2c.Dev) *I2CConn {
	return &I2CConn{dev: dev}
}

func (c *I2CConn) WriteReg(reg uint8, p []byte) error {
	if len(p) > 1 {
		reg |= autoIncrement
	}
	buf := make([]byte, 0, 1+len(p))
	buf = append(buf, reg)
	buf = append(buf, p...)
	return c.dev.Tx(buf, nil)
}

func (c *I2CConn) ReadReg(reg uint8, p []byte) error {
	if len(p) > 1 {
		reg |= autoIncrement
	}
	return c.dev.Tx([]byte{reg}, p)
}
