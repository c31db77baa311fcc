// Package aht20 drives the AHT20 temperature/humidity sensor. Measurement
// is two-phase so the caller never sleeps holding the bus: Trigger starts a
// conversion, Collect fetches it once ready (ErrNotReady while busy).
//
// Fixed-point only: readings come back in tenths (deci-°C, deci-%RH).
package aht20

import (
	"errors"

	"tinygo.org/x/drivers"
)

// Address is the sensor's fixed I²C address.
const Address = 0x38

const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// ErrNotReady means a conversion is still running; retry Collect later.
var ErrNotReady = errors.New("aht20: not ready")

// Device is the codec plus scratch space for one sensor. Like the other
// drivers, every method takes the bus port it should run on.
type Device struct {
	addr uint16
	buf  [7]byte
}

// New creates a Device. addr 0 selects the standard address.
func New(addr uint16) Device {
	if addr == 0 {
		addr = Address
	}
	return Device{addr: addr}
}

// Configure checks calibration and initializes the sensor if needed. The
// sensor wants ~10 ms after initialization before the first Trigger; the
// caller owns that wait.
func (d *Device) Configure(bus drivers.I2C) error {
	d.buf[0] = cmdStatus
	if err := bus.Tx(d.addr, d.buf[:1], d.buf[1:2]); err != nil {
		return err
	}
	if d.buf[1]&statusCalibrated != 0 {
		return nil
	}
	d.buf[0] = cmdInitialize
	d.buf[1] = 0x08
	d.buf[2] = 0x00
	return bus.Tx(d.addr, d.buf[:3], nil)
}

// Trigger starts one conversion. Nominal conversion time is 80 ms.
func (d *Device) Trigger(bus drivers.I2C) error {
	d.buf[0] = cmdTrigger
	d.buf[1] = 0x33
	d.buf[2] = 0x00
	return bus.Tx(d.addr, d.buf[:3], nil)
}

// Collect reads the finished conversion. ErrNotReady while the sensor is
// still busy; bus errors pass through.
func (d *Device) Collect(bus drivers.I2C) (Sample, error) {
	if err := bus.Tx(d.addr, nil, d.buf[:]); err != nil {
		return Sample{}, err
	}
	st := d.buf[0]
	if st&statusCalibrated == 0 || st&statusBusy != 0 {
		return Sample{}, ErrNotReady
	}
	return Sample{
		rawHumidity: uint32(d.buf[1])<<12 | uint32(d.buf[2])<<4 | uint32(d.buf[3])>>4,
		rawTemp:     uint32(d.buf[3]&0x0F)<<16 | uint32(d.buf[4])<<8 | uint32(d.buf[5]),
	}, nil
}

// Sample is one raw conversion.
type Sample struct {
	rawHumidity uint32
	rawTemp     uint32
}

// DeciRelHumidity returns tenths of %RH.
func (s Sample) DeciRelHumidity() int32 {
	return int32(s.rawHumidity) * 1000 / 0x100000
}

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 {
	return int32(s.rawTemp)*2000/0x100000 - 500
}
