// Package ds3231 drives the DS3231 real-time clock over I²C.
//
// The driver holds no bus reference: every operation takes the port it
// should run on, normally a claim from the bus arbiter, so the caller owns
// transaction scoping. Fixed scratch buffers keep the hot path free of
// allocations.
package ds3231

import (
	"buttonboard-go/errcode"
	"buttonboard-go/types"

	"tinygo.org/x/drivers"
)

// Address is the fixed I²C address of the chip.
const Address = 0x68

// Register map (time, alarm 2, control/status, temperature).
const (
	regSeconds = 0x00
	regMinutes = 0x01
	regHours   = 0x02
	regWeekday = 0x03
	regDay     = 0x04
	regMonth   = 0x05
	regYear    = 0x06

	regAlarm2Minutes = 0x0B
	regAlarm2Hours   = 0x0C
	regAlarm2Day     = 0x0D

	regControl = 0x0E
	regStatus  = 0x0F
	regTempMSB = 0x11
)

// Control/status bits.
const (
	ctlINTCN = 1 << 2 // alarm interrupt output instead of square wave
	ctlA2IE  = 1 << 1 // alarm 2 interrupt enable
	stA2F    = 1 << 1 // alarm 2 matched flag

	alarmMaskBit = 1 << 7 // AxMn "match everything" mask bit per register

	centuryBit = 1 << 7 // month register bit 7
	century    = 2000
)

// Device is a stateless codec plus scratch space for one chip.
type Device struct {
	addr uint16
	w    [8]byte
	r    [7]byte
}

// New creates a Device. addr 0 selects the standard address.
func New(addr uint16) Device {
	if addr == 0 {
		addr = Address
	}
	return Device{addr: addr}
}

// ReadTime reads the seven calendar registers in one transfer and decodes
// them.
func (d *Device) ReadTime(bus drivers.I2C) (types.Timestamp, error) {
	d.w[0] = regSeconds
	if err := bus.Tx(d.addr, d.w[:1], d.r[:7]); err != nil {
		return types.Timestamp{}, err
	}
	ts := types.Timestamp{
		Second:  bcdToDec(d.r[regSeconds] & 0x7F),
		Minute:  bcdToDec(d.r[regMinutes] & 0x7F),
		Hour:    bcdToDec(d.r[regHours] & 0x3F), // chip kept in 24-hour mode
		Weekday: d.r[regWeekday] & 0x07,
		Day:     bcdToDec(d.r[regDay] & 0x3F),
		Month:   bcdToDec(d.r[regMonth] &^ byte(centuryBit)),
		Year:    int16(century) + int16(bcdToDec(d.r[regYear])),
	}
	if !ts.Valid() {
		return types.Timestamp{}, &errcode.E{C: errcode.InvalidTimestamp, Op: "ds3231.read", Msg: "chip returned garbage"}
	}
	return ts, nil
}

// SetTime validates ts and writes all seven calendar registers in one
// transfer. Out-of-range fields fail before any bus traffic.
func (d *Device) SetTime(bus drivers.I2C, ts types.Timestamp) error {
	if !ts.Valid() {
		return errcode.InvalidTimestamp
	}
	d.w[0] = regSeconds
	d.w[1+regSeconds] = decToBCD(ts.Second)
	d.w[1+regMinutes] = decToBCD(ts.Minute)
	d.w[1+regHours] = decToBCD(ts.Hour) // 24-hour mode: bit 6 left clear
	d.w[1+regWeekday] = ts.Weekday
	d.w[1+regDay] = decToBCD(ts.Day)
	d.w[1+regMonth] = decToBCD(ts.Month)
	d.w[1+regYear] = decToBCD(uint8(ts.Year - century))
	return bus.Tx(d.addr, d.w[:8], nil)
}

// EnableMinuteAlarm programs alarm 2 to match once per minute and routes it
// to the interrupt output.
func (d *Device) EnableMinuteAlarm(bus drivers.I2C) error {
	d.w[0] = regAlarm2Minutes
	d.w[1] = alarmMaskBit // A2M2: ignore minutes
	d.w[2] = alarmMaskBit // A2M3: ignore hours
	d.w[3] = alarmMaskBit // A2M4: ignore day
	if err := bus.Tx(d.addr, d.w[:4], nil); err != nil {
		return err
	}
	return d.updateReg(bus, regControl, ctlINTCN|ctlA2IE, 0)
}

// AlarmTriggered reads and reports the alarm 2 matched flag.
func (d *Device) AlarmTriggered(bus drivers.I2C) (bool, error) {
	v, err := d.readReg(bus, regStatus)
	if err != nil {
		return false, err
	}
	return v&stA2F != 0, nil
}

// ClearAlarm clears the alarm 2 matched flag.
func (d *Device) ClearAlarm(bus drivers.I2C) error {
	return d.updateReg(bus, regStatus, 0, stA2F)
}

// Temperature returns the die temperature in tenths of °C. The sensor has
// 0.25 °C resolution; the fraction is truncated to tenths.
func (d *Device) Temperature(bus drivers.I2C) (int32, error) {
	d.w[0] = regTempMSB
	if err := bus.Tx(d.addr, d.w[:1], d.r[:2]); err != nil {
		return 0, err
	}
	raw := int16(d.r[0])<<2 | int16(d.r[1])>>6 // sign-extended 10-bit, LSB = 0.25 °C
	if d.r[0]&0x80 != 0 {
		raw |= ^int16(0x03FF)
	}
	return int32(raw) * 25 / 10, nil
}

func (d *Device) readReg(bus drivers.I2C, reg byte) (byte, error) {
	d.w[0] = reg
	if err := bus.Tx(d.addr, d.w[:1], d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) updateReg(bus drivers.I2C, reg byte, set, clear byte) error {
	cur, err := d.readReg(bus, reg)
	if err != nil {
		return err
	}
	d.w[0] = reg
	d.w[1] = (cur | set) &^ clear
	return bus.Tx(d.addr, d.w[:2], nil)
}

func bcdToDec(x byte) uint8 {
	return x - 6*(x>>4)
}

func decToBCD(x uint8) byte {
	return (x/10)<<4 | x%10
}
