// Package hd44780 drives an HD44780 character LCD behind a PCF8574 I²C
// backpack, in 4-bit mode.
//
// Like the clock driver, operations take the bus port per call so the
// arbiter's claim scoping stays with the caller. The controller needs a
// minimum settle time after each command; the wait goes through an
// injectable Delay so it stays cooperative and tests run without sleeping.
package hd44780

import (
	"time"

	"tinygo.org/x/drivers"
)

// Address is the usual backpack address.
const Address = 0x27

// PCF8574 bit mapping: P0=RS, P1=RW, P2=EN, P3=backlight, P4..P7=data.
const (
	pinRS        = 1 << 0
	pinEN        = 1 << 2
	pinBacklight = 1 << 3
)

// Controller commands.
const (
	cmdClear        = 0x01
	cmdEntryMode    = 0x06 // increment cursor, no shift
	cmdDisplayOn    = 0x0C // display on, cursor off, blink off
	cmdFunctionSet  = 0x28 // 4-bit, 2 lines, 5x8 font
	cmdSetDDRAMAddr = 0x80
)

// Controller settle times per datasheet.
const (
	delayCommand = 37 * time.Microsecond
	delayClear   = 1520 * time.Microsecond
	delayPowerOn = 50 * time.Millisecond
	delayInitGap = 4500 * time.Microsecond
)

// rowOffsets maps row index to DDRAM base address.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// Config selects geometry and timing behaviour.
type Config struct {
	Addr uint16 // 0 selects Address
	Cols uint8  // 0 selects 16
	Rows uint8  // 0 selects 2
	// Delay is the cooperative wait between controller commands.
	// Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Device is the controller state machine. The initialization sequence runs
// once; Configure afterwards is a no-op.
type Device struct {
	addr      uint16
	cols      uint8
	rows      uint8
	delay     func(time.Duration)
	backlight bool
	inited    bool
	buf       [2]byte
}

// New creates a Device from cfg, applying defaults.
func New(cfg Config) Device {
	if cfg.Addr == 0 {
		cfg.Addr = Address
	}
	if cfg.Cols == 0 {
		cfg.Cols = 16
	}
	if cfg.Rows == 0 {
		cfg.Rows = 2
	}
	if cfg.Delay == nil {
		cfg.Delay = time.Sleep
	}
	return Device{
		addr:      cfg.Addr,
		cols:      cfg.Cols,
		rows:      cfg.Rows,
		delay:     cfg.Delay,
		backlight: true,
	}
}

func (d *Device) Cols() uint8 { return d.cols }
func (d *Device) Rows() uint8 { return d.rows }

// Configure runs the controller's wake-up and mode sequence. It is
// idempotent: once the device initialized successfully, later calls do
// nothing and return nil.
func (d *Device) Configure(bus drivers.I2C) error {
	if d.inited {
		return nil
	}
	d.delay(delayPowerOn)

	// Three times 8-bit wake-up, then switch to 4-bit.
	for i := 0; i < 3; i++ {
		if err := d.writeNibble(bus, 0x30, 0); err != nil {
			return err
		}
		d.delay(delayInitGap)
	}
	if err := d.writeNibble(bus, 0x20, 0); err != nil {
		return err
	}
	d.delay(delayCommand)

	for _, cmd := range [...]byte{cmdFunctionSet, cmdDisplayOn, cmdEntryMode} {
		if err := d.command(bus, cmd); err != nil {
			return err
		}
	}
	if err := d.command(bus, cmdClear); err != nil {
		return err
	}
	d.delay(delayClear)

	d.inited = true
	return nil
}

// Clear wipes the whole display.
func (d *Device) Clear(bus drivers.I2C) error {
	if err := d.command(bus, cmdClear); err != nil {
		return err
	}
	d.delay(delayClear)
	return nil
}

// WriteLine positions the cursor at the start of row and writes text.
// The caller guarantees text is at most Cols bytes.
func (d *Device) WriteLine(bus drivers.I2C, row uint8, text []byte) error {
	if row >= d.rows {
		return nil
	}
	if err := d.command(bus, cmdSetDDRAMAddr|rowOffsets[row]); err != nil {
		return err
	}
	for _, ch := range text {
		if err := d.writeByte(bus, ch, pinRS); err != nil {
			return err
		}
	}
	return nil
}

// SetBacklight switches the backpack's backlight pin. Takes effect with the
// next expander write, so an explicit dummy write is issued.
func (d *Device) SetBacklight(bus drivers.I2C, on bool) error {
	d.backlight = on
	return d.tx(bus, d.blBit())
}

func (d *Device) Backlight() bool { return d.backlight }

func (d *Device) command(bus drivers.I2C, cmd byte) error {
	if err := d.writeByte(bus, cmd, 0); err != nil {
		return err
	}
	d.delay(delayCommand)
	return nil
}

// writeByte sends one full byte as two nibbles with the given control bits.
func (d *Device) writeByte(bus drivers.I2C, b, ctrl byte) error {
	if err := d.writeNibble(bus, b&0xF0, ctrl); err != nil {
		return err
	}
	return d.writeNibble(bus, b<<4, ctrl)
}

// writeNibble puts the high nibble of b on the data pins and pulses EN.
func (d *Device) writeNibble(bus drivers.I2C, b, ctrl byte) error {
	v := (b & 0xF0) | ctrl | d.blBit()
	if err := d.tx(bus, v|pinEN); err != nil {
		return err
	}
	return d.tx(bus, v)
}

func (d *Device) tx(bus drivers.I2C, v byte) error {
	d.buf[0] = v
	return bus.Tx(d.addr, d.buf[:1], nil)
}

func (d *Device) blBit() byte {
	if d.backlight {
		return pinBacklight
	}
	return 0
}
