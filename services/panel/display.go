package panel

import (
	"time"

	"buttonboard-go/drivers/hd44780"
	"buttonboard-go/i2cbus"
)

// Display renders frames through the arbiter, keeping a shadow of the last
// content so unchanged rows cost no bus traffic.
type Display struct {
	dev hd44780.Device
	h   *i2cbus.Handle

	shadow      Frame
	shadowValid bool
	lightOn     bool
	lightKnown  bool
}

// NewDisplay binds the LCD to the shared bus. delay nil selects time.Sleep.
func NewDisplay(arb *i2cbus.Arbiter, delay func(time.Duration)) *Display {
	return &Display{
		dev: hd44780.New(hd44780.Config{Cols: Cols, Rows: Rows, Delay: delay}),
		h:   arb.Handle("display"),
	}
}

// Render sends f to the panel. The controller init runs inside the first
// claim; afterwards only rows that differ from the shadow are rewritten. A
// failed render invalidates the shadow so the next call resends everything.
func (d *Display) Render(f Frame) error {
	if d.shadowValid && f == d.shadow {
		return nil
	}

	claim := d.h.Acquire()
	defer claim.Release()

	if err := d.dev.Configure(claim); err != nil {
		d.shadowValid = false
		return err
	}
	for row := 0; row < Rows; row++ {
		if d.shadowValid && f.Lines[row] == d.shadow.Lines[row] {
			continue
		}
		if err := d.dev.WriteLine(claim, uint8(row), f.Lines[row][:]); err != nil {
			d.shadowValid = false
			return err
		}
	}
	d.shadow = f
	d.shadowValid = true
	return nil
}

// SetBrightness maps the 0..9 setting onto the backpack's binary backlight:
// zero is off, anything else on. Redundant calls are free.
func (d *Display) SetBrightness(level uint8) error {
	on := level > 0
	if d.lightKnown && on == d.lightOn {
		return nil
	}
	claim := d.h.Acquire()
	defer claim.Release()
	if err := d.dev.SetBacklight(claim, on); err != nil {
		d.lightKnown = false
		return err
	}
	d.lightOn = on
	d.lightKnown = true
	return nil
}

// Invalidate forces the next Render to rewrite every row.
func (d *Display) Invalidate() {
	d.shadowValid = false
}
