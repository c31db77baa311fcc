package panel

import (
	"buttonboard-go/drivers/ds3231"
	"buttonboard-go/errcode"
	"buttonboard-go/i2cbus"
	"buttonboard-go/types"
)

// Clock is the calendar-time adapter: one arbiter handle plus the chip
// driver. Every operation spans exactly one claim.
type Clock struct {
	dev ds3231.Device
	h   *i2cbus.Handle
}

// NewClock binds the clock chip to the shared bus.
func NewClock(arb *i2cbus.Arbiter) *Clock {
	return &Clock{dev: ds3231.New(0), h: arb.Handle("clock")}
}

// ReadTime fetches the current timestamp.
func (c *Clock) ReadTime() (types.Timestamp, error) {
	claim := c.h.Acquire()
	defer claim.Release()
	return c.dev.ReadTime(claim)
}

// WriteTime sets the chip. Validation happens before the bus is touched, so
// an out-of-range timestamp never costs a claim.
func (c *Clock) WriteTime(ts types.Timestamp) error {
	if !ts.Valid() {
		return &errcode.E{C: errcode.InvalidTimestamp, Op: "clock.write"}
	}
	claim := c.h.Acquire()
	defer claim.Release()
	return c.dev.SetTime(claim, ts)
}

// EnableMinuteAlarm arms the chip's once-per-minute alarm output.
func (c *Clock) EnableMinuteAlarm() error {
	claim := c.h.Acquire()
	defer claim.Release()
	return c.dev.EnableMinuteAlarm(claim)
}

// PollAlarm reports whether the minute alarm fired and clears the flag so
// the next minute can latch again.
func (c *Clock) PollAlarm() (bool, error) {
	claim := c.h.Acquire()
	defer claim.Release()
	fired, err := c.dev.AlarmTriggered(claim)
	if err != nil || !fired {
		return false, err
	}
	return true, c.dev.ClearAlarm(claim)
}

// Temperature reads the chip's own sensor in deci-°C. Used as the ambient
// fallback when no environment report has arrived.
func (c *Clock) Temperature() (int32, error) {
	claim := c.h.Acquire()
	defer claim.Release()
	return c.dev.Temperature(claim)
}
