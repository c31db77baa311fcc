package panel

import (
	"buttonboard-go/types"
	"buttonboard-go/x/conv"
	"buttonboard-go/x/mathx"
)

// field is one editable menu entry. Each field fixes its own range and
// whether out-of-range adjustment wraps or clamps, so the edit loop never
// has to guess.
type field struct {
	label string
	min   int
	max   int
	wrap  bool

	get    func(a *App) int
	apply  func(a *App, v int) error
	format func(dst []byte, v int) []byte
}

// adjust moves v by delta under the field's range policy.
func (f *field) adjust(v, delta int) int {
	v += delta
	if f.wrap {
		return mathx.Wrap(v, f.min, f.max)
	}
	return mathx.Clamp(v, f.min, f.max)
}

func fmtNum(dst []byte, v int) []byte {
	return conv.AppendInt(dst, int64(v))
}

func fmtPad2(dst []byte, v int) []byte {
	var two [2]byte
	conv.Pad2(two[:], v)
	return append(dst, two[:]...)
}

func fmtOnOff(dst []byte, v int) []byte {
	if v != 0 {
		return append(dst, "ON"...)
	}
	return append(dst, "OFF"...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// fields is the menu, in display order. Brightness saturates at its ends;
// everything cyclic (toggles, hours, minutes) wraps.
var fields = [...]field{
	{
		label: "BRIGHTNESS", min: 0, max: 9,
		get:    func(a *App) int { return int(a.set.Brightness) },
		apply:  func(a *App, v int) error { a.set.Brightness = uint8(v); return a.persist() },
		format: fmtNum,
	},
	{
		label: "12H CLOCK", min: 0, max: 1, wrap: true,
		get:    func(a *App) int { return boolToInt(a.set.TwelveHour) },
		apply:  func(a *App, v int) error { a.set.TwelveHour = v != 0; return a.persist() },
		format: fmtOnOff,
	},
	{
		label: "ALARM", min: 0, max: 1, wrap: true,
		get:    func(a *App) int { return boolToInt(a.set.AlarmEnabled) },
		apply:  func(a *App, v int) error { a.set.AlarmEnabled = v != 0; return a.persist() },
		format: fmtOnOff,
	},
	{
		label: "ALARM HOUR", min: 0, max: 23, wrap: true,
		get:    func(a *App) int { return int(a.set.AlarmHour) },
		apply:  func(a *App, v int) error { a.set.AlarmHour = uint8(v); return a.persist() },
		format: fmtPad2,
	},
	{
		label: "ALARM MIN", min: 0, max: 59, wrap: true,
		get:    func(a *App) int { return int(a.set.AlarmMinute) },
		apply:  func(a *App, v int) error { a.set.AlarmMinute = uint8(v); return a.persist() },
		format: fmtPad2,
	},
	{
		label: "SET HOUR", min: 0, max: 23, wrap: true,
		get: func(a *App) int { return int(a.ts.Hour) },
		apply: func(a *App, v int) error {
			ts := a.ts
			ts.Hour = uint8(v)
			return a.commitTime(ts)
		},
		format: fmtPad2,
	},
	{
		label: "SET MIN", min: 0, max: 59, wrap: true,
		get: func(a *App) int { return int(a.ts.Minute) },
		apply: func(a *App, v int) error {
			ts := a.ts
			ts.Minute = uint8(v)
			ts.Second = 0
			return a.commitTime(ts)
		},
		format: fmtPad2,
	},
}

func (a *App) commitTime(ts types.Timestamp) error {
	if a.writeTime == nil {
		return nil
	}
	if err := a.writeTime(ts); err != nil {
		return err
	}
	a.ts = ts
	return nil
}
