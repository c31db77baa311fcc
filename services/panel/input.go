package panel

import (
	"time"

	"buttonboard-go/types"
)

// Debounce timing defaults, tuned for a 10 ms sample tick.
const (
	DefaultDebounceWindow = 40 * time.Millisecond
	DefaultLongPressAfter = 900 * time.Millisecond
	DefaultRepeatEvery    = 250 * time.Millisecond
)

// DebounceConfig holds the per-board timing constants.
type DebounceConfig struct {
	Window         time.Duration
	LongPressAfter time.Duration
	RepeatEvery    time.Duration
}

func (c DebounceConfig) withDefaults() DebounceConfig {
	if c.Window <= 0 {
		c.Window = DefaultDebounceWindow
	}
	if c.LongPressAfter <= 0 {
		c.LongPressAfter = DefaultLongPressAfter
	}
	if c.RepeatEvery <= 0 {
		c.RepeatEvery = DefaultRepeatEvery
	}
	return c
}

// buttonState is one button's debounce machine. Deadlines are plain value
// fields; nothing here spawns or allocates.
type buttonState struct {
	confirmed bool // debounced level, true = held
	candidate bool // raw level being timed
	timing    bool
	deadline  time.Time // candidate promotion
	holdAt    time.Time // next LongPress/Repeat
	longFired bool
}

// Debouncer turns raw pin samples into ButtonEvents. Each button's machine
// is independent. Sample must be called at the fixed tick rate with a
// monotonic now.
type Debouncer struct {
	cfg  DebounceConfig
	btns [types.NumButtons]buttonState
}

// NewDebouncer applies defaults for zero fields.
func NewDebouncer(cfg DebounceConfig) *Debouncer {
	return &Debouncer{cfg: cfg.withDefaults()}
}

// Sample feeds one tick of raw levels (true = pressed). Confirmed
// transitions, long presses and repeats are handed to emit in button order.
func (d *Debouncer) Sample(now time.Time, raw [types.NumButtons]bool, emit func(types.ButtonEvent)) {
	for i := range d.btns {
		d.sampleOne(now, types.Button(i), raw[i], emit)
	}
}

func (d *Debouncer) sampleOne(now time.Time, b types.Button, raw bool, emit func(types.ButtonEvent)) {
	st := &d.btns[b]

	if raw == st.confirmed {
		// Level agrees with the debounced state; any pending edge was bounce.
		st.timing = false
		if st.confirmed && !now.Before(st.holdAt) {
			if st.longFired {
				emit(types.ButtonEvent{Button: b, Kind: types.Repeat})
			} else {
				emit(types.ButtonEvent{Button: b, Kind: types.LongPress})
				st.longFired = true
			}
			st.holdAt = now.Add(d.cfg.RepeatEvery)
		}
		return
	}

	if !st.timing || raw != st.candidate {
		st.timing = true
		st.candidate = raw
		st.deadline = now.Add(d.cfg.Window)
		return
	}
	if now.Before(st.deadline) {
		return
	}

	// Edge held stable for the full window: promote.
	st.confirmed = raw
	st.timing = false
	if raw {
		emit(types.ButtonEvent{Button: b, Kind: types.Pressed})
		st.longFired = false
		st.holdAt = now.Add(d.cfg.LongPressAfter)
	} else {
		emit(types.ButtonEvent{Button: b, Kind: types.Released})
	}
}
