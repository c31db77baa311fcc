package panel

import (
	"time"

	"buttonboard-go/settings"
	"buttonboard-go/types"
	"buttonboard-go/x/conv"
)

// DefaultIdleTimeout returns the UI to the clock view after this long
// without input.
const DefaultIdleTimeout = 15 * time.Second

const statusHold = 2 * time.Second

// mode is the closed set of UI states. Transitions live in HandleEvent and
// Tick; nothing else writes mode.
type mode uint8

const (
	modeClock mode = iota
	modeEnv
	modeMenu
	modeEdit
	modeConfirm
)

// App is the menu/clock state machine. It is pure apart from the injected
// persist and time-write hooks: events and ticks in, frames out, so tests
// can script it without hardware.
type App struct {
	idleTimeout time.Duration

	set       settings.Settings
	save      func(settings.Settings) error
	writeTime func(types.Timestamp) error

	mode     mode
	menuSel  int
	editIdx  int
	editVal  int
	editOrig int

	lastInput   time.Time
	statusUntil time.Time
	status      string

	ts       types.Timestamp
	haveTime bool
	env      types.EnvReport
	haveEnv  bool

	alarmActive bool
	alarmAcked  bool
	alarmMinute uint8

	suppress [types.NumButtons]bool
}

// AppConfig wires the state machine to its surroundings.
type AppConfig struct {
	Settings    settings.Settings
	IdleTimeout time.Duration
	// Save persists confirmed settings edits. Nil means edits are kept in
	// memory only.
	Save func(settings.Settings) error
	// WriteTime commits a confirmed clock edit.
	WriteTime func(types.Timestamp) error
}

// NewApp starts in the clock view with the given settings.
func NewApp(cfg AppConfig) *App {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &App{
		idleTimeout: cfg.IdleTimeout,
		set:         cfg.Settings.Normalize(),
		save:        cfg.Save,
		writeTime:   cfg.WriteTime,
		// Until the first successful read, edits start from the chip's
		// power-on epoch so a confirmed time edit is always valid.
		ts: types.Timestamp{Year: 2000, Month: 1, Day: 1, Weekday: 6},
	}
}

// Settings returns the current (possibly just-edited) settings.
func (a *App) Settings() settings.Settings { return a.set }

// TickTime feeds a fresh clock reading. Alarm matching happens here.
func (a *App) TickTime(now time.Time, ts types.Timestamp) {
	a.ts = ts
	a.haveTime = true

	if ts.Minute != a.alarmMinute {
		a.alarmMinute = ts.Minute
		a.alarmAcked = false
	}
	if a.set.AlarmEnabled && !a.alarmAcked &&
		ts.Hour == a.set.AlarmHour && ts.Minute == a.set.AlarmMinute {
		a.alarmActive = true
	}
}

// TickEnv feeds an environment report.
func (a *App) TickEnv(rep types.EnvReport) {
	a.env = rep
	a.haveEnv = true
}

// Tick runs time-based transitions: idle timeout and status expiry.
func (a *App) Tick(now time.Time) {
	if a.status != "" && !now.Before(a.statusUntil) {
		a.status = ""
	}
	if a.mode != modeClock && now.Sub(a.lastInput) >= a.idleTimeout {
		// Unconfirmed edits are discarded with the mode.
		a.mode = modeClock
	}
}

// HandleEvent drives the transition table. Short-press actions fire on
// Released so a long press does not double-trigger; the Released that ends
// a long press is swallowed.
func (a *App) HandleEvent(now time.Time, ev types.ButtonEvent) {
	a.lastInput = now

	if a.alarmActive {
		// Any press only silences the alarm; the rest of the gesture is
		// swallowed too.
		a.alarmActive = false
		a.alarmAcked = true
		if ev.Kind == types.Pressed || ev.Kind == types.LongPress {
			a.suppress[ev.Button] = true
		}
		return
	}

	switch ev.Kind {
	case types.Pressed:
		return
	case types.LongPress:
		a.suppress[ev.Button] = true
		a.onLongPress(ev.Button)
	case types.Released:
		if a.suppress[ev.Button] {
			a.suppress[ev.Button] = false
			return
		}
		a.onShortPress(ev.Button)
	case types.Repeat:
		// Auto-repeat only accelerates value adjustment.
		if a.mode == modeEdit && (ev.Button == types.BtnUp || ev.Button == types.BtnDown) {
			a.onShortPress(ev.Button)
		}
	}
}

func (a *App) onLongPress(b types.Button) {
	if b != types.BtnSelect {
		return
	}
	switch a.mode {
	case modeClock, modeEnv:
		a.mode = modeMenu
		a.menuSel = 0
	}
}

func (a *App) onShortPress(b types.Button) {
	switch a.mode {
	case modeClock:
		if b == types.BtnSelect {
			a.mode = modeEnv
		}

	case modeEnv:
		if b == types.BtnSelect || b == types.BtnBack {
			a.mode = modeClock
		}

	case modeMenu:
		switch b {
		case types.BtnUp:
			a.menuSel = wrapIndex(a.menuSel-1, len(fields))
		case types.BtnDown:
			a.menuSel = wrapIndex(a.menuSel+1, len(fields))
		case types.BtnSelect:
			a.mode = modeEdit
			a.editIdx = a.menuSel
			a.editOrig = fields[a.editIdx].get(a)
			a.editVal = a.editOrig
		case types.BtnBack:
			a.mode = modeClock
		}

	case modeEdit:
		f := &fields[a.editIdx]
		switch b {
		case types.BtnUp:
			a.editVal = f.adjust(a.editVal, 1)
		case types.BtnDown:
			a.editVal = f.adjust(a.editVal, -1)
		case types.BtnSelect:
			if err := f.apply(a, a.editVal); err != nil {
				a.status = " !! SAVE FAILED "
				a.statusUntil = a.lastInput.Add(statusHold)
			}
			a.mode = modeMenu
		case types.BtnBack:
			if a.editVal != a.editOrig {
				a.mode = modeConfirm
			} else {
				a.mode = modeMenu
			}
		}

	case modeConfirm:
		switch b {
		case types.BtnSelect:
			a.mode = modeMenu
		case types.BtnBack:
			a.mode = modeEdit
		}
	}
}

func wrapIndex(i, n int) int {
	if i < 0 {
		return n - 1
	}
	if i >= n {
		return 0
	}
	return i
}

func (a *App) persist() error {
	if a.save == nil {
		return nil
	}
	return a.save(a.set)
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

// Frame renders the current state. Pure: no bus access, no clock access.
func (a *App) Frame() Frame {
	f := BlankFrame()
	switch a.mode {
	case modeClock:
		a.renderClock(&f)
	case modeEnv:
		a.renderEnv(&f)
	case modeMenu:
		f.SetLine(0, []byte("SETTINGS"))
		a.renderMenuLine(&f, 1)
	case modeEdit:
		fld := &fields[a.editIdx]
		f.SetLine(0, []byte(fld.label))
		var buf [Cols]byte
		line := append(buf[:0], "> "...)
		line = fld.format(line, a.editVal)
		f.SetLine(1, line)
	case modeConfirm:
		f.SetLine(0, []byte("DISCARD CHANGES?"))
		f.SetLine(1, []byte("SEL=YES  BACK=NO"))
	}
	return f
}

func (a *App) renderClock(f *Frame) {
	var buf [Cols]byte
	line := buf[:0]

	if !a.haveTime {
		f.SetLine(0, []byte("--:--  -- --- --"))
		return
	}

	hour := a.ts.Hour
	marker := byte(' ')
	if a.set.TwelveHour {
		marker = 'A'
		if hour >= 12 {
			marker = 'P'
		}
		hour %= 12
		if hour == 0 {
			hour = 12
		}
	}
	line = appendPad2(line, int(hour))
	line = append(line, ':')
	line = appendPad2(line, int(a.ts.Minute))
	line = append(line, marker, ' ')
	line = appendPad2(line, int(a.ts.Day))
	line = append(line, ' ')
	line = append(line, types.MonthAbbrev(a.ts.Month)...)
	line = append(line, ' ')
	line = appendPad2(line, int(a.ts.Year%100))
	f.SetLine(0, line)

	switch {
	case a.status != "":
		f.SetLine(1, []byte(a.status))
	case a.alarmActive:
		if a.ts.Second%2 == 0 {
			f.SetLine(1, []byte("  ** ALARM **"))
		}
	default:
		line = buf[:0]
		line = append(line, "  T "...)
		line = appendEnvVal(line, a.env.DeciCelsius, a.haveEnv)
		line = append(line, "C  H "...)
		line = appendEnvVal(line, a.env.DeciRH, a.haveEnv)
		line = append(line, '%')
		f.SetLine(1, line)
	}
}

func (a *App) renderEnv(f *Frame) {
	var buf [Cols]byte

	line := append(buf[:0], "PM2.5: "...)
	line = appendConc(line, a.env.PM2_5, a.haveEnv)
	line = append(line, " ug/m3"...)
	f.SetLine(0, line)

	line = append(buf[:0], "PM10 : "...)
	line = appendConc(line, a.env.PM10, a.haveEnv)
	line = append(line, " ug/m3"...)
	f.SetLine(1, line)
}

func (a *App) renderMenuLine(f *Frame, row int) {
	var buf [Cols]byte
	line := append(buf[:0], "> "...)
	line = append(line, fields[a.menuSel].label...)
	f.SetLine(row, line)
	if a.status != "" {
		f.SetLine(0, []byte(a.status))
	}
}

func appendPad2(dst []byte, v int) []byte {
	var two [2]byte
	conv.Pad2(two[:], v)
	return append(dst, two[:]...)
}

// appendEnvVal renders a deci-scaled reading as a whole number, or "--"
// when absent.
func appendEnvVal(dst []byte, deci int32, have bool) []byte {
	if !have || deci < -999 {
		return append(dst, "--"...)
	}
	return conv.AppendInt(dst, int64(deci/10))
}

// appendConc renders a concentration, right-aligned to three cells.
func appendConc(dst []byte, v int32, have bool) []byte {
	if !have || v < 0 {
		return append(dst, " --"...)
	}
	var scratch [12]byte
	s := conv.Itoa(scratch[:], int64(v))
	for pad := 3 - len(s); pad > 0; pad-- {
		dst = append(dst, ' ')
	}
	return append(dst, s...)
}
