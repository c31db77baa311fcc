// Package types holds the value types shared between the panel services,
// the drivers, and external surfaces. Everything here is plain data: no
// goroutines, no bus access, no hardware.
package types

// -----------------------------------------------------------------------------
// Calendar time
// -----------------------------------------------------------------------------

// Timestamp is one calendar instant as kept by the clock chip.
// Weekday runs 1..7 (1 = Monday), matching the chip's day register.
type Timestamp struct {
	Year    int16 `json:"year"`
	Month   uint8 `json:"month"`
	Day     uint8 `json:"day"`
	Hour    uint8 `json:"hour"`
	Minute  uint8 `json:"minute"`
	Second  uint8 `json:"second"`
	Weekday uint8 `json:"weekday"`
}

// Valid reports whether every field is inside its calendar range.
// The clock chip stores two year digits, so Year is bounded to 2000..2099.
func (t Timestamp) Valid() bool {
	if t.Year < 2000 || t.Year > 2099 {
		return false
	}
	if t.Month < 1 || t.Month > 12 {
		return false
	}
	if t.Day < 1 || int(t.Day) > DaysInMonth(int(t.Year), int(t.Month)) {
		return false
	}
	if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
		return false
	}
	if t.Weekday < 1 || t.Weekday > 7 {
		return false
	}
	return true
}

// DaysInMonth returns the month length for the given year.
func DaysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func isLeapYear(y int) bool {
	if y%400 == 0 {
		return true
	}
	if y%100 == 0 {
		return false
	}
	return y%4 == 0
}

// WeekdayOf computes the 1..7 (Monday-based) weekday for a calendar date,
// so external time sources need not supply one.
func WeekdayOf(year, month, day int) uint8 {
	// Zeller, shifted so Monday = 1.
	if month < 3 {
		month += 12
		year--
	}
	k := year % 100
	j := year / 100
	h := (day + 13*(month+1)/5 + k + k/4 + j/4 + 5*j) % 7
	// h: 0 = Saturday. Map to ISO.
	return uint8((h+5)%7 + 1)
}

// MonthAbbrev returns the three-letter month tag used on the display.
func MonthAbbrev(month uint8) string {
	switch month {
	case 1:
		return "JAN"
	case 2:
		return "FEB"
	case 3:
		return "MAR"
	case 4:
		return "APR"
	case 5:
		return "MAY"
	case 6:
		return "JUN"
	case 7:
		return "JUL"
	case 8:
		return "AUG"
	case 9:
		return "SEP"
	case 10:
		return "OCT"
	case 11:
		return "NOV"
	case 12:
		return "DEC"
	default:
		return "???"
	}
}

// -----------------------------------------------------------------------------
// Buttons
// -----------------------------------------------------------------------------

// Button identifies one physical key on the panel.
type Button uint8

const (
	BtnSelect Button = iota
	BtnUp
	BtnDown
	BtnBack

	NumButtons = 4
)

func (b Button) String() string {
	switch b {
	case BtnSelect:
		return "select"
	case BtnUp:
		return "up"
	case BtnDown:
		return "down"
	case BtnBack:
		return "back"
	default:
		return "unknown"
	}
}

// ParseButton maps a console/wire name back to a Button.
func ParseButton(s string) (Button, bool) {
	switch s {
	case "select", "sel":
		return BtnSelect, true
	case "up":
		return BtnUp, true
	case "down", "dn":
		return BtnDown, true
	case "back":
		return BtnBack, true
	default:
		return 0, false
	}
}

// EventKind classifies one debounced button transition.
type EventKind uint8

const (
	Pressed EventKind = iota
	Released
	LongPress
	Repeat
)

func (k EventKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	case LongPress:
		return "long_press"
	case Repeat:
		return "repeat"
	default:
		return "unknown"
	}
}

// ButtonEvent is produced by the debouncer exactly once per stable physical
// transition (plus LongPress/Repeat while held).
type ButtonEvent struct {
	Button Button
	Kind   EventKind
}

// -----------------------------------------------------------------------------
// Environment readings
// -----------------------------------------------------------------------------

// EnvReport carries ambient readings shown on the panel. Values are
// fixed-point tenths; a negative concentration means "no reading".
type EnvReport struct {
	DeciCelsius int32 `json:"deci_c"`
	DeciRH      int32 `json:"deci_rh"`
	PM2_5       int32 `json:"pm2_5"`
	PM10        int32 `json:"pm10"`
}
