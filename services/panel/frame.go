// Package panel is the firmware core: the clock and display adapters over
// the bus arbiter, the input debouncer, the menu/clock state machine, and
// the cooperative service loop tying them together.
package panel

// Display geometry of the target board.
const (
	Rows = 2
	Cols = 16
)

// Frame is the full display content. Fixed-size arrays keep it comparable,
// so the render diff and tests are plain == on rows.
type Frame struct {
	Lines [Rows][Cols]byte
}

// BlankFrame returns a frame of spaces.
func BlankFrame() Frame {
	var f Frame
	for r := range f.Lines {
		for c := range f.Lines[r] {
			f.Lines[r][c] = ' '
		}
	}
	return f
}

// SetLine copies text into row, space-padded and truncated to the fixed
// width. Out-of-range rows are ignored.
func (f *Frame) SetLine(row int, text []byte) {
	if row < 0 || row >= Rows {
		return
	}
	for c := 0; c < Cols; c++ {
		if c < len(text) {
			f.Lines[row][c] = text[c]
		} else {
			f.Lines[row][c] = ' '
		}
	}
}

// Line returns row as a string, mainly for tests and the simulator.
func (f *Frame) Line(row int) string {
	if row < 0 || row >= Rows {
		return ""
	}
	return string(f.Lines[row][:])
}
