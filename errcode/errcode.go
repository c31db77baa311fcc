package errcode

// Code is a stable error identifier used across the firmware core.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Shared two-wire bus.
	BusNACK     Code = "bus_nack"     // transaction not acknowledged
	BusTimeout  Code = "bus_timeout"  // transaction timed out
	BusReleased Code = "bus_released" // claim used after release
	BusFault    Code = "bus_fault"    // lockup latched after repeated failures

	// Clock.
	InvalidTimestamp Code = "invalid_timestamp"

	// Settings store.
	StoreIO      Code = "store_io"
	StoreCorrupt Code = "store_corrupt"

	Unsupported Code = "unsupported"
	Error       Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// IsBus reports whether err is a transaction-level bus failure.
func IsBus(err error) bool {
	switch Of(err) {
	case BusNACK, BusTimeout, BusReleased, BusFault:
		return true
	default:
		return false
	}
}
