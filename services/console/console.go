// Package console is the external event-injection surface: newline-separated
// commands from a serial port or stdin, turned into messages on the inject
// topic. It never touches the peripheral bus or the state machine directly.
//
// Commands:
//
//	press <select|up|down|back>
//	hold <select|up|down|back>
//	time YYYY-MM-DD HH:MM:SS
package console

import (
	"bufio"
	"context"
	"io"
	"strings"

	"buttonboard-go/bus"
	"buttonboard-go/errcode"
	"buttonboard-go/types"
	"buttonboard-go/x/conv"
)

// ParseLine turns one command line into the payloads to inject, in order.
// Blank lines and #-comments yield an empty list.
func ParseLine(line string) ([]any, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil, nil
	}

	switch fields[0] {
	case "press", "hold":
		if len(fields) != 2 {
			return nil, &errcode.E{C: errcode.Unsupported, Op: "console.parse", Msg: "usage: " + fields[0] + " <button>"}
		}
		b, ok := types.ParseButton(fields[1])
		if !ok {
			return nil, &errcode.E{C: errcode.Unsupported, Op: "console.parse", Msg: "unknown button " + fields[1]}
		}
		if fields[0] == "hold" {
			return []any{
				types.ButtonEvent{Button: b, Kind: types.Pressed},
				types.ButtonEvent{Button: b, Kind: types.LongPress},
				types.ButtonEvent{Button: b, Kind: types.Released},
			}, nil
		}
		return []any{
			types.ButtonEvent{Button: b, Kind: types.Pressed},
			types.ButtonEvent{Button: b, Kind: types.Released},
		}, nil

	case "time":
		if len(fields) != 3 {
			return nil, &errcode.E{C: errcode.Unsupported, Op: "console.parse", Msg: "usage: time YYYY-MM-DD HH:MM:SS"}
		}
		ts, err := parseTimestamp(fields[1], fields[2])
		if err != nil {
			return nil, err
		}
		return []any{ts}, nil

	default:
		return nil, &errcode.E{C: errcode.Unsupported, Op: "console.parse", Msg: "unknown command " + fields[0]}
	}
}

func parseTimestamp(date, clock string) (types.Timestamp, error) {
	bad := &errcode.E{C: errcode.InvalidTimestamp, Op: "console.parse", Msg: date + " " + clock}

	d := strings.Split(date, "-")
	c := strings.Split(clock, ":")
	if len(d) != 3 || len(c) != 3 {
		return types.Timestamp{}, bad
	}
	year, ok1 := conv.ParseUint(d[0])
	month, ok2 := conv.ParseUint(d[1])
	day, ok3 := conv.ParseUint(d[2])
	hour, ok4 := conv.ParseUint(c[0])
	minute, ok5 := conv.ParseUint(c[1])
	second, ok6 := conv.ParseUint(c[2])
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
		return types.Timestamp{}, bad
	}

	ts := types.Timestamp{
		Year:   int16(year),
		Month:  uint8(month),
		Day:    uint8(day),
		Hour:   uint8(hour),
		Minute: uint8(minute),
		Second: uint8(second),
	}
	if ts.Month >= 1 && ts.Month <= 12 {
		ts.Weekday = types.WeekdayOf(year, month, day)
	}
	if !ts.Valid() {
		return types.Timestamp{}, bad
	}
	return ts, nil
}

// Service reads command lines from one port and injects them.
type Service struct {
	port io.Reader
}

// New wraps a line-oriented port (UART, stdin, a test pipe).
func New(port io.Reader) *Service {
	return &Service{port: port}
}

// Run consumes the port until EOF or cancellation. Parse errors are reported
// on the panel state topic and skipped.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		payloads, err := ParseLine(scanner.Text())
		if err != nil {
			conn.Publish(conn.NewMessage(bus.TopicPanelState,
				map[string]any{"status": "console_error", "error": err.Error()}, false))
			continue
		}
		for _, p := range payloads {
			conn.Publish(conn.NewMessage(bus.TopicInject, p, false))
		}
	}
	return scanner.Err()
}
