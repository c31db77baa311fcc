// Package settings holds the persisted user preferences and their codec.
//
// The on-medium format is a small JSON object. Decoding is tolerant:
// unknown keys are ignored, missing keys keep their defaults, and anything
// structurally wrong degrades to the defaults rather than wedging boot.
package settings

import (
	"github.com/andreyvit/tinyjson"

	"buttonboard-go/errcode"
	"buttonboard-go/x/conv"
	"buttonboard-go/x/mathx"
)

// Settings are the user-adjustable preferences.
type Settings struct {
	Brightness   uint8 // 0..9 backlight steps
	TwelveHour   bool
	AlarmEnabled bool
	AlarmHour    uint8 // 0..23
	AlarmMinute  uint8 // 0..59
}

// Defaults are applied on first boot and after corruption.
func Defaults() Settings {
	return Settings{
		Brightness:   5,
		TwelveHour:   false,
		AlarmEnabled: false,
		AlarmHour:    7,
		AlarmMinute:  0,
	}
}

// Normalize folds every field into range. Brightness saturates, the alarm
// time wraps.
func (s Settings) Normalize() Settings {
	s.Brightness = mathx.Clamp(s.Brightness, 0, 9)
	s.AlarmHour = uint8(mathx.Wrap(int(s.AlarmHour), 0, 23))
	s.AlarmMinute = uint8(mathx.Wrap(int(s.AlarmMinute), 0, 59))
	return s
}

// Encode appends the JSON form to dst and returns it. Allocation-free when
// dst has capacity.
func (s Settings) Encode(dst []byte) []byte {
	dst = append(dst, `{"brightness":`...)
	dst = conv.AppendInt(dst, int64(s.Brightness))
	dst = append(dst, `,"twelve_hour":`...)
	dst = appendBool(dst, s.TwelveHour)
	dst = append(dst, `,"alarm_enabled":`...)
	dst = appendBool(dst, s.AlarmEnabled)
	dst = append(dst, `,"alarm_hour":`...)
	dst = conv.AppendInt(dst, int64(s.AlarmHour))
	dst = append(dst, `,"alarm_minute":`...)
	dst = conv.AppendInt(dst, int64(s.AlarmMinute))
	dst = append(dst, '}')
	return dst
}

// Decode parses raw and returns normalized settings. Malformed input returns
// store_corrupt together with the defaults, so the caller always has a
// usable value.
func Decode(raw []byte) (s Settings, err error) {
	s = Defaults()
	defer func() {
		if recover() != nil {
			s = Defaults()
			err = &errcode.E{C: errcode.StoreCorrupt, Op: "settings.decode", Msg: "malformed payload"}
		}
	}()

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return Defaults(), &errcode.E{C: errcode.StoreCorrupt, Op: "settings.decode", Msg: "not an object"}
	}
	if v, ok := asInt(m["brightness"]); ok {
		s.Brightness = uint8(mathx.Clamp(v, 0, 9))
	}
	if v, ok := m["twelve_hour"].(bool); ok {
		s.TwelveHour = v
	}
	if v, ok := m["alarm_enabled"].(bool); ok {
		s.AlarmEnabled = v
	}
	if v, ok := asInt(m["alarm_hour"]); ok {
		s.AlarmHour = uint8(mathx.Wrap(v, 0, 23))
	}
	if v, ok := asInt(m["alarm_minute"]); ok {
		s.AlarmMinute = uint8(mathx.Wrap(v, 0, 59))
	}
	return s, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, "true"...)
	}
	return append(dst, "false"...)
}
