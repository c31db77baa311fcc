package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"buttonboard-go/bus"
	"buttonboard-go/errcode"
	"buttonboard-go/types"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line    string
		want    []any
		wantErr errcode.Code
	}{
		{line: ""},
		{line: "   "},
		{line: "# comment"},
		{
			line: "press select",
			want: []any{
				types.ButtonEvent{Button: types.BtnSelect, Kind: types.Pressed},
				types.ButtonEvent{Button: types.BtnSelect, Kind: types.Released},
			},
		},
		{
			line: "hold up",
			want: []any{
				types.ButtonEvent{Button: types.BtnUp, Kind: types.Pressed},
				types.ButtonEvent{Button: types.BtnUp, Kind: types.LongPress},
				types.ButtonEvent{Button: types.BtnUp, Kind: types.Released},
			},
		},
		{
			line: "time 2026-08-27 14:03:00",
			want: []any{types.Timestamp{
				Year: 2026, Month: 8, Day: 27,
				Hour: 14, Minute: 3, Second: 0, Weekday: 4,
			}},
		},
		{line: "press", wantErr: errcode.Unsupported},
		{line: "press fire", wantErr: errcode.Unsupported},
		{line: "reboot", wantErr: errcode.Unsupported},
		{line: "time 2026-13-01 00:00:00", wantErr: errcode.InvalidTimestamp},
		{line: "time 2026-08-27 25:00:00", wantErr: errcode.InvalidTimestamp},
		{line: "time yesterday 14:03:00", wantErr: errcode.InvalidTimestamp},
	}

	for _, tc := range cases {
		got, err := ParseLine(tc.line)
		if tc.wantErr != "" {
			if errcode.Of(err) != tc.wantErr {
				t.Errorf("ParseLine(%q) err = %v, want %v", tc.line, err, tc.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseLine(%q): %v", tc.line, err)
			continue
		}
		if len(got) != len(tc.want) {
			t.Errorf("ParseLine(%q) = %v, want %v", tc.line, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("ParseLine(%q)[%d] = %v, want %v", tc.line, i, got[i], tc.want[i])
			}
		}
	}
}

func TestRunInjectsParsedCommands(t *testing.T) {
	b := bus.New(16)
	listener := b.NewConnection("test")
	sub := listener.Subscribe(bus.TopicInject)
	defer listener.Disconnect()

	input := "press select\nbogus\ntime 2026-08-27 14:03:00\n"
	svc := New(strings.NewReader(input))
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(context.Background(), b.NewConnection("console"))
	}()

	var payloads []any
	timeout := time.After(2 * time.Second)
	for len(payloads) < 3 {
		select {
		case msg := <-sub.Channel():
			payloads = append(payloads, msg.Payload)
		case <-timeout:
			t.Fatalf("timed out with %d payloads", len(payloads))
		}
	}

	if ev, ok := payloads[0].(types.ButtonEvent); !ok || ev.Kind != types.Pressed {
		t.Errorf("payload[0] = %v, want Pressed", payloads[0])
	}
	if ev, ok := payloads[1].(types.ButtonEvent); !ok || ev.Kind != types.Released {
		t.Errorf("payload[1] = %v, want Released", payloads[1])
	}
	if ts, ok := payloads[2].(types.Timestamp); !ok || ts.Hour != 14 {
		t.Errorf("payload[2] = %v, want timestamp", payloads[2])
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not finish at EOF")
	}
}
