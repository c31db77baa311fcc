package heartbeat

import (
	"context"
	"testing"
	"time"

	"buttonboard-go/bus"
)

func TestBeatsArriveAndRetain(t *testing.T) {
	b := bus.New(8)
	watcher := b.NewConnection("test")
	sub := watcher.Subscribe(bus.TopicHeartbeat)
	defer watcher.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(time.Millisecond).Run(ctx, b.NewConnection("hb"))
	}()

	timeout := time.After(2 * time.Second)
	var beats []uint32
	for len(beats) < 3 {
		select {
		case msg := <-sub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if !ok {
				t.Fatalf("payload = %T", msg.Payload)
			}
			beats = append(beats, m["beat"].(uint32))
		case <-timeout:
			t.Fatalf("got %d beats", len(beats))
		}
	}
	if beats[0] >= beats[1] || beats[1] >= beats[2] {
		t.Fatalf("beats not increasing: %v", beats)
	}

	// Retained: a late subscriber sees the last beat immediately.
	late := b.NewConnection("late")
	lateSub := late.Subscribe(bus.TopicHeartbeat)
	defer late.Disconnect()
	select {
	case msg := <-lateSub.Channel():
		if _, ok := msg.Payload.(map[string]any); !ok {
			t.Fatalf("retained payload = %T", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no retained beat delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
