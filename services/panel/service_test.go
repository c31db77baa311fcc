package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"buttonboard-go/bus"
	"buttonboard-go/i2cbus"
	"buttonboard-go/settings"
	"buttonboard-go/types"
)

// boardPort emulates both chips on one bus: a DS3231 register file at 0x68
// and the display backpack at 0x27, whose nibble traffic is decoded back
// into DDRAM text so tests can read what the panel shows.
type boardPort struct {
	mu      sync.Mutex
	regs    [0x13]byte
	lastReg int
	rtcErr  error

	lcdTxs  int
	ddram   [0x68]byte
	cursor  int
	fourBit bool
	havehi  bool
	hi      byte
	lastEN  bool
}

func newBoardPort() *boardPort {
	p := &boardPort{}
	for i := range p.ddram {
		p.ddram[i] = ' '
	}
	return p
}

func (p *boardPort) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if addr == 0x27 {
		p.lcdTxs += len(w)
		for _, v := range w {
			en := v&(1<<2) != 0
			if p.lastEN && !en {
				p.latch(v)
			}
			p.lastEN = en
		}
		return nil
	}
	if p.rtcErr != nil {
		return p.rtcErr
	}
	if len(w) > 0 {
		p.lastReg = int(w[0])
		for i, b := range w[1:] {
			p.regs[p.lastReg+i] = b
		}
		if len(w) > 1 {
			p.lastReg += len(w) - 1
		}
	}
	for i := range r {
		r[i] = p.regs[p.lastReg+i]
	}
	return nil
}

// latch consumes one nibble on the enable falling edge.
func (p *boardPort) latch(v byte) {
	nib := v & 0xF0
	rs := v&1 != 0
	if !p.fourBit {
		if nib == 0x20 {
			p.fourBit = true
		}
		return
	}
	if !p.havehi {
		p.hi = nib
		p.havehi = true
		return
	}
	p.havehi = false
	b := p.hi | nib>>4
	if rs {
		if p.cursor >= 0 && p.cursor < len(p.ddram) {
			p.ddram[p.cursor] = b
			p.cursor++
		}
		return
	}
	switch {
	case b&0x80 != 0:
		p.cursor = int(b & 0x7F)
	case b == 0x01:
		for i := range p.ddram {
			p.ddram[i] = ' '
		}
		p.cursor = 0
	}
}

func (p *boardPort) lcdTraffic() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lcdTxs
}

func (p *boardPort) line(row int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	off := [2]int{0x00, 0x40}[row]
	return string(p.ddram[off : off+Cols])
}

func (p *boardPort) failRTC(err error) {
	p.mu.Lock()
	p.rtcErr = err
	p.mu.Unlock()
}

func (p *boardPort) setReg(reg int, v byte) {
	p.mu.Lock()
	p.regs[reg] = v
	p.mu.Unlock()
}

func (p *boardPort) reg(reg int) byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.regs[reg]
}

// setClock loads the calendar registers, values already BCD.
func (p *boardPort) setClock(sec, min, hour, wd, day, mon, yr byte) {
	p.mu.Lock()
	p.regs[0] = sec
	p.regs[1] = min
	p.regs[2] = hour
	p.regs[3] = wd
	p.regs[4] = day
	p.regs[5] = mon
	p.regs[6] = yr
	p.mu.Unlock()
}

func waitState(t *testing.T, sub *bus.Subscription, status string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg := <-sub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if ok && m["status"] == status {
				return
			}
		case <-timeout:
			t.Fatalf("no %q state published", status)
		}
	}
}

func waitLine(t *testing.T, port *boardPort, row int, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if port.line(row) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("line %d = %q, want %q", row, port.line(row), want)
}

func TestServiceLoop(t *testing.T) {
	port := newBoardPort()
	arb := i2cbus.New(port, 0)
	b := bus.New(16)

	var pinMu sync.Mutex
	var pins [types.NumButtons]bool
	readPins := func() [types.NumButtons]bool {
		pinMu.Lock()
		defer pinMu.Unlock()
		return pins
	}

	store := &settings.SlotStore{Slots: [2]settings.Page{settings.NewMemPage(128), settings.NewMemPage(128)}}
	svc := NewService(Config{
		SampleEvery: time.Millisecond,
		ClockEvery:  5 * time.Millisecond,
	}, arb, readPins, store, noDelay)

	watcher := b.NewConnection("test")
	stateSub := watcher.Subscribe(bus.TopicPanelState)
	btnSub := watcher.Subscribe(bus.TopicButtonEvent)
	defer watcher.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, b.NewConnection("panel"))
	}()

	waitState(t, stateSub, "running")

	// A few ticks in, the display must have been drawn.
	time.Sleep(20 * time.Millisecond)
	if port.lcdTraffic() == 0 {
		t.Fatal("no display traffic after startup")
	}

	// A physical press surfaces as a published event.
	pinMu.Lock()
	pins[types.BtnSelect] = true
	pinMu.Unlock()
	select {
	case msg := <-btnSub.Channel():
		ev, ok := msg.Payload.(types.ButtonEvent)
		if !ok || ev.Button != types.BtnSelect || ev.Kind != types.Pressed {
			t.Fatalf("event = %v, want Select Pressed", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("press never published")
	}

	// An injected event takes the same path.
	watcher.Publish(watcher.NewMessage(bus.TopicInject,
		types.ButtonEvent{Button: types.BtnBack, Kind: types.Pressed}, false))
	deadline := time.After(2 * time.Second)
	for {
		var got types.ButtonEvent
		select {
		case msg := <-btnSub.Channel():
			got, _ = msg.Payload.(types.ButtonEvent)
		case <-deadline:
			t.Fatal("injected event never republished")
		}
		if got.Button == types.BtnBack {
			break
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestClockTickSurvivesNACKs(t *testing.T) {
	port := newBoardPort()
	port.setClock(0x05, 0x34, 0x12, 4, 0x27, 0x08, 0x26)
	// Threshold far above what the outage produces: a flaky chip is a
	// degradation, not a lockup.
	arb := i2cbus.New(port, 1000)
	b := bus.New(16)

	store := &settings.SlotStore{Slots: [2]settings.Page{settings.NewMemPage(128), settings.NewMemPage(128)}}
	svc := NewService(Config{
		SampleEvery: time.Millisecond,
		ClockEvery:  5 * time.Millisecond,
	}, arb, func() [types.NumButtons]bool { return [types.NumButtons]bool{} }, store, noDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, b.NewConnection("panel"))
	}()

	waitLine(t, port, 0, "12:34  27 AUG 26")

	// The chip stops answering; the time advances underneath it.
	port.failRTC(errors.New("nack"))
	port.setReg(1, 0x35)
	time.Sleep(40 * time.Millisecond)

	if got := port.line(0); got != "12:34  27 AUG 26" {
		t.Fatalf("line 0 changed during outage: %q", got)
	}
	if arb.Faulted() {
		t.Fatal("outage latched a bus fault")
	}
	select {
	case err := <-done:
		t.Fatalf("service stopped during outage: %v", err)
	default:
	}

	// Chip answers again: the next good read brings the display forward.
	port.failRTC(nil)
	waitLine(t, port, 0, "12:35  27 AUG 26")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestAlarmFlagForcesRepaint(t *testing.T) {
	port := newBoardPort()
	port.setClock(0x05, 0x34, 0x12, 4, 0x27, 0x08, 0x26)
	arb := i2cbus.New(port, 0)
	b := bus.New(16)

	store := &settings.SlotStore{Slots: [2]settings.Page{settings.NewMemPage(128), settings.NewMemPage(128)}}
	svc := NewService(Config{
		SampleEvery: time.Millisecond,
		ClockEvery:  5 * time.Millisecond,
	}, arb, func() [types.NumButtons]bool { return [types.NumButtons]bool{} }, store, noDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx, b.NewConnection("panel"))
	}()

	waitLine(t, port, 0, "12:34  27 AUG 26")

	// With frozen registers the frame is static, so traffic settles.
	baseline := port.lcdTraffic()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(15 * time.Millisecond)
		if n := port.lcdTraffic(); n == baseline {
			break
		} else {
			baseline = n
		}
	}

	// Raise the alarm 2 matched flag, as the chip does at minute rollover.
	port.setReg(0x0F, 0x02)

	// The service must clear the flag and repaint the unchanged frame.
	deadline = time.Now().Add(2 * time.Second)
	for port.reg(0x0F)&0x02 != 0 {
		if !time.Now().Before(deadline) {
			t.Fatal("alarm flag never cleared")
		}
		time.Sleep(time.Millisecond)
	}
	deadline = time.Now().Add(2 * time.Second)
	for port.lcdTraffic() <= baseline {
		if !time.Now().Before(deadline) {
			t.Fatal("no repaint after alarm flag")
		}
		time.Sleep(time.Millisecond)
	}
	if got := port.line(0); got != "12:34  27 AUG 26" {
		t.Fatalf("repaint corrupted line 0: %q", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}
