//go:build !rp2040 && !rp2350

// panel-sim runs the firmware core on a host machine against simulated
// hardware: a DS3231 that tracks the host clock, an LCD whose expander
// traffic is decoded back into text, and the console on stdin.
//
//	press select | hold select | press up ... | time 2026-08-27 14:03:00
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"buttonboard-go/bus"
	"buttonboard-go/i2cbus"
	"buttonboard-go/services/console"
	"buttonboard-go/services/heartbeat"
	"buttonboard-go/services/panel"
	"buttonboard-go/settings"
	"buttonboard-go/types"
)

func main() {
	println("[sim] booting panel simulator")

	lcd := newSimLCD()
	rtc := newSimRTC()
	port := &simBus{lcd: lcd, rtc: rtc}

	arb := i2cbus.New(port, 0)
	b := bus.New(16)

	store := &settings.FileStore{Path: "panel-settings.json"}
	svc := panel.NewService(panel.Config{}, arb, func() [types.NumButtons]bool {
		return [types.NumButtons]bool{} // buttons come in via the console
	}, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	go func() {
		if err := svc.Run(ctx, b.NewConnection("panel")); err != nil && ctx.Err() == nil {
			println("[sim] panel stopped:", err.Error())
			cancel()
		}
	}()
	go func() {
		_ = console.New(os.Stdin).Run(ctx, b.NewConnection("console"))
	}()
	go func() {
		_ = heartbeat.New(0).Run(ctx, b.NewConnection("heartbeat"))
	}()

	// Repaint the terminal whenever the decoded LCD content changes.
	last := ""
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			println("[sim] bye")
			return
		case <-tick.C:
			if s := lcd.snapshot(); s != last {
				last = s
				println("+----------------+")
				println("|" + s[:panel.Cols] + "|")
				println("|" + s[panel.Cols:] + "|")
				println("+----------------+")
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Simulated bus
// -----------------------------------------------------------------------------

type simBus struct {
	lcd *simLCD
	rtc *simRTC
}

func (s *simBus) Tx(addr uint16, w, r []byte) error {
	switch addr {
	case 0x27:
		s.lcd.write(w)
		return nil
	case 0x68:
		return s.rtc.tx(w, r)
	}
	return nil
}

// simRTC maps the host clock, plus a settable offset, onto the DS3231
// register layout. Alarm/control registers are plain storage.
type simRTC struct {
	mu     sync.Mutex
	offset time.Duration
	regs   [0x13]byte
	ptr    int
}

func newSimRTC() *simRTC { return &simRTC{} }

func (c *simRTC) tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(w) > 0 {
		c.ptr = int(w[0])
		if c.ptr == 0 && len(w) == 8 {
			c.setTime(w[1:])
		} else {
			for i, b := range w[1:] {
				c.regs[c.ptr+i] = b
			}
		}
		if len(w) > 1 {
			c.ptr += len(w) - 1
		}
	}
	if len(r) > 0 {
		c.refreshTimeRegs()
		for i := range r {
			r[i] = c.regs[c.ptr+i]
		}
	}
	return nil
}

func (c *simRTC) setTime(regs []byte) {
	want := time.Date(
		2000+int(fromBCD(regs[6])),
		time.Month(fromBCD(regs[5]&0x7F)),
		int(fromBCD(regs[4])),
		int(fromBCD(regs[2]&0x3F)),
		int(fromBCD(regs[1])),
		int(fromBCD(regs[0]&0x7F)),
		0, time.Local)
	c.offset = time.Until(want)
}

func (c *simRTC) refreshTimeRegs() {
	now := time.Now().Add(c.offset)
	c.regs[0] = toBCD(now.Second())
	c.regs[1] = toBCD(now.Minute())
	c.regs[2] = toBCD(now.Hour())
	wd := int(now.Weekday())
	if wd == 0 {
		wd = 7
	}
	c.regs[3] = byte(wd)
	c.regs[4] = toBCD(now.Day())
	c.regs[5] = toBCD(int(now.Month()))
	c.regs[6] = toBCD(now.Year() % 100)
	// Die temperature: a fixed plausible 21.5 °C reading.
	c.regs[0x11] = 21
	c.regs[0x12] = 0x80
}

func fromBCD(b byte) byte { return b - 6*(b>>4) }
func toBCD(v int) byte    { return byte(v/10<<4 | v%10) }

// -----------------------------------------------------------------------------
// Simulated LCD
// -----------------------------------------------------------------------------

// simLCD decodes PCF8574 nibble traffic back into DDRAM text.
type simLCD struct {
	mu      sync.Mutex
	ddram   [0x68]byte
	cursor  int
	fourBit bool
	havehi  bool
	hi      byte
	lastEN  bool
}

func newSimLCD() *simLCD {
	l := &simLCD{}
	for i := range l.ddram {
		l.ddram[i] = ' '
	}
	return l
}

func (l *simLCD) write(w []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range w {
		en := v&(1<<2) != 0
		if l.lastEN && !en {
			l.latch(v)
		}
		l.lastEN = en
	}
}

// latch consumes one nibble on the enable falling edge.
func (l *simLCD) latch(v byte) {
	nib := v & 0xF0
	rs := v&1 != 0

	if !l.fourBit {
		// 8-bit wake-up phase: single nibbles until the 4-bit switch.
		if nib == 0x20 {
			l.fourBit = true
		}
		return
	}
	if !l.havehi {
		l.hi = nib
		l.havehi = true
		return
	}
	l.havehi = false
	l.exec(l.hi|nib>>4, rs)
}

func (l *simLCD) exec(b byte, rs bool) {
	if rs {
		if l.cursor >= 0 && l.cursor < len(l.ddram) {
			l.ddram[l.cursor] = b
			l.cursor++
		}
		return
	}
	switch {
	case b&0x80 != 0:
		l.cursor = int(b & 0x7F)
	case b == 0x01:
		for i := range l.ddram {
			l.ddram[i] = ' '
		}
		l.cursor = 0
	}
}

func (l *simLCD) snapshot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, 2*panel.Cols)
	copy(out[:panel.Cols], l.ddram[0:])
	copy(out[panel.Cols:], l.ddram[0x40:])
	return string(out)
}
