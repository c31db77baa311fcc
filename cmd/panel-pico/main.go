//go:build rp2040

// panel-pico wires the firmware core to a Pico board: I2C0 for the clock
// and display, four buttons on GP18..GP21 (active low, internal pull-ups),
// settings in the last two flash sectors, console on UART0.
package main

import (
	"context"
	"time"

	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"buttonboard-go/bus"
	"buttonboard-go/i2cbus"
	"buttonboard-go/services/console"
	"buttonboard-go/services/heartbeat"
	"buttonboard-go/services/panel"
	"buttonboard-go/settings"
	"buttonboard-go/types"
)

const (
	pinSDA = machine.GP4
	pinSCL = machine.GP5
)

var buttonPins = [types.NumButtons]machine.Pin{
	machine.GP18, // select
	machine.GP19, // up
	machine.GP20, // down
	machine.GP21, // back
}

func main() {
	time.Sleep(2 * time.Second)
	println("[panel] boot")

	if err := machine.I2C0.Configure(machine.I2CConfig{
		Frequency: 400_000,
		SDA:       pinSDA,
		SCL:       pinSCL,
	}); err != nil {
		println("[panel] i2c configure failed:", err.Error())
	}

	for _, p := range buttonPins {
		p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}

	_ = uartx.UART0.Configure(uartx.UARTConfig{BaudRate: 115200})

	arb := i2cbus.New(machine.I2C0, 0)
	b := bus.New(8)

	store := &settings.SlotStore{Slots: [2]settings.Page{
		newFlashPage(0),
		newFlashPage(1),
	}}

	svc := panel.NewService(panel.Config{}, arb, readButtons, store, nil)
	svc.AttachEnvSensor(arb)

	ctx := context.Background()
	go func() {
		_ = console.New(&uartReader{u: uartx.UART0}).Run(ctx, b.NewConnection("console"))
	}()
	go func() {
		_ = heartbeat.New(0).Run(ctx, b.NewConnection("heartbeat"))
	}()

	println("[panel] running")
	if err := svc.Run(ctx, b.NewConnection("panel")); err != nil {
		// Bus lockup: nothing left to do but flag it for the watchdog.
		println("[panel] fatal:", err.Error())
	}
	for {
		time.Sleep(time.Second)
	}
}

// readButtons samples the raw levels; pressed pulls the pin low.
func readButtons() [types.NumButtons]bool {
	var raw [types.NumButtons]bool
	for i, p := range buttonPins {
		raw[i] = !p.Get()
	}
	return raw
}

// uartReader adapts uartx's context read to io.Reader for the console.
type uartReader struct {
	u *uartx.UART
}

func (r *uartReader) Read(p []byte) (int, error) {
	return r.u.RecvSomeContext(context.Background(), p)
}

// flashPage is one erase block at the top of on-board flash.
type flashPage struct {
	index int64 // 0 = second-to-last block, 1 = last block
}

func newFlashPage(index int64) *flashPage { return &flashPage{index: index} }

func (f *flashPage) blockOffset() int64 {
	blocks := machine.Flash.Size() / machine.Flash.EraseBlockSize()
	return (blocks - 2 + f.index) * machine.Flash.EraseBlockSize()
}

func (f *flashPage) Len() int {
	return int(machine.Flash.EraseBlockSize())
}

func (f *flashPage) Read(dst []byte) error {
	_, err := machine.Flash.ReadAt(dst, f.blockOffset())
	return err
}

func (f *flashPage) Write(src []byte) error {
	off := f.blockOffset()
	if err := machine.Flash.EraseBlocks(off/machine.Flash.EraseBlockSize(), 1); err != nil {
		return err
	}
	buf := make([]byte, f.Len())
	for i := range buf {
		buf[i] = 0xFF
	}
	copy(buf, src)
	_, err := machine.Flash.WriteAt(buf, off)
	return err
}
