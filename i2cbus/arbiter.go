// Package i2cbus arbitrates one physical two-wire bus between several
// logical peripheral handles (clock, display). Access is granted one full
// logical transaction at a time: a handle acquires a claim, runs as many raw
// transfers as the transaction needs, and releases. Waiters park on the
// mutex, which on TinyGo's single-core scheduler is a cooperative yield.
package i2cbus

import (
	"sync"
	"sync/atomic"

	"buttonboard-go/errcode"

	"tinygo.org/x/drivers"
)

// DefaultFaultThreshold is the number of consecutive failed transactions
// after which the arbiter latches a hard fault.
const DefaultFaultThreshold = 8

// Arbiter owns the physical port and the exclusivity lock.
type Arbiter struct {
	mu   sync.Mutex
	port drivers.I2C

	faultThreshold uint32
	consecErrs     uint32
	faulted        uint32 // atomic; latched, never cleared
}

// New wraps a configured physical port. threshold <= 0 selects the default.
func New(port drivers.I2C, threshold int) *Arbiter {
	if threshold <= 0 {
		threshold = DefaultFaultThreshold
	}
	return &Arbiter{port: port, faultThreshold: uint32(threshold)}
}

// Faulted reports whether the lockup threshold has been reached. Once set it
// stays set; recovery is a board reset, not this core's concern.
func (a *Arbiter) Faulted() bool {
	return atomic.LoadUint32(&a.faulted) != 0
}

// Handle mints a named logical handle. Handles are cheap and long-lived;
// one per peripheral adapter.
func (a *Arbiter) Handle(name string) *Handle {
	return &Handle{a: a, name: name}
}

// Handle identifies one logical bus user.
type Handle struct {
	a    *Arbiter
	name string
}

func (h *Handle) Name() string { return h.name }

// Acquire blocks until the bus is free and returns a claim scoped to one
// logical transaction. Callers must Release on every exit path:
//
//	claim := h.Acquire()
//	defer claim.Release()
func (h *Handle) Acquire() *Claim {
	h.a.mu.Lock()
	return &Claim{h: h}
}

// Do runs one logical transaction under the bus lock. The claim passed to fn
// is only valid until fn returns.
func (h *Handle) Do(fn func(bus drivers.I2C) error) error {
	claim := h.Acquire()
	defer claim.Release()
	return fn(claim)
}

// Claim is exclusive ownership of the bus for one transaction. It implements
// drivers.I2C so register drivers can run against it directly.
type Claim struct {
	h        *Handle
	released bool
	failed   bool
}

// Tx performs one raw transfer. After Release it fails without touching the
// port.
func (c *Claim) Tx(addr uint16, w, r []byte) error {
	if c.released {
		return &errcode.E{C: errcode.BusReleased, Op: "i2cbus.tx", Msg: c.h.name}
	}
	if err := c.h.a.port.Tx(addr, w, r); err != nil {
		c.failed = true
		return &errcode.E{C: errcode.BusNACK, Op: "i2cbus.tx", Msg: c.h.name, Err: err}
	}
	return nil
}

// Release returns the bus. Safe to call more than once; only the first call
// has effect. The transaction outcome feeds the lockup counter.
func (c *Claim) Release() {
	if c.released {
		return
	}
	c.released = true
	c.h.a.noteOutcome(c.failed)
	c.h.a.mu.Unlock()
}

// noteOutcome is called with the lock still held.
func (a *Arbiter) noteOutcome(failed bool) {
	if !failed {
		a.consecErrs = 0
		return
	}
	a.consecErrs++
	if a.consecErrs >= a.faultThreshold {
		atomic.StoreUint32(&a.faulted, 1)
	}
}
