package panel

import (
	"context"
	"time"

	"buttonboard-go/bus"
	"buttonboard-go/errcode"
	"buttonboard-go/i2cbus"
	"buttonboard-go/settings"
	"buttonboard-go/types"
)

// Sampling defaults.
const (
	DefaultSampleEvery = 10 * time.Millisecond
	DefaultClockEvery  = time.Second
)

// PinReader samples the raw button levels, true = pressed.
type PinReader func() [types.NumButtons]bool

// Config carries the per-board timing constants for the service loop.
type Config struct {
	SampleEvery time.Duration
	ClockEvery  time.Duration
	Debounce    DebounceConfig
	IdleTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleEvery <= 0 {
		c.SampleEvery = DefaultSampleEvery
	}
	if c.ClockEvery <= 0 {
		c.ClockEvery = DefaultClockEvery
	}
	return c
}

// Service owns the panel hardware path: pins in, frames out, settings
// persisted. One goroutine, one Run.
type Service struct {
	cfg   Config
	arb   *i2cbus.Arbiter
	clock *Clock
	disp  *Display
	deb   *Debouncer
	pins  PinReader
	store settings.Store
	env   *EnvSensor
}

// AttachEnvSensor adds a local AHT20 as the environment source of last
// resort. Call before Run.
func (s *Service) AttachEnvSensor(arb *i2cbus.Arbiter) {
	s.env = NewEnvSensor(arb)
}

// NewService wires the adapters over one arbiter. delay nil selects
// time.Sleep for display timing.
func NewService(cfg Config, arb *i2cbus.Arbiter, pins PinReader, store settings.Store, delay func(time.Duration)) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		cfg:   cfg,
		arb:   arb,
		clock: NewClock(arb),
		disp:  NewDisplay(arb, delay),
		deb:   NewDebouncer(cfg.Debounce),
		pins:  pins,
		store: store,
	}
}

// Run is the cooperative main loop. It returns when ctx is cancelled or the
// bus latches a hard fault.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	loaded, err := settings.Load(s.store)
	if err != nil {
		// Corrupt storage is not fatal; note it and continue on defaults.
		publishState(conn, "settings_reset", err)
	}

	app := NewApp(AppConfig{
		Settings:    loaded,
		IdleTimeout: s.cfg.IdleTimeout,
		Save: func(st settings.Settings) error {
			return settings.Save(s.store, st)
		},
		WriteTime: s.clock.WriteTime,
	})

	// Best effort: the chip side minute alarm is housekeeping, not a
	// precondition.
	_ = s.clock.EnableMinuteAlarm()

	envSub := conn.Subscribe(bus.TopicEnvReport)
	injSub := conn.Subscribe(bus.TopicInject)
	defer conn.Disconnect()

	sample := time.NewTicker(s.cfg.SampleEvery)
	defer sample.Stop()
	clockTick := time.NewTicker(s.cfg.ClockEvery)
	defer clockTick.Stop()

	publishState(conn, "running", nil)

	emit := func(now time.Time) func(types.ButtonEvent) {
		return func(ev types.ButtonEvent) {
			conn.Publish(conn.NewMessage(bus.TopicButtonEvent, ev, false))
			app.HandleEvent(now, ev)
		}
	}

	realEnv := false
	for {
		select {
		case <-ctx.Done():
			publishState(conn, "stopped", ctx.Err())
			return ctx.Err()

		case <-sample.C:
			now := time.Now()
			s.deb.Sample(now, s.pins(), emit(now))
			app.Tick(now)
			_ = s.disp.SetBrightness(app.Settings().Brightness)
			// A failed render invalidates the shadow; this tick is simply
			// skipped and the next one resends.
			_ = s.disp.Render(app.Frame())
			if s.arb.Faulted() {
				e := &errcode.E{C: errcode.BusFault, Op: "panel.run"}
				publishState(conn, "bus_fault", e)
				return e
			}

		case <-clockTick.C:
			now := time.Now()
			if ts, err := s.clock.ReadTime(); err == nil {
				app.TickTime(now, ts)
				// Minute rollover: the chip's alarm 2 flag doubles as a
				// full-repaint edge, and polling keeps its INT latch clear.
				if fired, err := s.clock.PollAlarm(); err == nil && fired {
					s.disp.Invalidate()
				}
			}
			if !realEnv {
				if s.env != nil {
					if rep, ok := s.env.Poll(); ok {
						app.TickEnv(rep)
					}
				} else if deciC, err := s.clock.Temperature(); err == nil {
					app.TickEnv(types.EnvReport{
						DeciCelsius: deciC,
						DeciRH:      -10000,
						PM2_5:       -1,
						PM10:        -1,
					})
				}
			}

		case msg := <-envSub.Channel():
			if rep, ok := envPayload(msg.Payload); ok {
				realEnv = true
				app.TickEnv(rep)
			}

		case msg := <-injSub.Channel():
			now := time.Now()
			switch p := msg.Payload.(type) {
			case types.ButtonEvent:
				emit(now)(p)
			case types.Timestamp:
				if err := s.clock.WriteTime(p); err != nil {
					publishState(conn, "time_set_rejected", err)
				} else {
					app.TickTime(now, p)
				}
			}
		}
	}
}

func envPayload(p any) (types.EnvReport, bool) {
	switch rep := p.(type) {
	case types.EnvReport:
		return rep, true
	case *types.EnvReport:
		return *rep, true
	}
	return types.EnvReport{}, false
}

// publishState posts the retained service status so late subscribers see
// what the panel is doing.
func publishState(conn *bus.Connection, status string, err error) {
	payload := map[string]any{"status": status}
	if err != nil {
		payload["error"] = err.Error()
	}
	conn.Publish(conn.NewMessage(bus.TopicPanelState, payload, true))
}
