package panel

import (
	"buttonboard-go/drivers/aht20"
	"buttonboard-go/i2cbus"
	"buttonboard-go/types"
)

// EnvSensor is the optional on-bus AHT20, used when no external environment
// report is arriving. Trigger and Collect run on separate claims so the bus
// is never held across the sensor's conversion time.
type EnvSensor struct {
	dev     aht20.Device
	h       *i2cbus.Handle
	inited  bool
	pending bool
}

// NewEnvSensor binds the sensor to the shared bus.
func NewEnvSensor(arb *i2cbus.Arbiter) *EnvSensor {
	return &EnvSensor{dev: aht20.New(0), h: arb.Handle("env")}
}

// Poll advances the trigger/collect cycle by one step. It returns a report
// and true when a conversion completed. Errors just restart the cycle; the
// next poll retries.
func (s *EnvSensor) Poll() (types.EnvReport, bool) {
	claim := s.h.Acquire()
	defer claim.Release()

	if !s.inited {
		if err := s.dev.Configure(claim); err != nil {
			return types.EnvReport{}, false
		}
		s.inited = true
	}

	if !s.pending {
		s.pending = s.dev.Trigger(claim) == nil
		return types.EnvReport{}, false
	}

	sample, err := s.dev.Collect(claim)
	if err == aht20.ErrNotReady {
		return types.EnvReport{}, false
	}
	s.pending = false
	if err != nil {
		return types.EnvReport{}, false
	}
	return types.EnvReport{
		DeciCelsius: sample.DeciCelsius(),
		DeciRH:      sample.DeciRelHumidity(),
		PM2_5:       -1,
		PM10:        -1,
	}, true
}
