// Package pantilthat drives the Pimoroni Pan-Tilt HAT: a small microcontroller on the I2C
// bus that generates the pulses for two servos.
package pantilthat

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
)

const (
	Addr = 0x15

	RegConfig = 0x00
	// Each servo has a 16-bit (low byte first) pulse width register, in microseconds.
	RegServo1 = 0x01
	RegServo2 = 0x03

	ConfigServo1Enable = 1 << 0
	ConfigServo2Enable = 1 << 1

	ServoMinPulseMicros = 575
	ServoMaxPulseMicros = 2325
)

type HAT struct {
	lock   sync.Mutex
	dev    *i2c.Dev
	closer io.Closer
	config byte
}

// New opens the named I2C bus ("" for the first one) and releases both servos.
func New(busName string) (*HAT, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "initialising periph")
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, errors.Wrapf(err, "opening I2C bus %q", busName)
	}
	h := NewWithBus(bus)
	h.closer = bus
	if err := h.writeConfig(); err != nil {
		_ = bus.Close()
		return nil, errors.Wrap(err, "Pan-Tilt HAT not responding")
	}
	return h, nil
}

// NewWithBus wraps an already-open bus.  Nothing is written until the first call.
func NewWithBus(bus i2c.Bus) *HAT {
	return &HAT{
		dev: &i2c.Dev{Bus: bus, Addr: Addr},
	}
}

var _ servo.Driver = (*HAT)(nil)

func axisRegs(axis servo.Axis) (enableBit byte, reg byte, err error) {
	switch axis {
	case servo.Pan:
		return ConfigServo1Enable, RegServo1, nil
	case servo.Tilt:
		return ConfigServo2Enable, RegServo2, nil
	}
	return 0, 0, servo.ErrUnknownAxis
}

func (h *HAT) Enable(axis servo.Axis, on bool) error {
	bit, _, err := axisRegs(axis)
	if err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if on {
		h.config |= bit
	} else {
		h.config &^= bit
	}
	return h.writeConfig()
}

func (h *HAT) writeConfig() error {
	return h.dev.Tx([]byte{RegConfig, h.config}, nil)
}

// PulseMicros maps an angle in [-90, 90] onto the HAT's pulse width range.
func PulseMicros(degrees float64) uint16 {
	f := servo.DefaultRange.Fraction(degrees)
	return uint16(math.Round(ServoMinPulseMicros + f*(ServoMaxPulseMicros-ServoMinPulseMicros)))
}

func (h *HAT) SetAngle(axis servo.Axis, degrees float64) error {
	bit, reg, err := axisRegs(axis)
	if err != nil {
		return err
	}
	if !servo.DefaultRange.Contains(degrees) {
		return fmt.Errorf("%v to %.1f: %w", axis, degrees, servo.ErrAngleOutside)
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.config&bit == 0 {
		return fmt.Errorf("%v: %w", axis, servo.ErrDisabled)
	}
	us := PulseMicros(degrees)
	return h.dev.Tx([]byte{reg, byte(us & 0xff), byte(us >> 8)}, nil)
}

func (h *HAT) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer.Close()
}
