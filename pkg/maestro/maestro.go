// Package maestro drives a Pololu Maestro USB servo controller over its serial port with
// the compact protocol.
package maestro

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.bug.st/serial"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
)

const (
	CmdSetTarget = 0x84

	// Targets are in quarter-microseconds.  A target of 0 stops the pulses.
	ServoMinTarget = 600 * 4
	ServoMaxTarget = 2400 * 4
	TargetOff      = 0
)

type Controller struct {
	lock     sync.Mutex
	port     io.WriteCloser
	channels map[servo.Axis]byte
	enabled  map[servo.Axis]bool
}

func Open(path string, baudRate int, panChannel, tiltChannel int) (*Controller, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, errors.Wrapf(err, "opening Maestro on %s", path)
	}
	return New(port, panChannel, tiltChannel), nil
}

func New(port io.WriteCloser, panChannel, tiltChannel int) *Controller {
	return &Controller{
		port: port,
		channels: map[servo.Axis]byte{
			servo.Pan:  byte(panChannel),
			servo.Tilt: byte(tiltChannel),
		},
		enabled: map[servo.Axis]bool{},
	}
}

var _ servo.Driver = (*Controller)(nil)

// Target maps degrees in [-90, 90] onto a Maestro target.
func Target(degrees float64) uint16 {
	f := servo.DefaultRange.Fraction(degrees)
	return uint16(math.Round(ServoMinTarget + f*(ServoMaxTarget-ServoMinTarget)))
}

func (c *Controller) setTarget(channel byte, target uint16) error {
	_, err := c.port.Write([]byte{CmdSetTarget, channel, byte(target & 0x7f), byte((target >> 7) & 0x7f)})
	return err
}

func (c *Controller) Enable(axis servo.Axis, on bool) error {
	ch, ok := c.channels[axis]
	if !ok {
		return servo.ErrUnknownAxis
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.enabled[axis] = on
	if on {
		return nil
	}
	return c.setTarget(ch, TargetOff)
}

func (c *Controller) SetAngle(axis servo.Axis, degrees float64) error {
	ch, ok := c.channels[axis]
	if !ok {
		return servo.ErrUnknownAxis
	}
	if !servo.DefaultRange.Contains(degrees) {
		return fmt.Errorf("%v to %.1f: %w", axis, degrees, servo.ErrAngleOutside)
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.enabled[axis] {
		return fmt.Errorf("%v: %w", axis, servo.ErrDisabled)
	}
	return c.setTarget(ch, Target(degrees))
}

func (c *Controller) Close() error {
	return c.port.Close()
}
