package pca9685

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/io/i2c"

	"github.com/tigerbot-team/tigerbot/pantilt/pkg/servo"
)

const (
	DefaultAddr = 0x40

	RegMode1 = 0x00

	// Each PWM output has two 16-bit (low byte first) registers.
	// First register is the on time, second is the off time.
	RegLEDBase = 0x06

	RegPreScale = 0xfe // Pre-scaler for PWM frequency.

	PWMPeriod = 20 * time.Millisecond

	// Pulse widths for -90 and +90 degrees.
	ServoMinPulseDuration = 600 * time.Microsecond
	ServoMaxPulseDuration = 2400 * time.Microsecond

	PWMMax = 4095

	ServoMinPWM = float64(PWMMax * ServoMinPulseDuration / PWMPeriod)
	ServoMaxPWM = float64(PWMMax * ServoMaxPulseDuration / PWMPeriod)

	NumPorts = 16
)

// Board is the raw register interface of the chip.
type Board interface {
	Configure() error
	SetServo(port int, value float64) error
	SetPWM(port int, value float64) error
	Close() error
}

type register interface {
	WriteReg(reg byte, buf []byte) error
	Close() error
}

type PCA9685 struct {
	dev register
}

func New(deviceFile string) (*PCA9685, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "opening PCA9685 on %s", deviceFile)
	}
	return &PCA9685{
		dev: dev,
	}, nil
}

func (p *PCA9685) Configure() (err error) {
	// Put device to sleep.
	err = p.dev.WriteReg(RegMode1, []byte{0x11})
	if err != nil {
		return
	}
	// Update pre-scaler for 50Hz.
	err = p.dev.WriteReg(RegPreScale, []byte{0x79})
	if err != nil {
		return
	}
	// Trigger a reset
	err = p.dev.WriteReg(RegMode1, []byte{0x01})
	if err != nil {
		return
	}
	// Required delay after reset.
	time.Sleep(1 * time.Millisecond)
	// Enable.
	err = p.dev.WriteReg(RegMode1, []byte{0x81})
	return
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	} else if v > 1 {
		return 1
	}
	return v
}

func checkPort(port int) error {
	if port < 0 || port >= NumPorts {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}

// SetServo sets the pulse width for a servo: 0 is the minimum pulse, 1 the maximum.
func (p *PCA9685) SetServo(port int, value float64) error {
	if err := checkPort(port); err != nil {
		return err
	}
	pwmValue := uint16(ServoMinPWM + clamp01(value)*(ServoMaxPWM-ServoMinPWM))
	return p.writeOffTime(port, pwmValue)
}

// SetPWM sets a raw duty cycle, 0 = fully off.
func (p *PCA9685) SetPWM(port int, value float64) error {
	if err := checkPort(port); err != nil {
		return err
	}
	return p.writeOffTime(port, uint16(PWMMax*clamp01(value)))
}

func (p *PCA9685) writeOffTime(port int, pwmValue uint16) error {
	addr := RegLEDBase + port*4
	return p.dev.WriteReg(byte(addr), []byte{0, 0, byte(pwmValue & 0xff), byte(pwmValue >> 8)})
}

func (p *PCA9685) Close() error {
	return p.dev.Close()
}

// Servos drives the pan and tilt servos from two ports of the board.  Releasing a servo
// stops its pulses altogether so it goes limp.
type Servos struct {
	lock    sync.Mutex
	board   Board
	ports   map[servo.Axis]int
	enabled map[servo.Axis]bool
}

func NewServos(board Board, panPort, tiltPort int) *Servos {
	return &Servos{
		board:   board,
		ports:   map[servo.Axis]int{servo.Pan: panPort, servo.Tilt: tiltPort},
		enabled: map[servo.Axis]bool{},
	}
}

var _ servo.Driver = (*Servos)(nil)

func (s *Servos) Enable(axis servo.Axis, on bool) error {
	port, ok := s.ports[axis]
	if !ok {
		return servo.ErrUnknownAxis
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.enabled[axis] = on
	if on {
		// Pulses start with the first SetAngle.
		return nil
	}
	return s.board.SetPWM(port, 0)
}

func (s *Servos) SetAngle(axis servo.Axis, degrees float64) error {
	port, ok := s.ports[axis]
	if !ok {
		return servo.ErrUnknownAxis
	}
	if !servo.DefaultRange.Contains(degrees) {
		return fmt.Errorf("%v to %.1f: %w", axis, degrees, servo.ErrAngleOutside)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.enabled[axis] {
		return fmt.Errorf("%v: %w", axis, servo.ErrDisabled)
	}
	return s.board.SetServo(port, servo.DefaultRange.Fraction(degrees))
}

func (s *Servos) Close() error {
	return s.board.Close()
}
