package servo

import (
	"errors"
	"fmt"
)

type Axis int

const (
	Pan Axis = iota
	Tilt
)

var Axes = []Axis{Pan, Tilt}

func (a Axis) String() string {
	switch a {
	case Pan:
		return "pan"
	case Tilt:
		return "tilt"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

func ParseAxis(s string) (Axis, error) {
	switch s {
	case "pan", "p":
		return Pan, nil
	case "tilt", "t":
		return Tilt, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

var (
	ErrDisabled     = errors.New("servo disabled")
	ErrUnknownAxis  = errors.New("unknown axis")
	ErrAngleOutside = errors.New("angle outside servo range")
)

// Driver is the physical pan/tilt servo pair.  Angles are degrees, 0 is the centre.
type Driver interface {
	// Enable energises (true) or releases (false) one servo.
	Enable(axis Axis, on bool) error
	SetAngle(axis Axis, degrees float64) error
	Close() error
}

// Range is a closed interval of angles, in degrees.
type Range struct {
	Min, Max float64
}

var DefaultRange = Range{Min: -90, Max: 90}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Fraction maps v onto 0..1 across the range, clamping outside values.
func (r Range) Fraction(v float64) float64 {
	if r.Max <= r.Min {
		return 0.5
	}
	f := (v - r.Min) / (r.Max - r.Min)
	if f < 0 {
		return 0
	} else if f > 1 {
		return 1
	}
	return f
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}
