// Package pid turns the offset between a target and the frame centre into a corrective
// angle for one axis.
package pid

import (
	"fmt"
	"time"
)

type Gains struct {
	P, I, D float64
}

// ControlLaw is the per-axis control algorithm.  Implementations keep their own state and
// are only ever driven from one goroutine.
type ControlLaw interface {
	// Initialize resets the accumulated state; now becomes the reference time for the
	// first update.
	Initialize(now time.Time)
	// Update folds in one error sample and returns the new output.  The gains are passed on
	// every call so they can be re-tuned while running.
	Update(g Gains, err float64, now time.Time) float64
}

// PID is the default ControlLaw.  The first update after Initialize, and any update whose
// elapsed time is zero or negative, leaves the integral and derivative terms as they were
// so only the proportional term reacts to the new error.
type PID struct {
	integral   float64
	derivative float64
	prevError  float64
	prevTime   time.Time
	primed     bool
}

func (p *PID) Initialize(now time.Time) {
	*p = PID{prevTime: now}
}

func (p *PID) Update(g Gains, err float64, now time.Time) float64 {
	elapsed := now.Sub(p.prevTime).Seconds()
	if p.primed && elapsed > 0 {
		p.derivative = (err - p.prevError) / elapsed
		p.integral += err * elapsed
	}
	p.primed = true
	p.prevError = err
	p.prevTime = now

	return g.P*err + g.I*p.integral + g.D*p.derivative
}

// Integral returns the accumulated error*seconds.
func (p *PID) Integral() float64 {
	return p.integral
}

const (
	LawPID = "pid"
	// LawLibraryPID selects LibraryPID.  It drops the derivative on zero-elapsed cycles and
	// applies I gain changes to new error only; see LibraryPID.
	LawLibraryPID = "pidctrl"
)

// NewLaw returns a fresh control law by its config name.
func NewLaw(name string) (ControlLaw, error) {
	switch name {
	case "", LawPID:
		return &PID{}, nil
	case LawLibraryPID:
		return &LibraryPID{}, nil
	default:
		return nil, fmt.Errorf("unknown control law %q", name)
	}
}
